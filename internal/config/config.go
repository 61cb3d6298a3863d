// Package config defines the on-disk configuration schema for the eywa
// retrieval engine: embedding/reranker model selection, device preference,
// search fusion tuning, chunking sizes, and ingest batching thresholds.
// The file is TOML, human-editable, and lives at ~/.eywa/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// EmbeddingModel is a recognized bi-encoder embedding model.
type EmbeddingModel string

const (
	EmbeddingBGEBaseEN      EmbeddingModel = "bge-base-en-v1.5"
	EmbeddingBGESmallEN     EmbeddingModel = "bge-small-en-v1.5"
	EmbeddingNomicEmbedText EmbeddingModel = "nomic-embed-text-v1.5"
	EmbeddingMiniLML6       EmbeddingModel = "all-MiniLM-L6-v2"
	EmbeddingMiniLML12      EmbeddingModel = "all-MiniLM-L12-v2"
)

// Dimensions returns the embedding vector length this model produces.
func (m EmbeddingModel) Dimensions() int {
	switch m {
	case EmbeddingBGEBaseEN, EmbeddingNomicEmbedText:
		return 768
	case EmbeddingBGESmallEN, EmbeddingMiniLML6, EmbeddingMiniLML12:
		return 384
	default:
		return 384
	}
}

// HFID returns the Hugging Face model id this short name maps to. Model
// downloading itself is out of scope; this is informational only, used to
// tell a local model server which model to serve.
func (m EmbeddingModel) HFID() string {
	switch m {
	case EmbeddingBGEBaseEN:
		return "BAAI/bge-base-en-v1.5"
	case EmbeddingBGESmallEN:
		return "BAAI/bge-small-en-v1.5"
	case EmbeddingNomicEmbedText:
		return "nomic-ai/nomic-embed-text-v1.5"
	case EmbeddingMiniLML6:
		return "sentence-transformers/all-MiniLM-L6-v2"
	case EmbeddingMiniLML12:
		return "sentence-transformers/all-MiniLM-L12-v2"
	default:
		return ""
	}
}

func (m EmbeddingModel) valid() bool {
	switch m {
	case EmbeddingBGEBaseEN, EmbeddingBGESmallEN, EmbeddingNomicEmbedText, EmbeddingMiniLML6, EmbeddingMiniLML12:
		return true
	default:
		return false
	}
}

// RerankerModel is a recognized cross-encoder reranker model.
type RerankerModel string

const (
	RerankerJinaV2Multilingual RerankerModel = "jina-reranker-v2-base-multilingual"
	RerankerJinaV1TurboEN      RerankerModel = "jina-reranker-v1-turbo-en"
	RerankerBGEBase            RerankerModel = "bge-reranker-base"
	RerankerMSMarcoMiniLML6    RerankerModel = "ms-marco-MiniLM-L-6-v2"
)

func (m RerankerModel) valid() bool {
	switch m {
	case RerankerJinaV2Multilingual, RerankerJinaV1TurboEN, RerankerBGEBase, RerankerMSMarcoMiniLML6, "":
		return true
	default:
		return false
	}
}

// DevicePreference selects the compute device the model server should
// prefer. The engine itself never loads a model; this is passed through to
// the configured model server.
type DevicePreference string

const (
	DeviceAuto  DevicePreference = "auto"
	DeviceCPU   DevicePreference = "cpu"
	DeviceMetal DevicePreference = "metal"
	DeviceCUDA  DevicePreference = "cuda"
)

func (d DevicePreference) valid() bool {
	switch d {
	case DeviceAuto, DeviceCPU, DeviceMetal, DeviceCUDA:
		return true
	default:
		return false
	}
}

// FusionMode selects how the search orchestrator combines lexical and
// vector candidate lists before reranking.
type FusionMode string

const (
	FusionMaxScore FusionMode = "max_score"
	FusionRRF      FusionMode = "rrf"
)

// CurrentConfigVersion is bumped whenever the recognized key set changes in
// a way old configs can't be loaded as-is.
const CurrentConfigVersion = 1

// Config is the complete eywa configuration, as read from / written to
// config.toml.
type Config struct {
	Version        int              `toml:"version"`
	EmbeddingModel EmbeddingModel   `toml:"embedding_model"`
	RerankerModel  RerankerModel    `toml:"reranker_model"`
	Device         DevicePreference `toml:"device"`
	Search         SearchConfig     `toml:"search"`
	Chunking       ChunkingConfig   `toml:"chunking"`
	Ingest         IngestConfig     `toml:"ingest"`
	ModelServerURL string           `toml:"model_server_url"`
	MinScore       float64          `toml:"min_score"`
}

// SearchConfig tunes the hybrid fusion step of the search orchestrator.
type SearchConfig struct {
	FusionMode   FusionMode `toml:"fusion_mode"`
	RRFConstant  int        `toml:"rrf_constant"`
	OverFetchMin int        `toml:"over_fetch_min"`
	MaxResults   int        `toml:"max_results"`
}

// ChunkingConfig governs the chunker family's size targets. Exact values
// must stay consistent across ingestion and reindex (spec.md §4.1).
type ChunkingConfig struct {
	TargetSize int `toml:"target_size"`
	MinChunk   int `toml:"min_chunk"`
	Overlap    int `toml:"overlap"`
}

// IngestConfig governs the accumulator's batch-flush thresholds.
type IngestConfig struct {
	MaxDocs     int `toml:"max_docs"`
	MaxChunks   int `toml:"max_chunks"`
	MaxMemoryMB int `toml:"max_memory_mb"`
}

// Default returns the baseline configuration used when no config file
// exists yet.
func Default() *Config {
	return &Config{
		Version:        CurrentConfigVersion,
		EmbeddingModel: EmbeddingBGESmallEN,
		RerankerModel:  RerankerBGEBase,
		Device:         DeviceAuto,
		MinScore:       0.3,
		ModelServerURL: "http://localhost:11434",
		Search: SearchConfig{
			FusionMode:   FusionMaxScore,
			RRFConstant:  60,
			OverFetchMin: 50,
			MaxResults:   10,
		},
		Chunking: ChunkingConfig{
			TargetSize: 1500,
			MinChunk:   100,
			Overlap:    150,
		},
		Ingest: IngestConfig{
			MaxDocs:     200,
			MaxChunks:   2000,
			MaxMemoryMB: 256,
		},
	}
}

// Validate checks that every recognized key holds a value from its
// enumerated domain (spec.md §6) and that numeric thresholds are coherent.
func (c *Config) Validate() error {
	if !c.EmbeddingModel.valid() {
		return errcodes.New(errcodes.ErrCodeModelUnrecognized,
			fmt.Sprintf("unrecognized embedding_model %q", c.EmbeddingModel), nil)
	}
	if !c.RerankerModel.valid() {
		return errcodes.New(errcodes.ErrCodeModelUnrecognized,
			fmt.Sprintf("unrecognized reranker_model %q", c.RerankerModel), nil)
	}
	if !c.Device.valid() {
		return errcodes.ConfigError(fmt.Sprintf("unrecognized device %q", c.Device), nil)
	}
	if c.Search.FusionMode != FusionMaxScore && c.Search.FusionMode != FusionRRF {
		return errcodes.ConfigError(fmt.Sprintf("unrecognized fusion_mode %q", c.Search.FusionMode), nil)
	}
	if c.Chunking.MinChunk <= 0 || c.Chunking.TargetSize <= c.Chunking.MinChunk {
		return errcodes.ConfigError("chunking.target_size must exceed chunking.min_chunk", nil)
	}
	return nil
}

// EywaDir returns the root directory holding the user config file,
// ~/.eywa by default, honoring $EYWA_HOME for tests and overrides.
func EywaDir() string {
	if dir := os.Getenv("EYWA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eywa"
	}
	return filepath.Join(home, ".eywa")
}

// DataDir returns the data directory D described in spec.md §6.
func DataDir() string {
	return filepath.Join(EywaDir(), "data")
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() string {
	return filepath.Join(EywaDir(), "config.toml")
}

// Exists reports whether a config file is already present.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Load reads and parses the config file, falling back to Default if none
// exists yet.
func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeConfigNotFound, "reading config file", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errcodes.New(errcodes.ErrCodeConfigInvalid, "parsing config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk as TOML, creating the eywa directory if
// needed.
func Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(EywaDir(), 0o755); err != nil {
		return errcodes.New(errcodes.ErrCodeConfigPermission, "creating config directory", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errcodes.New(errcodes.ErrCodeConfigInvalid, "encoding config", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o644); err != nil {
		return errcodes.New(errcodes.ErrCodeConfigPermission, "writing config file", err)
	}
	return nil
}
