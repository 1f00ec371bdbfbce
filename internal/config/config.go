package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7430"
	DefaultDBFileName = ".mediad.db"
	DefaultLogLevel   = "info"

	DefaultMaxUploadBytes      int64 = 50 * 1024 * 1024
	DefaultAudioMaxUploadBytes int64 = 100 * 1024 * 1024
	DefaultMultipartMaxMemory  int64 = 8 * 1024 * 1024

	DefaultProcessingWorkers    = 2
	DefaultProcessingAttempts   = 3
	DefaultRetryDelaySeconds    = 60
	DefaultProcessingQueueSize  = 256
	DefaultRemoteUploadFolder   = "mediad"
	DefaultLocalServePathPrefix = "/media"

	configFileName  = ".mediad.toml"
	configDirEnvKey = "MEDIAD_CONFIG_DIR"

	dbPathEnvKey       = "MEDIAD_DB_PATH"
	remoteAPIKeyEnvKey = "MEDIAD_REMOTE_API_KEY"
)

// StorageConfig selects and parameterizes the blob backends.
type StorageConfig struct {
	LocalRoot    string `toml:"local_root"`
	LocalBaseURL string `toml:"local_base_url"`
	RemoteURL    string `toml:"remote_url"`
	RemoteAPIKey string `toml:"remote_api_key"`
	RemoteFolder string `toml:"remote_folder"`
}

// LimitsConfig bounds uploads and points at an optional type policy file.
type LimitsConfig struct {
	MaxUploadBytes      int64  `toml:"max_upload_bytes"`
	AudioMaxUploadBytes int64  `toml:"audio_max_upload_bytes"`
	MultipartMaxMemory  int64  `toml:"multipart_max_memory"`
	TypePolicyFile      string `toml:"type_policy_file"`
}

// ProcessingConfig tunes the extraction worker pool.
type ProcessingConfig struct {
	Workers           int `toml:"workers"`
	MaxAttempts       int `toml:"max_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
	QueueSize         int `toml:"queue_size"`
}

// Config defines runtime configuration for mediad.
type Config struct {
	APIURL     string           `toml:"api_url"`
	DBPath     string           `toml:"db_path"`
	LogLevel   string           `toml:"log_level"`
	Storage    StorageConfig    `toml:"storage"`
	Limits     LimitsConfig     `toml:"limits"`
	Processing ProcessingConfig `toml:"processing"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			RemoteFolder: DefaultRemoteUploadFolder,
			LocalBaseURL: DefaultLocalServePathPrefix,
		},
		Limits: LimitsConfig{
			MaxUploadBytes:      DefaultMaxUploadBytes,
			AudioMaxUploadBytes: DefaultAudioMaxUploadBytes,
			MultipartMaxMemory:  DefaultMultipartMaxMemory,
		},
		Processing: ProcessingConfig{
			Workers:           DefaultProcessingWorkers,
			MaxAttempts:       DefaultProcessingAttempts,
			RetryDelaySeconds: DefaultRetryDelaySeconds,
			QueueSize:         DefaultProcessingQueueSize,
		},
	}
}

// Load reads configuration from the config file, then applies environment
// overrides and fills in derived defaults.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFileIfExists(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, DefaultDBFileName)
		}
	}
	if cfg.Storage.LocalRoot == "" && cfg.DBPath != "" {
		cfg.Storage.LocalRoot = filepath.Join(filepath.Dir(cfg.DBPath), ".mediad", "blobs")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Limits.MaxUploadBytes <= 0 {
		return fmt.Errorf("limits.max_upload_bytes must be positive")
	}
	if c.Limits.AudioMaxUploadBytes < c.Limits.MaxUploadBytes {
		return fmt.Errorf("limits.audio_max_upload_bytes must be at least limits.max_upload_bytes")
	}
	if c.Processing.MaxAttempts <= 0 {
		return fmt.Errorf("processing.max_attempts must be positive")
	}
	if c.Processing.RetryDelaySeconds < 0 {
		return fmt.Errorf("processing.retry_delay_seconds must not be negative")
	}
	return nil
}

func configPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	return filepath.Join(home, configFileName), nil
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv(dbPathEnvKey)); value != "" {
		cfg.DBPath = value
	}
	// The remote store credential is a secret; the env always wins over
	// anything committed to a config file.
	if value := strings.TrimSpace(os.Getenv(remoteAPIKeyEnvKey)); value != "" {
		cfg.Storage.RemoteAPIKey = value
	}
}
