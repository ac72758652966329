package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Interview   InterviewConfig           `json:"interview"`
	Transcripts TranscriptConfig          `json:"transcripts"`
	Drive       DriveConfig               `json:"drive"`
	Email       EmailConfig               `json:"email"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// InterviewConfig selects the completion provider and interview policy knobs.
type InterviewConfig struct {
	Provider             string   `json:"provider"`
	Model                string   `json:"model"`
	MaxOutputTokens      int      `json:"max_output_tokens"`
	Temperature          *float32 `json:"temperature"`
	TestUsername         string   `json:"test_username"`
	OracleTimeoutSeconds int      `json:"oracle_timeout_seconds"`
	SystemPrompt         string   `json:"system_prompt"`
}

// TranscriptConfig selects the transcript store backend and its directories.
// Backend is one of "none", "local", "drive", "both".
type TranscriptConfig struct {
	Backend        string `json:"backend"`
	TranscriptsDir string `json:"transcripts_dir"`
	TimesDir       string `json:"times_dir"`
	BackupsDir     string `json:"backups_dir"`
}

type DriveConfig struct {
	FolderID        string `json:"folder_id"`
	CredentialsFile string `json:"credentials_file"`
}

type EmailConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	From            string `json:"from"`
	To              string `json:"to"`
	SubjectTemplate string `json:"subject_template"`
}

const (
	DefaultTestUsername    = "testaccount"
	DefaultOracleTimeout   = 120
	DefaultMaxOutputTokens = 1024
)

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider must be configured")
	}
	if cfg.Interview.Provider == "" {
		return nil, fmt.Errorf("interview.provider must be configured")
	}
	if _, ok := cfg.Providers[cfg.Interview.Provider]; !ok {
		return nil, fmt.Errorf("interview.provider %q not present in providers", cfg.Interview.Provider)
	}

	cfg.applyDefaults()

	baseDir := filepath.Dir(absPath)
	cfg.Transcripts.TranscriptsDir = resolveDir(baseDir, cfg.Transcripts.TranscriptsDir)
	cfg.Transcripts.TimesDir = resolveDir(baseDir, cfg.Transcripts.TimesDir)
	cfg.Transcripts.BackupsDir = resolveDir(baseDir, cfg.Transcripts.BackupsDir)
	if cfg.Drive.CredentialsFile != "" && !filepath.IsAbs(cfg.Drive.CredentialsFile) {
		cfg.Drive.CredentialsFile = filepath.Join(baseDir, cfg.Drive.CredentialsFile)
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Interview.TestUsername == "" {
		cfg.Interview.TestUsername = DefaultTestUsername
	}
	if cfg.Interview.OracleTimeoutSeconds <= 0 {
		cfg.Interview.OracleTimeoutSeconds = DefaultOracleTimeout
	}
	if cfg.Interview.MaxOutputTokens <= 0 {
		cfg.Interview.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Transcripts.Backend == "" {
		cfg.Transcripts.Backend = "local"
	}
	if cfg.Transcripts.TranscriptsDir == "" {
		cfg.Transcripts.TranscriptsDir = "data/transcripts"
	}
	if cfg.Transcripts.TimesDir == "" {
		cfg.Transcripts.TimesDir = "data/times"
	}
	if cfg.Transcripts.BackupsDir == "" {
		cfg.Transcripts.BackupsDir = "data/backups"
	}
	if cfg.Email.SubjectTemplate == "" {
		cfg.Email.SubjectTemplate = "%s Interview Evaluation"
	}
}

func resolveDir(baseDir, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}
