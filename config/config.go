package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, parsed once from the environment
// in main and injected into every component that needs it.
type Config struct {
	Port           string `env:"PORT" envDefault:"8000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	DataDir        string `env:"DATA_DIR" envDefault:"data"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	GenerationModel string `env:"GENERATION_MODEL" envDefault:"gpt-4o-mini"`
	EvaluationModel string `env:"EVALUATION_MODEL" envDefault:"gpt-4o-mini"`

	// Per-call ceiling on provider requests. Expiry mid-stream takes the
	// partial-save path.
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"2m"`
	// Spacing between judge calls during bulk evaluation.
	EvaluationDelay time.Duration `env:"EVALUATION_DELAY" envDefault:"500ms"`

	BackupInterval time.Duration `env:"BACKUP_INTERVAL" envDefault:"0"` // 0 disables
	BackupDir      string        `env:"BACKUP_DIR" envDefault:"backups"`

	// Optional Cloudflare R2 upload of backup snapshots.
	R2AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `env:"R2_BUCKET_NAME"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// R2Configured reports whether backup uploads can be enabled.
func (c *Config) R2Configured() bool {
	return c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}
