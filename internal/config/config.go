package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Render     RenderConfig     `mapstructure:"render"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	Mode      string     `mapstructure:"mode"`
	StaticDir string     `mapstructure:"static_dir"`
	IndexFile string     `mapstructure:"index_file"`
	CORS      CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// LLMConfig holds the fallback endpoint used when a request omits its own.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GenerationConfig struct {
	MaxGen          int    `mapstructure:"max_gen"`
	MaxFix          int    `mapstructure:"max_fix"`
	QualityCheck    bool   `mapstructure:"quality_check"`
	HTMLMaxAttempts int    `mapstructure:"html_max_attempts"`
	DefaultQuality  string `mapstructure:"default_quality"`
}

type RenderConfig struct {
	Python         string `mapstructure:"python"`
	RunsDir        string `mapstructure:"runs_dir"`
	SceneName      string `mapstructure:"scene_name"`
	OutputTail     int    `mapstructure:"output_tail"`
	MaxOutputBytes int64  `mapstructure:"max_output_bytes"`
}

type ArchiveConfig struct {
	Dir string `mapstructure:"dir"`
}

type PromptsConfig struct {
	SystemFile string `mapstructure:"system_file"`
}

type JobsConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ErrorLogSize  int           `mapstructure:"error_log_size"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and endpoints keep the names the original tooling used
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.model", "OPENAI_MODEL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("render.python", "MANIM_PYTHON")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.index_file", "web_interface/index.html")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("generation.max_gen", 2)
	v.SetDefault("generation.max_fix", 2)
	v.SetDefault("generation.quality_check", true)
	v.SetDefault("generation.html_max_attempts", 2)
	v.SetDefault("generation.default_quality", "m")
	v.SetDefault("render.python", "python3")
	v.SetDefault("render.runs_dir", "runs_video")
	v.SetDefault("render.scene_name", "GeneratedScene")
	v.SetDefault("render.output_tail", 4000)
	v.SetDefault("render.max_output_bytes", 4<<20)
	v.SetDefault("archive.dir", "saved_projects")
	v.SetDefault("prompts.system_file", "prompts/system_instruction.txt")
	v.SetDefault("jobs.retention", 24*time.Hour)
	v.SetDefault("jobs.sweep_interval", 10*time.Minute)
	v.SetDefault("jobs.error_log_size", 200)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/huiyan.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.prefix", "huiyan")
}

// Validate rejects values the pipelines cannot work with.
func (c *Config) Validate() error {
	if c.Generation.MaxGen < 1 {
		return fmt.Errorf("generation.max_gen must be >= 1, got %d", c.Generation.MaxGen)
	}
	if c.Generation.MaxFix < 0 {
		return fmt.Errorf("generation.max_fix must be >= 0, got %d", c.Generation.MaxFix)
	}
	if c.Generation.HTMLMaxAttempts < 1 {
		return fmt.Errorf("generation.html_max_attempts must be >= 1, got %d", c.Generation.HTMLMaxAttempts)
	}
	switch c.Generation.DefaultQuality {
	case "l", "m", "h", "k":
	default:
		return fmt.Errorf("generation.default_quality must be one of l, m, h, k, got %q", c.Generation.DefaultQuality)
	}
	if c.Database.Enabled && c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the postgres driver")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	return nil
}
