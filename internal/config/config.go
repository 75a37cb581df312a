package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		Environment    string   `yaml:"environment"`
		LogLevel       string   `yaml:"logLevel"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		// TrustProxy honours X-Forwarded-For / X-Real-IP; only enable behind a proxy that sets them.
		TrustProxy bool `yaml:"trustProxy"`
	} `yaml:"server"`

	Marketplace Marketplace `yaml:"marketplace"`

	AI AI `yaml:"ai"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`

		Pool `yaml:",inline"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Security struct {
		// TokenSealingKey is a hex encoded 32 byte key used to seal tokens at rest.
		TokenSealingKey string            `yaml:"tokenSealingKey"`
		APIKeys         map[string]string `yaml:"apiKeys"`
	} `yaml:"security"`

	RateLimit struct {
		Burst     int     `yaml:"burst"`
		PerSecond float64 `yaml:"perSecond"`
	} `yaml:"rateLimit"`
}

// Pool sizes the sql.DB connection pool.
type Pool struct {
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type Marketplace struct {
	AuthURL      string        `yaml:"authURL"`
	APIURL       string        `yaml:"apiURL"`
	ClientID     string        `yaml:"clientID"`
	ClientSecret string        `yaml:"clientSecret"`
	RedirectURI  string        `yaml:"redirectURI"`
	Scope        string        `yaml:"scope"`
	SiteID       string        `yaml:"siteID"`
	StateTTL     time.Duration `yaml:"stateTTL"`
	ExposeTokens bool          `yaml:"exposeTokens"`
}

type Provider struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type AI struct {
	Timeout  time.Duration `yaml:"timeout"`
	OpenAI   Provider      `yaml:"openai"`
	DeepSeek Provider      `yaml:"deepseek"`
	Gemini   Provider      `yaml:"gemini"`
}

// secrets are read from the environment and win over the file.
type secrets struct {
	MLClientID     string `envconfig:"ML_CLIENT_ID"`
	MLClientSecret string `envconfig:"ML_CLIENT_SECRET"`
	MLRedirectURI  string `envconfig:"ML_REDIRECT_URI"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	DeepSeekAPIKey string `envconfig:"DEEPSEEK_API_KEY"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`

	DatabaseDriver   string `envconfig:"DATABASE_DRIVER"`
	DatabaseHost     string `envconfig:"DATABASE_HOST"`
	DatabasePort     int    `envconfig:"DATABASE_PORT"`
	DatabaseUser     string `envconfig:"DATABASE_USER"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseName     string `envconfig:"DATABASE_NAME"`

	RedisURL        string `envconfig:"REDIS_URL"`
	TokenSealingKey string `envconfig:"TOKEN_SEALING_KEY"`

	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`

	Port       int  `envconfig:"PORT"`
	TrustProxy bool `envconfig:"TRUST_PROXY"`
}

// Load baca file config (optional) lalu timpa dengan env.
func Load(path string) (*Config, error) {
	// .env is a local-run convenience; missing file is fine
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	var env secrets
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.apply(env)
	cfg.fillDefaults()
	return cfg, nil
}

// Default returns a config with every non-secret default set.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Marketplace.AuthURL == "" {
		c.Marketplace.AuthURL = "https://auth.mercadolibre.com.br/authorization"
	}
	if c.Marketplace.APIURL == "" {
		c.Marketplace.APIURL = "https://api.mercadolibre.com"
	}
	if c.Marketplace.Scope == "" {
		c.Marketplace.Scope = "read"
	}
	if c.Marketplace.SiteID == "" {
		c.Marketplace.SiteID = "MLB"
	}
	if c.Marketplace.StateTTL == 0 {
		c.Marketplace.StateTTL = 10 * time.Minute
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.AI.DeepSeek.BaseURL == "" {
		c.AI.DeepSeek.BaseURL = "https://api.deepseek.com/v1"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "analysis-reports"
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 5
	}
}

func (c *Config) apply(env secrets) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Marketplace.ClientID, env.MLClientID)
	set(&c.Marketplace.ClientSecret, env.MLClientSecret)
	set(&c.Marketplace.RedirectURI, env.MLRedirectURI)
	set(&c.AI.OpenAI.APIKey, env.OpenAIAPIKey)
	set(&c.AI.DeepSeek.APIKey, env.DeepSeekAPIKey)
	set(&c.AI.Gemini.APIKey, env.GeminiAPIKey)
	set(&c.Database.Driver, env.DatabaseDriver)
	set(&c.Database.Host, env.DatabaseHost)
	set(&c.Database.User, env.DatabaseUser)
	set(&c.Database.Password, env.DatabasePassword)
	set(&c.Database.Name, env.DatabaseName)
	if env.DatabasePort != 0 {
		c.Database.Port = env.DatabasePort
	}
	set(&c.Redis.URL, env.RedisURL)
	set(&c.Security.TokenSealingKey, env.TokenSealingKey)
	set(&c.Minio.AccessKey, env.MinioAccessKey)
	set(&c.Minio.SecretKey, env.MinioSecretKey)
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.TrustProxy {
		c.Server.TrustProxy = true
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// MinioEnabled reports whether an archive store is configured.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.AccessKey != ""
}
