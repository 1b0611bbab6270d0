package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application-wide configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Channels ChannelsConfig `mapstructure:"channels"`
	AI       AIConfig       `mapstructure:"ai"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
	BaseURL    string `mapstructure:"baseURL"`
	TLSCert    string `mapstructure:"tlsCert"`
	TLSKey     string `mapstructure:"tlsKey"`
}

type PostgresConfig struct {
	ConnString string `mapstructure:"connString"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwtSecret"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
	OIDC            OIDCConfig    `mapstructure:"oidc"`
}

type OIDCConfig struct {
	ClientID       string `mapstructure:"clientID"`
	ClientSecret   string `mapstructure:"clientSecret"`
	Issuer         string `mapstructure:"issuer"`
	TenantClaimKey string `mapstructure:"tenantClaimKey"`
}

// ChannelsConfig carries one opaque config block per channel adapter; each
// adapter decodes its own block (mapstructure) on startup.
type ChannelsConfig struct {
	WhatsApp map[string]any `mapstructure:"whatsapp"`
	Telegram map[string]any `mapstructure:"telegram"`
	Widget   map[string]any `mapstructure:"widget"`
}

type AIConfig struct {
	OllamaURL      string        `mapstructure:"ollamaURL"`
	ChatModel      string        `mapstructure:"chatModel"`
	EmbeddingModel string        `mapstructure:"embeddingModel"`
	Timeout        time.Duration `mapstructure:"timeout"`
	VectorStore    string        `mapstructure:"vectorStore"` // "chroma" or "pgvector"
	ChromaURL      string        `mapstructure:"chromaURL"`
	TopK           int           `mapstructure:"topK"`
	MemoryWindow   int           `mapstructure:"memoryWindow"`
	CacheTTL       time.Duration `mapstructure:"cacheTTL"`
}

type EventsConfig struct {
	Bus     string `mapstructure:"bus"` // "redis" or "nats"
	NATSURL string `mapstructure:"natsURL"`
	Stream  string `mapstructure:"stream"`
	Group   string `mapstructure:"group"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Auth: AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 720 * time.Hour,
			OIDC:            OIDCConfig{TenantClaimKey: ".hub.creator_id"},
		},
		AI: AIConfig{
			OllamaURL:      "http://127.0.0.1:11434",
			ChatModel:      "llama3.2:3b",
			EmbeddingModel: "nomic-embed-text",
			Timeout:        time.Minute,
			VectorStore:    "chroma",
			ChromaURL:      "http://127.0.0.1:8000",
			TopK:           4,
			MemoryWindow:   10,
			CacheTTL:       5 * time.Minute,
		},
		Events:  EventsConfig{Bus: "redis", Stream: "hub:messages", Group: "hub-workers"},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9100"},
	}
}

// Load reads config from file or environment. Environment variables use the
// HUB_ prefix, e.g. HUB_POSTGRES_CONNSTRING.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hub")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

// Version is set at build time via -ldflags.
var Version = "dev"
