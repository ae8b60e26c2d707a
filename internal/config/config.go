package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Identity IdentityConfig `envPrefix:"IDENTITY_"`
	Google   GoogleConfig   `envPrefix:"GOOGLE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	RabbitMQ RabbitMQConfig `envPrefix:"RABBITMQ_"`
	MongoDB  MongoDBConfig  `envPrefix:"MONGODB_"`
	Consul   ConsulConfig   `envPrefix:"CONSUL_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"PORT" envDefault:"1616"`
	ServiceName    string        `env:"NAME" envDefault:"membership-service"`
	ServiceAddress string        `env:"ADDRESS" envDefault:"membership-service"`
	ServiceID      string        `env:"ID"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type StorageConfig struct {
	DataPath string `env:"DATA_PATH" envDefault:"./data"`
}

func (s StorageConfig) ProfilesPath() string {
	return filepath.Join(s.DataPath, "json")
}

func (s StorageConfig) RegistrationsPath() string {
	return filepath.Join(s.DataPath, "registrations")
}

type SessionConfig struct {
	CookieName string        `env:"COOKIE_NAME" envDefault:"membership_session"`
	JWTSecret  string        `env:"JWT_SECRET"`
	TTL        time.Duration `env:"TTL" envDefault:"24h"`
	Secure     bool          `env:"SECURE" envDefault:"false"`
}

type IdentityConfig struct {
	VerifierURL string        `env:"VERIFIER_URL" envDefault:"https://verifier.login.persona.org/verify"`
	Audience    string        `env:"AUDIENCE" envDefault:"localhost:1616"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type GoogleConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL" envDefault:"http://localhost:1616/auth/google/callback"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,https://www.googleapis.com/auth/userinfo.email"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type RedisConfig struct {
	Address  string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type RabbitMQConfig struct {
	URI           string `env:"URI"`
	Exchange      string `env:"EXCHANGE" envDefault:"membership.events"`
	AdminExchange string `env:"ADMIN_EXCHANGE" envDefault:"membership.admin"`
	QueueName     string `env:"QUEUE" envDefault:"membership-service-admin"`
}

type MongoDBConfig struct {
	URI        string        `env:"URI"`
	Database   string        `env:"DATABASE" envDefault:"membership_service"`
	Collection string        `env:"COLLECTION" envDefault:"profiles"`
	PoolSize   uint64        `env:"POOL_SIZE" envDefault:"20"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type ConsulConfig struct {
	Address string `env:"ADDRESS"`
}

type LogConfig struct {
	Dir string `env:"DIR"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			log.Printf("No env file loaded from %s: %v", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Server.ServiceID == "" {
		cfg.Server.ServiceID = cfg.Server.ServiceName + "-" + cfg.Server.Port
	}
	if cfg.Session.JWTSecret == "" {
		return nil, fmt.Errorf("SESSION_JWT_SECRET is required")
	}
	return cfg, nil
}
