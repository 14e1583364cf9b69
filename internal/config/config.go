package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvProd  = "prod"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env         string         `yaml:"env" env:"ENV" env-default:"local"`
	DatabaseUrl string         `yaml:"database_url" env:"DATABASE_URL"`
	Server      ServerConfig   `yaml:"rest"`
	JWT         JWTSecret      `yaml:"jwt"`
	CORS        CORSConfig     `yaml:"cors"`
	Log         LogConfig      `yaml:"log"`
	Realtime    RealtimeConfig `yaml:"realtime"`
	Cache       CacheConfig    `yaml:"cache"`
	Sweeper     SweeperConfig  `yaml:"sweeper"`
	Storage     StorageConfig  `yaml:"storage"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT" env-default:"8080"`
}

type JWTSecret struct {
	Secret string `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

type LogConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format    string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	AddSource bool   `yaml:"add_source" env:"LOG_ADD_SOURCE"`
	NoColor   bool   `yaml:"no_color" env:"LOG_NO_COLOR"`
}

type RealtimeConfig struct {
	// RedisAddr switches change events to Redis pub/sub so every instance sees them.
	RedisAddr     string `yaml:"redis_addr" env:"REALTIME_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REALTIME_REDIS_PASSWORD"`
	RedisChannel  string `yaml:"redis_channel" env:"REALTIME_REDIS_CHANNEL" env-default:"boardpacks:section-changes"`
}

type CacheConfig struct {
	Size int           `yaml:"size" env:"CACHE_SIZE" env-default:"1024"`
	TTL  time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"30s"`
}

type SweeperConfig struct {
	Interval    time.Duration `yaml:"interval" env:"SWEEPER_INTERVAL" env-default:"10m"`
	GracePeriod time.Duration `yaml:"grace_period" env:"SWEEPER_GRACE_PERIOD" env-default:"1h"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	MaxConns int32  `yaml:"max_conns" env:"STORAGE_MAX_CONNS" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env:"STORAGE_MIN_CONNS" env-default:"1"`
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func MustLoad() *Config {
	path := fetchConfigPath()

	if path == "" {
		panic("Config file not found in path")
	}

	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var config Config
	log.Printf("Loading config from %s", path)
	if err := cleanenv.ReadConfig(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "config path")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	if res == "" {
		res = "./config/local.yaml"
	}

	return res
}
