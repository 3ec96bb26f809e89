// Package config handles loading and parsing application configuration.
// It supports three sources (in priority order):
//  1. Process environment (including a .env file in the working directory)
//  2. An optional YAML file: CONFIG_PATH=/path/to/config.yaml or --config
//  3. The env-default values declared on the struct tags below
//
// Without a YAML file the service runs on environment variables alone,
// so PORT and MONGO_URI are all that a deployment needs to set.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage driver names accepted in Storage.Driver.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// UploadDir is where uploaded images are written and served from.
	UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"uploads"`

	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Port is used when Addr is empty; the server then listens on ":<Port>".
	Port string `yaml:"port" env:"PORT" env-default:"8080"`

	// Addr is the full TCP listen address, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR"`
}

// Storage selects and configures the database backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`

	// MongoURI is the connection string for the document database.
	MongoURI string `yaml:"mongo_uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`

	// MongoDatabase overrides the database named in MongoURI.
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE"`

	// Path is the filesystem path to the SQLite .db file.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/storage.db"`
}

// ListenAddr returns the address the HTTP server should bind to.
func (h HTTPServer) ListenAddr() string {
	if h.Addr != "" {
		return h.Addr
	}
	return ":" + h.Port
}

// Load reads configuration from configPath (if not empty) and the
// environment, then validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("MONGO_URI must be set for the mongo driver")
		}
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("STORAGE_PATH must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.UploadDir == "" {
		return errors.New("UPLOAD_DIR must not be empty")
	}
	return nil
}

// MustLoad reads, validates, and returns the application config.
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	// A missing .env file is normal in production; only the real
	// environment is used then.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to an optional configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err.Error())
	}
	return cfg
}
