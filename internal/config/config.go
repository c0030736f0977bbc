package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	RecordsDriverSQLite = "sqlite"
	RecordsDriverRedis  = "redis"
)

var ErrInvalidRecordsConfig = errors.New("invalid records storage configuration")

type Config struct {
	LogLevel   string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Records    Records `yaml:"records"`
}

// Records configures the game-record store. The driver selects between the
// sqlite and redis repositories.
type Records struct {
	Driver     string `yaml:"driver" env:"RECORDS_DRIVER" env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite-path" env:"RECORDS_SQLITE_PATH"`
	Redis      Redis  `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// Validate rejects configurations the process must not start with. A broken
// record store aborts startup entirely rather than running degraded.
func (that *Config) Validate() error {
	switch that.Records.Driver {
	case RecordsDriverSQLite:
		if that.Records.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite-path is required for the sqlite driver", ErrInvalidRecordsConfig)
		}
	case RecordsDriverRedis:
		if that.Records.Redis.Host == "" || that.Records.Redis.Port == "" {
			return fmt.Errorf("%w: redis host and port are required for the redis driver", ErrInvalidRecordsConfig)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidRecordsConfig, that.Records.Driver)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
