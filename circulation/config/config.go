package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/libcirc/circulation-service/pkg/kafka"
	"github.com/libcirc/circulation-service/pkg/logger"
	"github.com/libcirc/circulation-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CIRCULATION_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"CIRCULATION_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"15s"`
	WriteTimeout time.Duration
}

type Circulation struct {
	// BorrowLimit caps concurrent active borrowings per user.
	BorrowLimit int `yaml:"borrowLimit" envconfig:"CIRCULATION_BORROW_LIMIT" default:"5"`
	// LoanPeriod defines the due date offset for new borrowings.
	LoanPeriod time.Duration `yaml:"loanPeriod" envconfig:"CIRCULATION_LOAN_PERIOD" default:"336h"`
}

type Config struct {
	Server      HTTPServer `yaml:"server"`
	Database    postgres.Config
	Kafka       kafka.Config
	Circulation Circulation `yaml:"circulation"`
	Log         logger.Log  `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}
