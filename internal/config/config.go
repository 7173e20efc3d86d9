package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type APIConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DBMaxConns        int32  `envconfig:"DB_POOL_MAX_CONNS" default:"0"`
	DBMinConns        int32  `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	DBMaxConnLifetime string `envconfig:"DB_POOL_MAX_CONN_LIFETIME"`

	// The manual dispatch endpoint delivers for real, so the API carries the
	// same sender settings as the dispatcher.
	SendTimeout    time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	MaxSendRetries int           `envconfig:"MAX_SEND_RETRIES" default:"0"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL"`
}

type DispatcherConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8081"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DispatchInterval time.Duration `envconfig:"DISPATCH_INTERVAL" default:"1m"`
	SendTimeout      time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	// In-pass transport retries before a row resolves failed. A row that
	// reached failed is never re-queued.
	MaxSendRetries int `envconfig:"MAX_SEND_RETRIES" default:"0"`

	SenderRPS   float64 `envconfig:"SENDER_RPS" default:"5"`
	SenderBurst int     `envconfig:"SENDER_BURST" default:"10"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"FROM_EMAIL"`
}

type SeederConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadDispatcher() DispatcherConfig {
	var cfg DispatcherConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadSeeder() SeederConfig {
	var cfg SeederConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
