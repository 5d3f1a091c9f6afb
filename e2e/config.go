package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points the scenario at an already-running server
	// (ws:// URL of the /ws endpoint). Empty starts an in-process server.
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// E2E_TIMEOUT bounds each individual receive.
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
