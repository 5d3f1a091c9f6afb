package internal

import (
	"fmt"
	"time"
)

// Config is loaded from the environment. Every knob has a default so the
// server starts bare; .env files are honored in development.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=6969"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`

	ReadLimitBytes int64         `env:"READ_LIMIT_BYTES,default=4096"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`

	EnableModeration          bool   `env:"ENABLE_MODERATION,default=true"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReplacementRune validates the single-character censor replacement.
func (c Config) ReplacementRune() (rune, error) {
	r := []rune(c.ModerationCharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			c.ModerationCharReplacement,
		)
	}
	return r[0], nil
}
