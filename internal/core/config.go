package core

import (
	"fmt"
	"os"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

type Broker struct {
	URL   string `config:"url"`
	Topic string `config:"topic"`
}

type Stream struct {
	ReconnectMillis  int `config:"reconnect_millis"`
	KeepAliveSeconds int `config:"keep_alive_seconds"`
	QueueLength      int `config:"queue_length"`
}

type Config struct {
	ID     string `config:"id"`
	Addr   string `config:"addr"`
	Broker Broker `config:"broker"`
	Stream Stream `config:"stream"`
}

// NewConfig loads configs/config.yml (or $SSELAY_CONFIG_DIR/config.yml) with
// an optional config.local.yml overlay, parsing env var references.
func NewConfig() (*Config, error) {
	var appConfig Config

	config.WithOptions(func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
	})

	config.AddDriver(yaml.Driver)

	baseDir := "configs/"

	if p := os.Getenv("SSELAY_CONFIG_DIR"); p != "" {
		baseDir = p
	}

	if err := config.LoadFiles(fmt.Sprintf("%sconfig.yml", baseDir)); err != nil {
		return nil, err
	}

	if err := config.LoadExists(fmt.Sprintf("%sconfig.local.yml", baseDir)); err != nil {
		return nil, err
	}

	if err := config.BindStruct("", &appConfig); err != nil {
		return nil, err
	}

	return &appConfig, nil
}
