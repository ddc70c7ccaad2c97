package app

import (
	"errors"
	"time"
)

// DefaultWatchDebounce is how long the watcher waits for a burst of file
// events to settle before reloading.
const DefaultWatchDebounce = 200 * time.Millisecond

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string // a .hcl file or a directory of them
	Pipeline    string // evaluate only this pipeline
	Sink        string // overrides the sink of every pipeline

	SavePath      string
	Watch         bool
	WatchDebounce time.Duration

	PublishURL       string
	PublishNamespace string
	PublishEvent     string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("ProjectPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("HealthcheckPort must be between 0 and 65535")
	}
	if cfg.PublishURL == "" && (cfg.PublishNamespace != "" || cfg.PublishEvent != "") {
		return nil, errors.New("PublishNamespace and PublishEvent require PublishURL")
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = DefaultWatchDebounce
	}
	return &cfg, nil
}
