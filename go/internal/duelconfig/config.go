package duelconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultBackendURL = "http://localhost:11995"

// Config holds the client settings read from the environment.
type Config struct {
	BackendURL string
	PageURL    string
	ViewAddr   string
	NatsURL    string
	LogLevel   string
	ConfigPath string
	Timing     Timing
}

// Timing holds the timer knobs. They can be overridden from a YAML file.
type Timing struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	OverlayTTL     time.Duration `yaml:"overlay_ttl"`
	JoinTimeout    time.Duration `yaml:"join_timeout"`
	JoinPoll       time.Duration `yaml:"join_poll"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type fileConfig struct {
	BackendURL string `yaml:"backend_url"`
	PageURL    string `yaml:"page_url"`
	ViewAddr   string `yaml:"view_addr"`
	NatsURL    string `yaml:"nats_url"`
	Timing     Timing `yaml:"timing"`
}

// DefaultTiming returns the client's standard timings.
func DefaultTiming() Timing {
	return Timing{
		ReconnectDelay: 3 * time.Second,
		OverlayTTL:     8 * time.Second,
		JoinTimeout:    5 * time.Second,
		JoinPoll:       100 * time.Millisecond,
		DialTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// NewConfigFromEnv reads the environment (with defaults).
func NewConfigFromEnv() Config {
	backend := strings.TrimRight(getEnv("BACKEND_URL", DefaultBackendURL), "/")

	return Config{
		BackendURL: backend,
		PageURL:    getEnv("PAGE_URL", backend+"/"),
		ViewAddr:   getEnv("VIEW_ADDR", ""),
		NatsURL:    getEnv("NATS_URL", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ConfigPath: getEnv("DUEL_CONFIG", ""),
		Timing:     DefaultTiming(),
	}
}

// Load reads the environment and then applies the YAML file at path, if
// any. Values present in the file win over the environment.
func Load(path string) (Config, error) {
	config := NewConfigFromEnv()
	if path == "" {
		path = config.ConfigPath
	}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ConfigPath = path
	config.apply(file)
	return config, nil
}

func (c *Config) apply(f fileConfig) {
	if f.BackendURL != "" {
		pageFollowsBackend := c.PageURL == c.BackendURL+"/"
		c.BackendURL = strings.TrimRight(f.BackendURL, "/")
		if pageFollowsBackend {
			c.PageURL = c.BackendURL + "/"
		}
	}
	if f.PageURL != "" {
		c.PageURL = f.PageURL
	}
	if f.ViewAddr != "" {
		c.ViewAddr = f.ViewAddr
	}
	if f.NatsURL != "" {
		c.NatsURL = f.NatsURL
	}

	t := f.Timing
	setDuration(&c.Timing.ReconnectDelay, t.ReconnectDelay)
	setDuration(&c.Timing.OverlayTTL, t.OverlayTTL)
	setDuration(&c.Timing.JoinTimeout, t.JoinTimeout)
	setDuration(&c.Timing.JoinPoll, t.JoinPoll)
	setDuration(&c.Timing.DialTimeout, t.DialTimeout)
	setDuration(&c.Timing.WriteTimeout, t.WriteTimeout)
}

// SocketURL derives the websocket URL from the backend URL.
func (c Config) SocketURL() string {
	return SocketURL(c.BackendURL)
}

// SocketURL swaps the http scheme for the websocket one and appends /ws.
func SocketURL(backend string) string {
	backend = strings.TrimRight(backend, "/")
	switch {
	case strings.HasPrefix(backend, "https://"):
		backend = "wss://" + strings.TrimPrefix(backend, "https://")
	case strings.HasPrefix(backend, "http://"):
		backend = "ws://" + strings.TrimPrefix(backend, "http://")
	}
	return backend + "/ws"
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
