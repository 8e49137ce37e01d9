package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sasakulab/yure"
	"github.com/spf13/viper"
)

type Streaming struct {
	ServerURL  string `yaml:"serverUrl" mapstructure:"serverUrl"`
	BufferSize int    `yaml:"bufferSize" mapstructure:"bufferSize"`
}

type Transport struct {
	MinBackoff       time.Duration `yaml:"minBackoff" mapstructure:"minBackoff"`
	MaxBackoff       time.Duration `yaml:"maxBackoff" mapstructure:"maxBackoff"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout" mapstructure:"handshakeTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout" mapstructure:"writeTimeout"`
	QueueSize        int           `yaml:"queueSize" mapstructure:"queueSize"`
}

type Sensor struct {
	// simulator, iio or stdin
	Source   string        `yaml:"source" mapstructure:"source"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Device   string        `yaml:"device" mapstructure:"device"`
	// file replayed by the stdin source; empty reads standard input
	Path     string        `yaml:"path" mapstructure:"path"`
}

type Api struct {
	// empty disables the status api
	Address string `yaml:"address" mapstructure:"address"`
}

type Log struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

type Identity struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type Config struct {
	Streaming Streaming `yaml:"streaming" mapstructure:"streaming"`
	Transport Transport `yaml:"transport" mapstructure:"transport"`
	Sensor    Sensor    `yaml:"sensor" mapstructure:"sensor"`
	Api       Api       `yaml:"api" mapstructure:"api"`
	Log       Log       `yaml:"log" mapstructure:"log"`
	Identity  Identity  `yaml:"identity" mapstructure:"identity"`
}

var homeDir = filepath.Join(os.Getenv("HOME"), ".yure")

var configPath = filepath.Join(homeDir, "config.yml")

func defaultConfig() *Config {
	return &Config{
		Streaming: Streaming{
			ServerURL:  yure.DefaultServerURL,
			BufferSize: yure.DefaultBufferSize,
		},
		Transport: Transport{
			MinBackoff:       yure.DefaultMinBackoff,
			MaxBackoff:       yure.DefaultMaxBackoff,
			HandshakeTimeout: yure.DefaultHandshakeTimeout,
			WriteTimeout:     yure.DefaultWriteTimeout,
			QueueSize:        yure.DefaultQueueSize,
		},
		Sensor: Sensor{
			Source:   "simulator",
			Interval: 20 * time.Millisecond,
		},
		Api: Api{
			Address: "127.0.0.1:8765",
		},
		Log: Log{
			Level: "info",
		},
		Identity: Identity{
			Path: filepath.Join(homeDir, "id"),
		},
	}
}

func Path() string {
	return configPath
}

// SetPath changes the file read by Get and written by Init.
func SetPath(path string) {
	if path != "" {
		configPath = path
	}
}

var (
	once   sync.Once
	loaded *Config
	errGet error
)

// Get loads the configuration at Path once and returns it for the rest
// of the process.
func Get() (*Config, error) {
	once.Do(func() {
		loaded, errGet = Load(configPath)
	})
	return loaded, errGet
}

// Load reads path over the defaults. A missing file yields the defaults.
// Every key can be overridden from the environment, e.g.
// YURE_STREAMING_SERVERURL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	v.SetEnvPrefix("yure")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("cannot read config %s: %s", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("error in read config, err: %s", err)
	}
	return conf, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("streaming.serverUrl", c.Streaming.ServerURL)
	v.SetDefault("streaming.bufferSize", c.Streaming.BufferSize)
	v.SetDefault("transport.minBackoff", c.Transport.MinBackoff)
	v.SetDefault("transport.maxBackoff", c.Transport.MaxBackoff)
	v.SetDefault("transport.handshakeTimeout", c.Transport.HandshakeTimeout)
	v.SetDefault("transport.writeTimeout", c.Transport.WriteTimeout)
	v.SetDefault("transport.queueSize", c.Transport.QueueSize)
	v.SetDefault("sensor.source", c.Sensor.Source)
	v.SetDefault("sensor.interval", c.Sensor.Interval)
	v.SetDefault("sensor.device", c.Sensor.Device)
	v.SetDefault("sensor.path", c.Sensor.Path)
	v.SetDefault("api.address", c.Api.Address)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("identity.path", c.Identity.Path)
}

// Validate rejects a configuration the pipeline must never receive.
func (c *Config) Validate() error {
	if err := c.Session().Validate(); err != nil {
		return err
	}
	if c.Transport.MinBackoff <= 0 {
		return &yure.ErrInvalidConfig{Field: "transport.minBackoff", Reason: "must be positive"}
	}
	if c.Transport.MaxBackoff < c.Transport.MinBackoff {
		return &yure.ErrInvalidConfig{Field: "transport.maxBackoff", Reason: "must not be below minBackoff"}
	}
	if c.Transport.QueueSize <= 0 {
		return &yure.ErrInvalidConfig{Field: "transport.queueSize", Reason: "must be positive"}
	}
	switch c.Sensor.Source {
	case "simulator", "iio", "stdin":
	default:
		return &yure.ErrInvalidConfig{Field: "sensor.source", Reason: fmt.Sprintf("unknown source %q", c.Sensor.Source)}
	}
	if c.Identity.Path == "" {
		return &yure.ErrInvalidConfig{Field: "identity.path", Reason: "empty"}
	}
	return nil
}

// Session is the per-session part of the configuration.
func (c *Config) Session() yure.Config {
	return yure.Config{
		ServerURL:  c.Streaming.ServerURL,
		BufferSize: c.Streaming.BufferSize,
	}
}

func (c *Config) Backoff() yure.BackoffPolicy {
	return yure.BackoffPolicy{
		Min: c.Transport.MinBackoff,
		Max: c.Transport.MaxBackoff,
	}
}
