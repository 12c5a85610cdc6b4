package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/anuja/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
	"github.com/LeonardoBeccarini/anuja/pkg/rabbitmq"
)

type Config struct {
	HTTPAddr       string `yaml:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr"` // vuoto = gRPC disabilitato
	AssetsDir      string `yaml:"assets_dir"`
	TZ             string `yaml:"tz"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`

	Log     LogConfig     `yaml:"log"`
	Weather WeatherConfig `yaml:"weather"`
	Influx  InfluxConfig  `yaml:"influx"`
	Rabbit  RabbitConfig  `yaml:"rabbitmq"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type WeatherConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	TimeoutMS     int    `yaml:"timeout_ms"`
	CacheTTLS     int    `yaml:"cache_ttl_s"`
	Retries       int    `yaml:"retries"`
	BreakerFails  int    `yaml:"breaker_failures"`
	BreakerOpenMS int    `yaml:"breaker_open_ms"`
}

type InfluxConfig struct {
	URL     string `yaml:"url"` // vuoto = storico disabilitato
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
	Batch   int    `yaml:"batch_size"`
	FlushMS int    `yaml:"flush_interval_ms"`
}

type RabbitConfig struct {
	Host          string `yaml:"host"` // vuoto = notifier disabilitato
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	ClientID      string `yaml:"client_id"` // vuoto = $HOSTNAME, poi "anuja"
	TopicTemplate string `yaml:"topic_template"`
	PublishMS     int    `yaml:"publish_timeout_ms"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:       ":8501",
		GRPCAddr:       ":9090",
		AssetsDir:      "assets",
		UploadMaxBytes: app.DefaultUploadMaxBytes,
		Log:            LogConfig{Level: "info", Format: "json"},
		Weather: WeatherConfig{
			BaseURL:       weather.DefaultBaseURL,
			TimeoutMS:     10000,
			CacheTTLS:     600,
			Retries:       2,
			BreakerFails:  5,
			BreakerOpenMS: 30000,
		},
		Influx: InfluxConfig{Org: "anuja", Bucket: "advisories", Batch: 10, FlushMS: 1000},
		Rabbit: RabbitConfig{Port: 1883, User: "guest", Password: "guest", TopicTemplate: "advisory/{crop}", PublishMS: 2000},
	}
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// lookupenv also honours an explicitly empty variable; used for the
// settings where empty means "disabled".
func lookupenv(k, d string) string {
	if v, ok := os.LookupEnv(k); ok {
		return strings.TrimSpace(v)
	}
	return d
}

// loadConfig reads the optional YAML file (path, else $ANUJA_CONFIG) and
// applies environment overrides on top.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv("ANUJA_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = lookupenv("GRPC_ADDR", c.GRPCAddr)
	c.AssetsDir = getenv("ASSETS_DIR", c.AssetsDir)
	c.TZ = getenv("TZ", c.TZ)
	c.UploadMaxBytes = int64(getenvInt("UPLOAD_MAX_BYTES", int(c.UploadMaxBytes)))

	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("LOG_FORMAT", c.Log.Format)

	// la chiave nel file ha la precedenza sulla variabile d'ambiente
	if strings.TrimSpace(c.Weather.APIKey) == "" {
		c.Weather.APIKey = strings.TrimSpace(os.Getenv("OPENWEATHERMAP_KEY"))
	}
	c.Weather.BaseURL = getenv("OWM_BASE_URL", c.Weather.BaseURL)
	c.Weather.TimeoutMS = getenvInt("WEATHER_TIMEOUT_MS", c.Weather.TimeoutMS)
	c.Weather.CacheTTLS = getenvInt("WEATHER_CACHE_TTL_S", c.Weather.CacheTTLS)
	c.Weather.Retries = getenvInt("WEATHER_RETRIES", c.Weather.Retries)
	c.Weather.BreakerFails = getenvInt("CB_WEATHER_FAILS", c.Weather.BreakerFails)
	c.Weather.BreakerOpenMS = getenvInt("CB_WEATHER_OPEN_MS", c.Weather.BreakerOpenMS)

	c.Influx.URL = lookupenv("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = getenv("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = getenv("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = getenv("INFLUX_BUCKET", c.Influx.Bucket)

	c.Rabbit.Host = lookupenv("RABBITMQ_HOST", c.Rabbit.Host)
	c.Rabbit.Port = getenvInt("RABBITMQ_PORT", c.Rabbit.Port)
	c.Rabbit.User = getenv("RABBITMQ_USER", c.Rabbit.User)
	c.Rabbit.Password = getenv("RABBITMQ_PASSWORD", c.Rabbit.Password)
	c.Rabbit.ClientID = getenv("RABBITMQ_CLIENT_ID", c.Rabbit.ClientID)
	if strings.TrimSpace(c.Rabbit.ClientID) == "" {
		c.Rabbit.ClientID = getenv("HOSTNAME", "anuja")
	}
	c.Rabbit.TopicTemplate = getenv("ADVISORY_TOPIC_TEMPLATE", c.Rabbit.TopicTemplate)
	c.Rabbit.PublishMS = getenvInt("RABBITMQ_PUBLISH_TIMEOUT_MS", c.Rabbit.PublishMS)
}

func (c Config) weatherClientConfig() weather.Config {
	return weather.Config{
		BaseURL:         c.Weather.BaseURL,
		APIKey:          c.Weather.APIKey,
		Timeout:         time.Duration(c.Weather.TimeoutMS) * time.Millisecond,
		CacheTTL:        time.Duration(c.Weather.CacheTTLS) * time.Second,
		Retries:         c.Weather.Retries,
		BreakerFailures: c.Weather.BreakerFails,
		BreakerOpenFor:  time.Duration(c.Weather.BreakerOpenMS) * time.Millisecond,
	}
}

func (c Config) rabbitConfig() rabbitmq.RabbitMQConfig {
	return rabbitmq.RabbitMQConfig{
		Host:     c.Rabbit.Host,
		Port:     c.Rabbit.Port,
		User:     c.Rabbit.User,
		Password: c.Rabbit.Password,
		ClientID: c.Rabbit.ClientID,
	}
}

// location resolves TZ; empty means the host zone.
func (c Config) location() (*time.Location, error) {
	if strings.TrimSpace(c.TZ) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("config: tz %q: %w", c.TZ, err)
	}
	return loc, nil
}

func newLogger(cfg LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
