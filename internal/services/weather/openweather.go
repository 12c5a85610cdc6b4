package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/pkg/ttlcache"
)

const DefaultBaseURL = "https://api.openweathermap.org"

var (
	ErrEmptyCity     = errors.New("weather: empty city")
	ErrMissingAPIKey = errors.New("weather: missing api key")
	ErrCityNotFound  = errors.New("weather: city not found")
	ErrUpstream      = errors.New("weather: upstream error")
)

// Lookup results reported to the observer.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNotFound = "not_found"
	ResultError    = "error"
	ResultOpen     = "breaker_open"
	ResultNoKey    = "no_key"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	CacheTTL time.Duration
	CacheMax int

	Retries      int
	RetryInitial time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration
}

func (c *Config) defaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.CacheMax <= 0 {
		c.CacheMax = 1000
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 200 * time.Millisecond
	}
	if c.BreakerFailures < 1 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenFor <= 0 {
		c.BreakerOpenFor = 30 * time.Second
	}
}

type owmResp struct {
	Name string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Client fetches current conditions from OpenWeatherMap behind a cache,
// a retry policy and a circuit breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *ttlcache.Cache[entities.Weather]
	log     *zap.SugaredLogger
	observe func(result string)
	now     func() time.Time
}

type Option func(*Client)

func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.log = l } }

// WithObserver is called once per Current call with one of the Result* values.
func WithObserver(f func(result string)) Option { return func(c *Client) { c.observe = f } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.defaults()
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     zap.NewNop().Sugar(),
		observe: func(string) {},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.cache = ttlcache.New[entities.Weather](cfg.CacheTTL, cfg.CacheMax).WithClock(c.now)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openweathermap",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(cnt gobreaker.Counts) bool {
			return cnt.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCityNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnf("weather: breaker %s %s -> %s", name, from, to)
		},
	})
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

// BreakerState exposes the breaker state for health checks.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

// Current returns the current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (entities.Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return entities.Weather{}, ErrEmptyCity
	}
	if !c.Configured() {
		c.observe(ResultNoKey)
		return entities.Weather{}, ErrMissingAPIKey
	}

	key := strings.ToLower(city)
	if w, ok := c.cache.Get(key); ok {
		c.observe(ResultHit)
		return w, nil
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, city)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.observe(ResultOpen)
		return entities.Weather{}, err
	case errors.Is(err, ErrCityNotFound):
		c.observe(ResultNotFound)
		return entities.Weather{}, err
	default:
		c.observe(ResultError)
		c.log.Warnf("weather: lookup city=%q failed: %v", city, err)
		return entities.Weather{}, err
	}

	w := res.(entities.Weather)
	c.cache.Set(key, w)
	c.observe(ResultMiss)
	return w, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, city string) (entities.Weather, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInitial
	bo.MaxElapsedTime = c.cfg.Timeout

	var out entities.Weather
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		w, err := c.fetch(ctx, city)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.log.Infof("weather: attempt %d city=%q failed: %v", attempt, city, err)
			return err
		}
		out = w
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.Retries)), ctx))
	return out, err
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	// errori di decodifica non migliorano riprovando
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return false
	}
	return !errors.Is(err, ErrCityNotFound)
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("owm status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

func (c *Client) fetch(ctx context.Context, city string) (entities.Weather, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")
	u := c.cfg.BaseURL + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entities.Weather{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return entities.Weather{}, fmt.Errorf("owm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return entities.Weather{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return entities.Weather{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return entities.Weather{}, fmt.Errorf("owm decode: %w", err)
	}

	w := entities.Weather{
		City:      out.Name,
		Country:   out.Sys.Country,
		TempC:     out.Main.Temp,
		TempMinC:  out.Main.TempMin,
		TempMaxC:  out.Main.TempMax,
		Humidity:  out.Main.Humidity,
		FetchedAt: c.now().UTC(),
	}
	if w.City == "" {
		w.City = city
	}
	if len(out.Weather) > 0 {
		w.Description = out.Weather[0].Description
	}
	return w, nil
}
