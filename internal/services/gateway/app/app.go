package app

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
	"github.com/LeonardoBeccarini/anuja/internal/services/history"
)

const (
	AppTitle              = "ANUJA - Smart Farming Partner"
	DefaultUploadMaxBytes = 10 << 20
)

type Config struct {
	AssetsDir      string
	UploadMaxBytes int64
	RequestTimeout time.Duration // per le chiamate upstream (meteo, influx)

	Logger *zap.SugaredLogger
}

// WeatherClient is the weather lookup plus its breaker state for /readyz.
type WeatherClient interface {
	advisor.WeatherLookup
	BreakerState() gobreaker.State
}

// WriteHealth reports how long ago the history writer last failed.
type WriteHealth interface {
	LastErrorAge() time.Duration
}

type BrokerHealth interface {
	Connected() bool
}

// Deps are the collaborators the gateway serves. Nil optional deps disable
// the matching feature.
type Deps struct {
	Advisor *advisor.Service
	Weather WeatherClient
	Metrics *Metrics

	History       *history.Reader
	HistoryWriter WriteHealth
	Notifier      BrokerHealth
}

type Gateway struct {
	cfg     Config
	deps    Deps
	log     *zap.SugaredLogger
	metrics *Metrics
	tmpl    *template.Template
	logo    string
}

func NewGateway(cfg Config, deps Deps) (*Gateway, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = DefaultUploadMaxBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	g := &Gateway{cfg: cfg, deps: deps, log: cfg.Logger, metrics: deps.Metrics, tmpl: tmpl}

	// Logo opzionale: se manca la pagina usa solo il titolo
	if dir := strings.TrimSpace(cfg.AssetsDir); dir != "" {
		if fi, err := os.Stat(filepath.Join(dir, "logo.png")); err == nil && !fi.IsDir() {
			g.logo = "/assets/logo.png"
		}
	}
	return g, nil
}

// Router builds the full HTTP surface. Every response carries X-Request-ID,
// including 404s that never reach a route.
func (g *Gateway) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(g.instrument)

	r.HandleFunc("/", g.HandleIndex).Methods(http.MethodGet).Name("index")
	r.HandleFunc("/weed", g.HandleWeedForm).Methods(http.MethodPost).Name("weed")

	r.HandleFunc("/healthz", g.HandleHealth).Methods(http.MethodGet).Name("healthz")
	r.HandleFunc("/readyz", g.HandleReady).Methods(http.MethodGet).Name("readyz")
	r.Handle("/metrics", g.metrics.Handler()).Methods(http.MethodGet).Name("metrics")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/advice", g.HandleAdviceAPI).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/weather", g.HandleWeatherAPI).Methods(http.MethodGet)
	api.HandleFunc("/weed", g.HandleWeedAPI).Methods(http.MethodPost)
	api.HandleFunc("/crops", g.HandleCrops).Methods(http.MethodGet)
	api.Handle("/history", history.NewRecentHandler(g.deps.History)).Methods(http.MethodGet)

	if dir := strings.TrimSpace(g.cfg.AssetsDir); dir != "" {
		r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir(dir))))
	}
	return requestID(r)
}
