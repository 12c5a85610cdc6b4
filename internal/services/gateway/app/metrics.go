package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/anuja/internal/model"
)

// Metrics lives on a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	Advisories      *prometheus.CounterVec
	WeatherLookups  *prometheus.CounterVec
	WeedUploads     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Advisories: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anuja_advisories_total",
			Help: "Advisories issued, by crop.",
		}, []string{"crop"}),
		WeatherLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anuja_weather_lookups_total",
			Help: "Weather lookups by outcome.",
		}, []string{"result"}),
		WeedUploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "anuja_weed_uploads_total",
			Help: "Weed image uploads by outcome.",
		}, []string{"result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anuja_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveWeather is passed to the weather client as its observer.
func (m *Metrics) ObserveWeather(result string) {
	m.WeatherLookups.WithLabelValues(result).Inc()
}

// Record implements advisor.Sink.
func (m *Metrics) Record(_ context.Context, evt model.AdvisoryIssuedEvent) error {
	m.Advisories.WithLabelValues(evt.Crop).Inc()
	return nil
}
