package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
)

type pageData struct {
	Title     string
	Logo      string
	Crops     []entities.Crop
	Form      formValues
	Errors    map[string]string
	Report    *advisor.Report
	Weed      *WeedResult
	WeedError string
}

func (g *Gateway) newPage() pageData {
	return pageData{Title: AppTitle, Logo: g.logo, Crops: entities.Crops}
}

// HandleIndex renders the form and, when the inputs are valid, the report.
func (g *Gateway) HandleIndex(w http.ResponseWriter, r *http.Request) {
	raw := RequestFromValues(r.URL.Query())
	page := g.newPage()

	in, err := raw.Inputs(g.deps.Advisor.Defaults())
	page.Form = newFormValues(in, raw)
	if err != nil {
		page.Errors = fieldErrorMap(err)
		g.render(w, http.StatusBadRequest, "index.html", page)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.RequestTimeout)
	defer cancel()
	rep, err := g.deps.Advisor.Advise(ctx, in, advisor.SourceForm)
	if err != nil {
		page.Errors = fieldErrorMap(err)
		g.render(w, http.StatusBadRequest, "index.html", page)
		return
	}
	page.Form = newFormValues(rep.Inputs, raw)
	page.Report = &rep
	g.render(w, http.StatusOK, "index.html", page)
}

func (g *Gateway) render(w http.ResponseWriter, code int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := g.tmpl.ExecuteTemplate(w, name, data); err != nil {
		g.log.Errorf("http: render %s: %v", name, err)
	}
}

// HandleAdviceAPI serves GET (query string) and POST (JSON body) /api/v1/advice.
func (g *Gateway) HandleAdviceAPI(w http.ResponseWriter, r *http.Request) {
	var raw AdviceRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
			return
		}
	} else {
		raw = RequestFromValues(r.URL.Query())
	}

	in, err := raw.Inputs(g.deps.Advisor.Defaults())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: fieldErrorMap(err)})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.RequestTimeout)
	defer cancel()
	rep, err := g.deps.Advisor.Advise(ctx, in, advisor.SourceAPI)
	if err != nil {
		if fields := fieldErrorMap(err); fields != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: fields})
			return
		}
		g.log.Errorf("http: advise: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleWeatherAPI looks up one city and returns the weather section.
func (g *Gateway) HandleWeatherAPI(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: advisor.TextEnterCity})
		return
	}
	if g.deps.Weather == nil || !g.deps.Weather.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: advisor.TextNoWeatherKey})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.RequestTimeout)
	defer cancel()
	cur, err := g.deps.Weather.Current(ctx, city)
	if err != nil {
		code := http.StatusBadGateway
		switch {
		case errors.Is(err, weather.ErrEmptyCity):
			code = http.StatusBadRequest
		case errors.Is(err, weather.ErrMissingAPIKey):
			code = http.StatusServiceUnavailable
		case errors.Is(err, weather.ErrCityNotFound):
			code = http.StatusNotFound
		}
		g.log.Infof("http: weather city=%q code=%d: %v", city, code, err)
		writeJSON(w, code, errorBody{Error: advisor.TextWeatherFailed})
		return
	}
	writeJSON(w, http.StatusOK, advisor.BuildWeatherSection(city, true, &cur, nil))
}

func (g *Gateway) HandleCrops(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]entities.Crop{"crops": entities.Crops})
}

type healthStatus struct {
	Status            string  `json:"status"`
	WeatherConfigured bool    `json:"weather_configured"`
	WeatherBreaker    string  `json:"weather_breaker,omitempty"`
	HistoryEnabled    bool    `json:"history_enabled"`
	LastWriteErrorS   float64 `json:"last_write_error_age_sec,omitempty"`
	MQTTEnabled       bool    `json:"mqtt_enabled"`
	MQTTConnected     bool    `json:"mqtt_connected"`
}

// Errori di scrittura più recenti di questa soglia rendono lo stato "degraded".
const writeErrorGrace = 30 * time.Second

func (g *Gateway) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	st := healthStatus{Status: "ok"}
	if g.deps.Weather != nil {
		st.WeatherConfigured = g.deps.Weather.Configured()
		bs := g.deps.Weather.BreakerState()
		st.WeatherBreaker = bs.String()
		if bs == gobreaker.StateOpen {
			st.Status = "degraded"
		}
	}
	if g.deps.HistoryWriter != nil {
		st.HistoryEnabled = true
		age := g.deps.HistoryWriter.LastErrorAge()
		st.LastWriteErrorS = age.Seconds()
		if age < writeErrorGrace {
			st.Status = "degraded"
		}
	}
	if g.deps.Notifier != nil {
		st.MQTTEnabled = true
		st.MQTTConnected = g.deps.Notifier.Connected()
		if !st.MQTTConnected {
			st.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleReady: 503 solo con il breaker meteo aperto.
func (g *Gateway) HandleReady(w http.ResponseWriter, _ *http.Request) {
	ready := g.deps.Weather == nil || g.deps.Weather.BreakerState() != gobreaker.StateOpen
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, struct {
		Ready bool `json:"ready"`
	}{ready})
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
