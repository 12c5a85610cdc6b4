package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

// Entry is one issued advisory as read back from InfluxDB.
type Entry struct {
	Time         string   `json:"time"` // RFC3339
	ID           string   `json:"id,omitempty"`
	Crop         string   `json:"crop"`
	City         string   `json:"city,omitempty"`
	Source       string   `json:"source,omitempty"`
	PH           float64  `json:"ph"`
	Moisture     int      `json:"moisture"`
	Temperature  float64  `json:"temperature"`
	WeeksSince   int      `json:"weeks_since"`
	WeatherTempC *float64 `json:"weather_temp_c,omitempty"`
	Seeds        string   `json:"seeds,omitempty"`
}

// RecentQuery selects the advisories issued in the last Minutes, newest
// first. An empty Crop means every crop.
type RecentQuery struct {
	Minutes int
	Limit   int
	Crop    entities.Crop
}

const (
	DefaultRecentMinutes = 24 * 60
	MaxRecentMinutes     = 7 * 24 * 60
	DefaultRecentLimit   = 20
	MaxRecentLimit       = 500

	DefaultQueryTimeout = 2 * time.Second
)

// ParseRecentQuery reads minutes, limit and crop. Values that are not
// positive whole numbers are field errors; larger values are capped.
func ParseRecentQuery(v url.Values) (RecentQuery, error) {
	q := RecentQuery{Minutes: DefaultRecentMinutes, Limit: DefaultRecentLimit}
	var errs []error
	positive := func(k string, dst *int, max int) {
		s := strings.TrimSpace(v.Get(k))
		if s == "" {
			return
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			errs = append(errs, &entities.FieldError{Field: k, Reason: "must be a positive whole number"})
			return
		}
		*dst = min(n, max)
	}
	positive("minutes", &q.Minutes, MaxRecentMinutes)
	positive("limit", &q.Limit, MaxRecentLimit)
	if c := strings.TrimSpace(v.Get("crop")); c != "" {
		q.Crop, _ = entities.ParseCrop(c)
	}
	return q, errors.Join(errs...)
}

// BuildFlux filters on the crop tag before pivoting fields into columns.
func BuildFlux(bucket string, q RecentQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: -%dm)\n", q.Minutes)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", Measurement)
	if q.Crop != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.crop == %q)\n", string(q.Crop))
	}
	b.WriteString(`  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
`)
	fmt.Fprintf(&b, "  |> limit(n: %d)\n", q.Limit)
	return b.String()
}

// Reader runs Flux queries against the advisory bucket.
type Reader struct {
	query   api.QueryAPI
	bucket  string
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewReader(q api.QueryAPI, bucket string, log *zap.SugaredLogger) *Reader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reader{query: q, bucket: bucket, timeout: DefaultQueryTimeout, log: log}
}

// Recent returns matching advisories; each query is capped at the reader timeout.
func (rd *Reader) Recent(ctx context.Context, q RecentQuery) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, rd.timeout)
	defer cancel()

	res, err := rd.query.Query(ctx, BuildFlux(rd.bucket, q))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer func() { _ = res.Close() }()

	out := make([]Entry, 0, q.Limit)
	for res.Next() {
		rec := res.Record()
		out = append(out, EntryFromValues(rec.Time(), rec.Values()))
	}
	if err := res.Err(); err != nil {
		return out, fmt.Errorf("influx iterate: %w", err)
	}
	return out, nil
}

// EntryFromValues maps one pivoted Flux row onto an Entry.
func EntryFromValues(t time.Time, v map[string]interface{}) Entry {
	e := Entry{
		Time:        t.UTC().Format(time.RFC3339),
		ID:          str(v["id"]),
		Crop:        str(v["crop"]),
		City:        str(v["city"]),
		Source:      str(v["source"]),
		PH:          f64(v["ph"]),
		Moisture:    int(f64(v["moisture"])),
		Temperature: f64(v["temperature"]),
		WeeksSince:  int(f64(v["weeks_since"])),
		Seeds:       str(v["seeds"]),
	}
	if raw, ok := v["weather_temp_c"]; ok && raw != nil {
		wt := f64(raw)
		e.WeatherTempC = &wt
	}
	return e
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func f64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}

// NewRecentHandler serves GET /api/v1/history?minutes=&limit=&crop=.
// A nil reader means history is disabled.
func NewRecentHandler(rd *Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if rd == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "history disabled"})
			return
		}
		q, err := ParseRecentQuery(r.URL.Query())
		if err != nil {
			fields := map[string]string{}
			for _, fe := range entities.FieldErrors(err) {
				fields[fe.Field] = fe.Reason
			}
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid query", "fields": fields})
			return
		}

		entries, err := rd.Recent(r.Context(), q)
		if err != nil {
			rd.log.Warnf("history: recent minutes=%d limit=%d crop=%q: %v", q.Minutes, q.Limit, q.Crop, err)
			w.Header().Set("X-Error", "influx-query-error")
			if entries == nil {
				w.WriteHeader(http.StatusBadGateway)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "history unavailable"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(entries)
	})
}
