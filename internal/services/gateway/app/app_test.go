package app

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
)

type fakeWeather struct {
	configured bool
	w          entities.Weather
	err        error
	state      gobreaker.State
}

func (f *fakeWeather) Configured() bool { return f.configured }
func (f *fakeWeather) Current(context.Context, string) (entities.Weather, error) {
	return f.w, f.err
}
func (f *fakeWeather) BreakerState() gobreaker.State { return f.state }

type fakeHealth struct {
	age       time.Duration
	connected bool
}

func (f fakeHealth) LastErrorAge() time.Duration { return f.age }
func (f fakeHealth) Connected() bool             { return f.connected }

var fixedNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func sunnyPune() entities.Weather {
	return entities.Weather{
		City: "Pune", Country: "IN",
		TempC: ptr(31.4), TempMinC: ptr(24), TempMaxC: ptr(33), Humidity: ptr(48),
		Description: "scattered clouds",
	}
}

type testEnv struct {
	gw      *Gateway
	h       http.Handler
	metrics *Metrics
	weather *fakeWeather
}

func newTestEnv(t *testing.T, cfg Config, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	table, err := advisor.LoadTable()
	require.NoError(t, err)

	fw := &fakeWeather{configured: true, w: sunnyPune(), state: gobreaker.StateClosed}
	m := NewMetrics()
	svc := advisor.NewService(table, fw,
		advisor.WithNow(func() time.Time { return fixedNow }),
		advisor.WithLocation(time.UTC),
		advisor.WithSinks(m),
	)
	deps := Deps{Advisor: svc, Weather: fw, Metrics: m}
	for _, f := range mutate {
		f(&deps)
	}
	cfg.Logger = zaptest.NewLogger(t).Sugar()
	gw, err := NewGateway(cfg, deps)
	require.NoError(t, err)
	return &testEnv{gw: gw, h: gw.Router(), metrics: m, weather: fw}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.get("/healthz")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crops", nil)
	req.Header.Set(requestIDHeader, "rid-42")
	assert.Equal(t, "rid-42", env.do(req).Header().Get(requestIDHeader))

	rec = env.get("/no/such/route")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestIndex_DefaultsRender(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Soil pH: 6.5")
	assert.Contains(t, body, "Temp: 25.0 °C")
	assert.Contains(t, body, "Planting Date: 15 Jul 2025")
	assert.Contains(t, body, advisor.TextSoilBalanced)
	assert.Contains(t, body, advisor.TextWaterOften)
	assert.Contains(t, body, "Week 1")
	assert.Contains(t, body, "Week 4")
	assert.Contains(t, body, advisor.TextEnterCity)
	assert.Contains(t, body, `value="Wheat" selected`)
	assert.NotContains(t, body, `class="logo"`)
}

func TestIndex_WithCityAndLogo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png"), 0o600))
	env := newTestEnv(t, Config{AssetsDir: dir})

	rec := env.get("/?ph=5.2&moisture=50&temperature=36&crop=tomato&plant_date=2025-06-01&city=Pune")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, advisor.TextSoilAcidic)
	assert.Contains(t, body, advisor.TextHighTemp)
	assert.Contains(t, body, advisor.TextWaterDaily)
	assert.Contains(t, body, "Week 7")
	assert.Contains(t, body, "Recommend: "+advisor.SeedsHot)
	assert.Contains(t, body, `value="Tomato" selected`)
	assert.Contains(t, body, `src="/assets/logo.png"`)

	assets := env.get("/assets/logo.png")
	assert.Equal(t, http.StatusOK, assets.Code)
	assert.Equal(t, "png", assets.Body.String())
}

func TestIndex_CropSelection(t *testing.T) {
	env := newTestEnv(t, Config{})

	body := env.get("/?crop=Barley").Body.String()
	assert.Contains(t, body, `<option value="Barley" selected>Barley</option>`)
	assert.NotContains(t, body, `value="Wheat" selected`)
	assert.Contains(t, body, "Crop: Barley")

	rec := env.get("/?crop=rice&ph=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Rice" selected`)
	assert.NotContains(t, rec.Body.String(), `value="rice"`)
}

func TestIndex_InvalidInputs(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.get("/?ph=abc&moisture=12.5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a number")
	assert.Contains(t, rec.Body.String(), "must be a whole number")
	assert.Contains(t, rec.Body.String(), `value="abc"`)

	rec = env.get("/?ph=12")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be between 3.5 and 9.0")
}

func TestAdviceAPI_Get(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.get("/api/v1/advice?ph=8.5&moisture=45&crop=RICE&city=%20Pune%20")
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[advisor.Report](t, rec)
	assert.Equal(t, entities.CropRice, rep.Inputs.Crop)
	assert.Equal(t, "Pune", rep.Inputs.City)
	assert.Equal(t, advisor.TextSoilAlkaline, rep.Suggestions[0].Text)
	assert.Equal(t, advisor.TextFertAlkaline, rep.Fertilizer.Text)
	assert.Equal(t, advisor.SeedsHot, rep.Weather.Seeds)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Advisories.WithLabelValues("Rice")))
}

func TestAdviceAPI_PostAcceptsStringNumbers(t *testing.T) {
	env := newTestEnv(t, Config{})
	body := `{"ph":"7","moisture":45,"temperature":"36.5","crop":"Sugarcane","plant_date":"2025-07-01"}`
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/advice", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rep := decode[advisor.Report](t, rec)
	assert.Equal(t, 7.0, rep.Inputs.PH)
	assert.Equal(t, 36.5, rep.Inputs.Temperature)
	assert.Equal(t, 2, rep.WeeksSince)
	assert.Equal(t, advisor.TextWaterDaily, rep.Watering.Text)
	assert.Equal(t, "Week 3", rep.Planner[0].Label)
}

func TestAdviceAPI_PostInvalid(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/advice", strings.NewReader(`{"ph":20,"moisture":101,"crop":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	eb := decode[errorBody](t, rec)
	assert.Contains(t, eb.Fields, "ph")
	assert.Contains(t, eb.Fields, "moisture")
	assert.Contains(t, eb.Fields, "crop")

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/advice", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/advice", strings.NewReader(`{"ph":true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a number", decode[errorBody](t, rec).Fields["ph"])
}

func TestAdviceAPI_ReportsParseAndRangeErrorsTogether(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.get("/api/v1/advice?ph=abc&moisture=200&temperature=-3")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{
		"ph":          "must be a number",
		"moisture":    "must be between 0 and 100",
		"temperature": "must be between 0.0 and 50.0",
	}, decode[errorBody](t, rec).Fields)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Advisories.WithLabelValues("Wheat")))

	rec = env.get("/?ph=abc&moisture=200")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a number")
	assert.Contains(t, rec.Body.String(), "must be between 0 and 100")
}

func TestAdviceRequest_InputsSkipsRangeCheckForUnparsedField(t *testing.T) {
	defaults := entities.DefaultFieldInputs(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	in, err := AdviceRequest{"ph": "abc", "moisture": "101", "crop": "Rice"}.Inputs(defaults)
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"ph":       "must be a number",
		"moisture": "must be between 0 and 100",
	}, fieldErrorMap(err))
	assert.Equal(t, entities.DefaultPH, in.PH)

	_, err = AdviceRequest{"ph": "6.5", "crop": "Rice"}.Inputs(defaults)
	assert.NoError(t, err)
}

func TestWeatherAPI_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		target     string
		configured bool
		err        error
		want       int
	}{
		{"empty city", "/api/v1/weather?city=%20", true, nil, http.StatusBadRequest},
		{"no key", "/api/v1/weather?city=Pune", false, nil, http.StatusServiceUnavailable},
		{"not found", "/api/v1/weather?city=Atlantis", true, weather.ErrCityNotFound, http.StatusNotFound},
		{"upstream", "/api/v1/weather?city=Pune", true, &weather.StatusError{Code: 500}, http.StatusBadGateway},
		{"breaker open", "/api/v1/weather?city=Pune", true, gobreaker.ErrOpenState, http.StatusBadGateway},
		{"ok", "/api/v1/weather?city=Pune", true, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			env.weather.configured = tc.configured
			env.weather.err = tc.err
			rec := env.get(tc.target)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWeatherAPI_Success(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.get("/api/v1/weather?city=Pune")
	require.Equal(t, http.StatusOK, rec.Code)

	ws := decode[advisor.WeatherSection](t, rec)
	assert.True(t, ws.Requested)
	assert.Equal(t, advisor.SeedsHot, ws.Seeds)
	require.NotNil(t, ws.Weather)
	assert.Equal(t, "IN", ws.Weather.Country)
	require.NotNil(t, ws.ET0MM)
	assert.Greater(t, *ws.ET0MM, 0.0)
}

func TestCropsAndHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, Config{})

	crops := decode[map[string][]string](t, env.get("/api/v1/crops"))
	assert.Equal(t, []string{"Wheat", "Rice", "Tomato", "Soybean", "Sugarcane", "Millets"}, crops["crops"])

	assert.Equal(t, http.StatusServiceUnavailable, env.get("/api/v1/history").Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, Config{})
	st := decode[healthStatus](t, env.get("/healthz"))
	assert.Equal(t, "ok", st.Status)
	assert.True(t, st.WeatherConfigured)
	assert.False(t, st.HistoryEnabled)
	assert.Equal(t, http.StatusOK, env.get("/readyz").Code)

	env.weather.state = gobreaker.StateOpen
	st = decode[healthStatus](t, env.get("/healthz"))
	assert.Equal(t, "degraded", st.Status)
	assert.Equal(t, "open", st.WeatherBreaker)
	assert.Equal(t, http.StatusServiceUnavailable, env.get("/readyz").Code)
}

func TestHealth_OptionalComponents(t *testing.T) {
	env := newTestEnv(t, Config{}, func(d *Deps) {
		d.HistoryWriter = fakeHealth{age: time.Second}
		d.Notifier = fakeHealth{connected: true}
	})
	st := decode[healthStatus](t, env.get("/healthz"))
	assert.Equal(t, "degraded", st.Status)
	assert.True(t, st.HistoryEnabled)
	assert.True(t, st.MQTTConnected)

	env = newTestEnv(t, Config{}, func(d *Deps) {
		d.HistoryWriter = fakeHealth{age: time.Hour}
		d.Notifier = fakeHealth{connected: false}
	})
	st = decode[healthStatus](t, env.get("/healthz"))
	assert.Equal(t, "degraded", st.Status)
	assert.True(t, st.MQTTEnabled)
	assert.False(t, st.MQTTConnected)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestWeedAPI(t *testing.T) {
	env := newTestEnv(t, Config{UploadMaxBytes: 4096})

	rec := env.do(uploadRequest(t, "/api/v1/weed", "leaf.PNG", pngBytes(t, 3, 2)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[WeedResult](t, rec)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, 3, res.Width)
	assert.Equal(t, 2, res.Height)
	assert.Equal(t, WeedDetected, res.Detected)
	assert.Equal(t, WeedPesticide, res.Pesticide)

	rec = env.do(uploadRequest(t, "/api/v1/weed", "leaf.gif", pngBytes(t, 1, 1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(uploadRequest(t, "/api/v1/weed", "leaf.jpg", []byte("not an image")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(uploadRequest(t, "/api/v1/weed", "big.png", bytes.Repeat([]byte{0x1}, 8192)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/weed", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WeedUploads.WithLabelValues(uploadOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.WeedUploads.WithLabelValues(uploadRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WeedUploads.WithLabelValues(uploadTooLarge)))
}

func TestWeedForm_RendersImage(t *testing.T) {
	env := newTestEnv(t, Config{})
	rec := env.do(uploadRequest(t, "/weed", "weed.png", pngBytes(t, 4, 4)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `src="data:image/png;base64,`)
	assert.Contains(t, body, "Detected weed: "+WeedDetected)
	assert.Contains(t, body, "Suggested pesticide: ")

	rec = env.do(uploadRequest(t, "/weed", "weed.bmp", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload jpg or png")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.get("/api/v1/crops")

	rec := env.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `anuja_http_request_duration_seconds_count{code="200",route="/api/v1/crops"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestWeatherObserverFeedsMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveWeather(weather.ResultHit)
	m.ObserveWeather(weather.ResultHit)
	m.ObserveWeather(weather.ResultNotFound)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WeatherLookups.WithLabelValues(weather.ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherLookups.WithLabelValues(weather.ResultNotFound)))
	assert.Equal(t, 0, testutil.CollectAndCount(m.Advisories))
}
