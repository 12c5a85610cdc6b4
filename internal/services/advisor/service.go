package advisor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/anuja/internal/model"
	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

// Report sources.
const (
	SourceForm = "http"
	SourceAPI  = "api"
	SourceGRPC = "grpc"
	SourceCLI  = "cli"
)

// WeatherLookup restituisce le condizioni attuali per una città.
type WeatherLookup interface {
	Configured() bool
	Current(ctx context.Context, city string) (entities.Weather, error)
}

// Sink receives every issued advisory (history log, notifier).
type Sink interface {
	Record(ctx context.Context, evt model.AdvisoryIssuedEvent) error
}

type Service struct {
	table   *Table
	weather WeatherLookup
	sinks   []Sink
	loc     *time.Location
	now     func() time.Time
	log     *zap.SugaredLogger
}

type ServiceOption func(*Service)

func WithSinks(s ...Sink) ServiceOption {
	return func(svc *Service) { svc.sinks = append(svc.sinks, s...) }
}

func WithLocation(loc *time.Location) ServiceOption {
	return func(svc *Service) {
		if loc != nil {
			svc.loc = loc
		}
	}
}

func WithNow(now func() time.Time) ServiceOption { return func(svc *Service) { svc.now = now } }

func WithServiceLogger(l *zap.SugaredLogger) ServiceOption {
	return func(svc *Service) { svc.log = l }
}

// NewService wires the table and an optional weather lookup (nil disables weather).
func NewService(table *Table, wl WeatherLookup, opts ...ServiceOption) *Service {
	s := &Service{
		table:   table,
		weather: wl,
		loc:     time.Local,
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the current date in the service time zone.
func (s *Service) Today() time.Time {
	return entities.DateOf(s.now().In(s.loc))
}

// Defaults returns the form defaults for today.
func (s *Service) Defaults() entities.FieldInputs {
	return entities.DefaultFieldInputs(s.Today())
}

func (s *Service) Table() *Table { return s.table }

// Advise validates the inputs, applies the rule table, looks up weather
// when a city is given and records the advisory to every sink.
func (s *Service) Advise(ctx context.Context, in entities.FieldInputs, source string) (Report, error) {
	in.City = strings.TrimSpace(in.City)
	in.Crop, _ = entities.ParseCrop(string(in.Crop))
	if err := in.Validate(); err != nil {
		return Report{}, err
	}

	today := s.Today()
	crop := s.table.Crop(in.Crop)
	rep := Report{
		Inputs:      in,
		Summary:     Summary(in),
		Suggestions: SoilSuggestions(in.PH, in.Moisture, in.Temperature),
		Fertilizer:  FertilizerGuide(in.PH),
		Watering:    WateringSchedule(in.Moisture, in.Temperature),
		Supplement:  Notice{LevelInfo, crop.Supplement},
		WeeksSince:  WeeksSince(in.PlantDate, today),
		Planner:     Planner(crop, in.PlantDate, today),
		IssuedAt:    s.now().UTC(),
	}
	rep.Weather = s.weatherSection(ctx, in.City)

	s.record(ctx, rep, source)
	return rep, nil
}

func (s *Service) weatherSection(ctx context.Context, city string) WeatherSection {
	if city == "" {
		return BuildWeatherSection("", false, nil, nil)
	}
	if s.weather == nil || !s.weather.Configured() {
		return BuildWeatherSection(city, false, nil, nil)
	}
	w, err := s.weather.Current(ctx, city)
	if err != nil {
		s.log.Infof("advisor: weather city=%q unavailable: %v", city, err)
		return BuildWeatherSection(city, true, nil, err)
	}
	return BuildWeatherSection(city, true, &w, nil)
}

func (s *Service) record(ctx context.Context, rep Report, source string) {
	if len(s.sinks) == 0 {
		return
	}
	evt := model.AdvisoryIssuedEvent{
		ID:          uuid.NewString(),
		Crop:        string(rep.Inputs.Crop),
		City:        rep.Inputs.City,
		PH:          rep.Inputs.PH,
		Moisture:    rep.Inputs.Moisture,
		Temperature: rep.Inputs.Temperature,
		WeeksSince:  rep.WeeksSince,
		Seeds:       rep.Weather.Seeds,
		Source:      source,
		Timestamp:   rep.IssuedAt,
	}
	if rep.Weather.Weather != nil {
		evt.WeatherTempC = rep.Weather.Weather.TempC
	}
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, evt); err != nil {
			s.log.Warnf("advisor: sink %T failed for %s: %v", sink, evt.ID, err)
		}
	}
}
