package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
)

type adviseFlags struct {
	ph          float64
	moisture    int
	temperature float64
	crop        string
	planted     string
	city        string
	asJSON      bool
	remote      string
	timeout     time.Duration
}

func newAdviseCmd(c *cli) *cobra.Command {
	f := &adviseFlags{}
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Print farming advice for one field",
		Example: `  anuja advise --ph 5.4 --moisture 22 --crop Rice --city Pune
  anuja advise --remote localhost:9090 --crop Tomato --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()

			rep, err := runAdvise(ctx, c, f)
			if err != nil {
				if fes := entities.FieldErrors(err); len(fes) > 0 {
					for _, fe := range fes {
						fmt.Fprintf(cmd.ErrOrStderr(), "invalid %s: %s\n", fe.Field, fe.Reason)
					}
					return fmt.Errorf("invalid input")
				}
				return err
			}

			out := cmd.OutOrStdout()
			if f.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			_, err = fmt.Fprintln(out, renderReport(rep))
			return err
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&f.ph, "ph", entities.DefaultPH, "soil pH (3.5-9.0)")
	fl.IntVar(&f.moisture, "moisture", entities.DefaultMoisture, "soil moisture % (0-100)")
	fl.Float64Var(&f.temperature, "temperature", entities.DefaultTemperature, "ambient temperature °C (0-50)")
	fl.StringVar(&f.crop, "crop", string(entities.DefaultCrop), "crop name")
	fl.StringVar(&f.planted, "planted", "", "planting date YYYY-MM-DD (default today)")
	fl.StringVar(&f.city, "city", "", "city for the live weather report")
	fl.BoolVar(&f.asJSON, "json", false, "print the report as JSON")
	fl.StringVar(&f.remote, "remote", "", "ask a running server over gRPC (host:port)")
	fl.DurationVar(&f.timeout, "timeout", 20*time.Second, "overall timeout")
	return cmd
}

func (f *adviseFlags) inputs(today time.Time) (entities.FieldInputs, error) {
	in := entities.DefaultFieldInputs(today)
	in.PH = f.ph
	in.Moisture = f.moisture
	in.Temperature = f.temperature
	in.Crop = entities.Crop(f.crop)
	in.City = f.city
	if p := strings.TrimSpace(f.planted); p != "" {
		d, err := time.ParseInLocation(entities.DateLayout, p, today.Location())
		if err != nil {
			return in, &entities.FieldError{Field: "plant_date", Reason: "must be a date (YYYY-MM-DD)"}
		}
		in.PlantDate = d
	}
	return in, nil
}

func runAdvise(ctx context.Context, c *cli, f *adviseFlags) (advisor.Report, error) {
	if f.remote != "" {
		cc, err := grpc.NewClient(f.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return advisor.Report{}, fmt.Errorf("grpc dial %s: %w", f.remote, err)
		}
		defer cc.Close()
		// la data di default la decide il server
		in, err := f.inputs(time.Now())
		if err != nil {
			return advisor.Report{}, err
		}
		if strings.TrimSpace(f.planted) == "" {
			in.PlantDate = time.Time{}
		}
		return advisor.NewGrpcClient(cc).Advise(ctx, in)
	}

	loc, err := c.cfg.location()
	if err != nil {
		return advisor.Report{}, err
	}
	table, err := advisor.LoadTable()
	if err != nil {
		return advisor.Report{}, err
	}
	wc := weather.NewClient(c.cfg.weatherClientConfig(), weather.WithLogger(c.log))
	svc := advisor.NewService(table, wc, advisor.WithLocation(loc), advisor.WithServiceLogger(c.log))

	in, err := f.inputs(svc.Today())
	if err != nil {
		return advisor.Report{}, err
	}
	return svc.Advise(ctx, in, advisor.SourceCLI)
}
