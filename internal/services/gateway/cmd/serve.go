package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
	"github.com/LeonardoBeccarini/anuja/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/anuja/internal/services/history"
	"github.com/LeonardoBeccarini/anuja/internal/services/notifier"
	"github.com/LeonardoBeccarini/anuja/internal/services/weather"
	"github.com/LeonardoBeccarini/anuja/pkg/rabbitmq"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web form, JSON API and gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg, c.log)
		},
	}
}

func serve(ctx context.Context, cfg Config, log *zap.SugaredLogger) error {
	loc, err := cfg.location()
	if err != nil {
		return err
	}
	table, err := advisor.LoadTable()
	if err != nil {
		return err
	}

	metrics := app.NewMetrics()
	wc := weather.NewClient(cfg.weatherClientConfig(),
		weather.WithLogger(log),
		weather.WithObserver(metrics.ObserveWeather),
	)
	if !wc.Configured() {
		log.Warnf("weather: no OpenWeatherMap key, lookups disabled")
	}

	sinks := []advisor.Sink{metrics}
	deps := app.Deps{Weather: wc, Metrics: metrics}

	// === InfluxDB (opzionale) ===
	if cfg.Influx.URL != "" {
		opts := influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.Influx.Batch)).
			SetFlushInterval(uint(cfg.Influx.FlushMS))
		influx := influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token, opts)
		defer influx.Close()

		writer := history.NewWriter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), log)
		sinks = append(sinks, writer)
		deps.HistoryWriter = writer
		deps.History = history.NewReader(influx.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket, log)
		log.Infof("history: writing to %s bucket=%s", cfg.Influx.URL, cfg.Influx.Bucket)
	}

	// === MQTT (opzionale) ===
	if cfg.Rabbit.Host != "" {
		rc := cfg.rabbitConfig()
		client, err := rabbitmq.NewRabbitMQConn(ctx, &rc, log)
		if err != nil {
			// il form funziona anche senza broker
			log.Warnf("notifier: disabled: %v", err)
		} else {
			pub := rabbitmq.NewPublisher(client).
				WithTimeout(time.Duration(cfg.Rabbit.PublishMS) * time.Millisecond)
			defer pub.Close()
			n := notifier.New(pub, cfg.Rabbit.TopicTemplate, log)
			sinks = append(sinks, n)
			deps.Notifier = n
		}
	}

	svc := advisor.NewService(table, wc,
		advisor.WithSinks(sinks...),
		advisor.WithLocation(loc),
		advisor.WithServiceLogger(log),
	)
	deps.Advisor = svc

	gw, err := app.NewGateway(app.Config{
		AssetsDir:      cfg.AssetsDir,
		UploadMaxBytes: cfg.UploadMaxBytes,
		RequestTimeout: time.Duration(cfg.Weather.TimeoutMS)*time.Millisecond + 5*time.Second,
		Logger:         log,
	}, deps)
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var (
		gs  *grpc.Server
		hsv *health.Server
		lis net.Listener
	)
	if cfg.GRPCAddr != "" {
		lis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		gs = grpc.NewServer()
		advisor.RegisterAdvisoryServer(gs, advisor.NewGrpcHandler(svc))
		hsv = health.NewServer()
		healthpb.RegisterHealthServer(gs, hsv)
		hsv.SetServingStatus(advisor.AdvisoryServiceName, healthpb.HealthCheckResponse_SERVING)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("http: listening on %s", cfg.HTTPAddr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if gs != nil {
		g.Go(func() error {
			log.Infof("grpc: listening on %s", cfg.GRPCAddr)
			if err := gs.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Infof("anuja: shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if gs != nil {
			hsv.Shutdown()
			gs.GracefulStop()
		}
		return hs.Shutdown(sctx)
	})

	return g.Wait()
}
