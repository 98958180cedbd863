package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/config"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/coordinator"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/melcloud"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/mqtt"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/publisher"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/server"
)

// ServeCommand assembles the configuration from CLI flags and runs the
// daemon until the context is cancelled.
func ServeCommand(ctx *cli.Context) error {
	cfg := &config.Config{
		MelCloud: &config.MelCloudConfig{
			BaseURL:        ctx.String("melcloud-base-url"),
			Username:       ctx.String("melcloud-username"),
			Password:       ctx.String("melcloud-password"),
			PollInterval:   ctx.Duration("poll-interval"),
			DebounceWindow: ctx.Duration("debounce-window"),
			StaleAfter:     ctx.Int("stale-after"),
		},
		Mqtt: &config.MqttConfig{
			Host:     ctx.String("mqtt-host"),
			ClientID: ctx.String("mqtt-client-id"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
		Server: &config.ServerConfig{
			ListenAddress: ctx.String("listen-address"),
		},
		LogLevel: ctx.String("log-level"),
	}

	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if cfg.Mqtt.Enabled() {
		mqttSvc := mqtt.NewFromConfig(cfg.Mqtt)
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		defer mqttSvc.Disconnect()
		if err := publisher.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
		logger.Info("mqtt publisher registered", zap.String("host", cfg.Mqtt.Host))
	}

	coord := coordinator.New(melcloud.New(cfg.MelCloud.BaseURL), cfg.MelCloud)
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	eg, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:      server.New(coord).Handler(),
		Addr:         cfg.Server.ListenAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	eg.Go(func() error {
		logger.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
