// Package app wires configuration into a runnable dispatch service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/helperlink/dispatch/api"
	"github.com/helperlink/dispatch/config"
	"github.com/helperlink/dispatch/core/dispatch"
	coremetrics "github.com/helperlink/dispatch/core/metrics"
	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/infra/logger"
	"github.com/helperlink/dispatch/infra/metrics"
	"github.com/helperlink/dispatch/infra/mqtt"
	"github.com/helperlink/dispatch/infra/store"
	"github.com/helperlink/dispatch/internal/eventbus"
)

// Service bundles the orchestrator with its HTTP surface.
type Service struct {
	Orchestrator *dispatch.Orchestrator
	Store        dispatch.Store

	bus         eventbus.EventBus
	channel     *mqtt.Channel
	sqlite      *store.SQLite
	log         logger.Logger
	httpAddr    string
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	svc := &Service{
		log:         logg,
		httpAddr:    cfg.HTTP.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}

	switch cfg.Store.Backend {
	case "sqlite":
		db, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		svc.sqlite = db
		svc.Store = db
	default:
		svc.Store = store.NewMemory()
	}

	var channel notify.Channel
	if cfg.MQTT.Enabled {
		ch, err := mqtt.NewChannel(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt channel: %w", err)
		}
		svc.channel = ch
		channel = ch
	} else {
		channel = notify.LogChannel{Log: logger.New("push")}
	}

	var sinks []coremetrics.BroadcastSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.BroadcastSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	fanout, err := notify.NewFanout(channel, logger.New("fanout"))
	if err != nil {
		return nil, err
	}

	svc.bus = eventbus.New()
	orch, err := dispatch.NewOrchestrator(svc.Store, fanout, svc.bus, sink, logger.New("dispatch"), cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	svc.Orchestrator = orch
	return svc, nil
}

// Run serves the API until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{
		Addr:    s.httpAddr,
		Handler: api.NewRouter(s.Orchestrator, s.Store),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("listening on %s", s.httpAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.channel != nil {
		s.channel.Close()
	}
	if s.sqlite != nil {
		return s.sqlite.Close()
	}
	return nil
}
