package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"wardtrack/server/internal/config"
	"wardtrack/server/internal/gatewaymqtt"
	"wardtrack/server/internal/model"
	"wardtrack/server/internal/registry"
	"wardtrack/server/internal/store"
	"wardtrack/server/internal/tracker"
)

// App wires together the WardTrack services and manages their lifecycle.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	tracker  *tracker.Service
	listener *gatewaymqtt.Listener
	mdns     *zeroconf.Server
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run starts all configured services and blocks until the context is cancelled or an error occurs.
func (a *App) Run(ctx context.Context) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.store = db

	if err := a.store.InitSchema(ctx); err != nil {
		return err
	}

	defer func() {
		if cerr := a.store.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
	}()

	roster, err := a.loadRegistry()
	if err != nil {
		return err
	}
	a.logger.Info("tag roster loaded", "tags", roster.Size())

	a.tracker = tracker.New(roster, a.store, a.cfg.PresenceTimeout, a.logger)

	listener := gatewaymqtt.New(a.logger)
	listener.SetHandler(a.handleUplink)
	listenerErrCh, err := listener.Start(a.cfg.MQTTBindAddress)
	if err != nil {
		return err
	}
	a.listener = listener

	if err := a.startMDNS(); err != nil {
		a.logger.Warn("mDNS advertisement failed", "error", err)
	}
	defer a.stopMDNS()

	httpErrCh := make(chan error, 1)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: a.routes(),
	}

	go func() {
		a.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			a.logger.Info("http server stopped")

			if err := a.listener.Stop(); err != nil {
				return err
			}
			a.logger.Info("gateway mqtt listener stopped")
			return nil
		case err := <-httpErrCh:
			if err != nil {
				_ = a.listener.Stop()
				return err
			}
		case err, ok := <-listenerErrCh:
			if !ok {
				listenerErrCh = nil
				continue
			}
			if err != nil {
				_ = httpServer.Shutdown(context.Background())
				_ = a.listener.Stop()
				return err
			}
		}
	}
}

func (a *App) loadRegistry() (*registry.Registry, error) {
	if a.cfg.RosterPath == "" {
		return registry.Default(), nil
	}
	roster, err := registry.LoadFile(a.cfg.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", a.cfg.RosterPath, err)
	}
	return roster, nil
}

// Gateways publish single sightings to gateways/<id>/sightings and arrays
// to gateways/<id>/sightings/batch.
func (a *App) handleUplink(ctx context.Context, uplink gatewaymqtt.Uplink) {
	switch {
	case strings.HasPrefix(uplink.Topic, "gateways/") && strings.HasSuffix(uplink.Topic, "/sightings/batch"):
		a.handleBatchUplink(ctx, uplink)
	case strings.HasPrefix(uplink.Topic, "gateways/") && strings.HasSuffix(uplink.Topic, "/sightings"):
		a.handleSightingUplink(ctx, uplink)
	default:
		a.logger.Debug("ignoring uplink on unexpected topic", "topic", uplink.Topic)
	}
}

func (a *App) handleSightingUplink(ctx context.Context, uplink gatewaymqtt.Uplink) {
	var raw model.RawPacket
	if err := json.Unmarshal(uplink.Payload, &raw); err != nil {
		a.logger.Warn("uplink payload decode failed", "topic", uplink.Topic, "error", err)
		a.recordIngestionFailure(ctx, uplink, fmt.Errorf("decode payload: %w", err))
		return
	}

	if raw.GatewayIP == "" {
		raw.GatewayIP = remoteHost(uplink.RemoteAddr)
	}

	ingestCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := a.tracker.Ingest(ingestCtx, raw); err != nil {
		a.logger.Warn("uplink ingest failed", "gateway", uplink.GatewayID, "mac", raw.MAC, "error", err)
		a.recordIngestionFailure(ctx, uplink, err)
	}
}

func (a *App) handleBatchUplink(ctx context.Context, uplink gatewaymqtt.Uplink) {
	var packets []model.RawPacket
	if err := json.Unmarshal(uplink.Payload, &packets); err != nil {
		a.logger.Warn("uplink batch decode failed", "topic", uplink.Topic, "error", err)
		a.recordIngestionFailure(ctx, uplink, fmt.Errorf("decode batch payload: %w", err))
		return
	}

	for i := range packets {
		if packets[i].GatewayIP == "" {
			packets[i].GatewayIP = remoteHost(uplink.RemoteAddr)
		}
	}

	ingestCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := a.tracker.IngestBatch(ingestCtx, packets)
	if result.Failed > 0 {
		a.logger.Warn("uplink batch had failures",
			"gateway", uplink.GatewayID,
			"total", result.Total,
			"failed", result.Failed,
		)
	}
}

func (a *App) recordIngestionFailure(ctx context.Context, uplink gatewaymqtt.Uplink, cause error) {
	recCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	failure := model.IngestionFailure{
		GatewayID: uplink.GatewayID,
		Payload:   truncateString(string(uplink.Payload), 4096),
		Error:     cause.Error(),
	}

	if err := a.store.InsertIngestionFailure(recCtx, failure); err != nil {
		a.logger.Error("failed to persist ingestion failure", "error", err)
	}
}

// remoteHost strips the port from a TCP peer address.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
