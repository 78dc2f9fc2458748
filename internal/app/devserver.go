package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-devgate/internal/config"
	"github.com/samvad-hq/samvad-devgate/internal/devproxy"
	"github.com/samvad-hq/samvad-devgate/internal/domain"
	"github.com/samvad-hq/samvad-devgate/internal/logger"
	"github.com/samvad-hq/samvad-devgate/internal/server"
	"github.com/samvad-hq/samvad-devgate/internal/storage"
	"github.com/samvad-hq/samvad-devgate/pkg/alerts"
)

const shutdownTimeout = 10 * time.Second

// DevServer is the development HTTP server runtime. It proxies API prefixes
// to the backend, serves the built front-end for everything else and keeps a
// journal of proxied requests.
type DevServer struct {
	cfg     *config.Config
	log     logger.Logger
	rules   []devproxy.Rule
	handler http.Handler
	sink    *EventSink
	store   storage.Store
	alerts  *alerts.Dispatcher
}

// NewDevServer builds the dev server from config.
func NewDevServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*DevServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := devproxy.ResolveTargetOrigin(cfg.TargetOrigin)
	if err != nil {
		return nil, fmt.Errorf("resolve target origin: %w", err)
	}
	rules, err := devproxy.LoadRules(cfg.ProxyRulesFile, target)
	if err != nil {
		return nil, fmt.Errorf("load proxy rules: %w", err)
	}

	ruleIDs := make([]string, len(rules))
	for i, r := range rules {
		ruleIDs[i] = r.ID
	}
	dispatcher, err := openAlerts(ctx, cfg, ruleIDs, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		EventTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"event_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	sink := NewEventSink(store, dispatcher, cfg.EventQueueSize, log)
	for i := range rules {
		rules[i] = withHooks(rules[i], cfg, sink, log)
	}

	var fallback http.Handler
	if cfg.StaticDir != "" {
		spa, err := server.NewSPAHandler(cfg.StaticDir)
		if err != nil {
			store.Close()
			dispatcher.Close()
			return nil, fmt.Errorf("init static handler: %w", err)
		}
		fallback = spa
	}

	proxy, err := devproxy.NewHandler(rules, fallback, log)
	if err != nil {
		store.Close()
		dispatcher.Close()
		return nil, fmt.Errorf("init proxy handler: %w", err)
	}

	root := server.WithAdmin(server.NewAdminHandler(store), proxy)

	ruleSummaries := make([]map[string]any, 0, len(rules))
	for _, r := range proxy.Rules() {
		ruleSummaries = append(ruleSummaries, map[string]any{
			"id":            r.ID,
			"prefix":        r.PathPrefix,
			"target":        r.Target.String(),
			"change_origin": r.ChangeOrigin,
		})
	}
	log.InfoObj("proxy rules loaded", "proxy_rules", map[string]any{
		"count": len(ruleSummaries),
		"rules": ruleSummaries,
		"debug": cfg.Debug,
	})

	return &DevServer{
		cfg:     cfg,
		log:     log,
		rules:   proxy.Rules(),
		handler: root,
		sink:    sink,
		store:   store,
		alerts:  dispatcher,
	}, nil
}

// Handler returns the root HTTP handler.
func (d *DevServer) Handler() http.Handler { return d.handler }

// Rules returns the proxy rules in match order.
func (d *DevServer) Rules() []devproxy.Rule { return d.rules }

// Sink returns the event pipeline fed by the proxy hooks.
func (d *DevServer) Sink() *EventSink { return d.sink }

// Run serves until the context is cancelled, then shuts down gracefully.
func (d *DevServer) Run(ctx context.Context) error {
	if d == nil || d.handler == nil {
		return fmt.Errorf("dev server is not initialized")
	}
	defer d.close()

	sinkCtx, stopSink := context.WithCancel(context.Background())
	go d.sink.Run(sinkCtx)
	defer func() {
		stopSink()
		<-d.sink.Done()
	}()

	srv := &http.Server{
		Addr:              d.cfg.ListenAddr,
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverError := make(chan error, 1)
	go func() {
		d.log.InfoObj("dev server listening", "dev_server", map[string]any{
			"addr":       d.cfg.ListenAddr,
			"static_dir": d.cfg.StaticDir,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		d.log.InfoObj("dev server shutting down", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		d.log.InfoObj("dev server stopped", "dropped_events", d.sink.Dropped())
		return nil
	case err := <-serverError:
		return fmt.Errorf("server error: %w", err)
	}
}

// close releases the journal and alert sinks, logging any errors encountered.
func (d *DevServer) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.ErrorObj("storage close failed", "error", err)
		}
	}
	if err := d.alerts.Close(); err != nil {
		d.log.ErrorObj("alert sinks close failed", "error", err)
	}
}

// openAlerts reads the alerts section from AlertsFile, or from the proxy
// rules file when AlertsFile is unset. No file means no alerts.
func openAlerts(ctx context.Context, cfg *config.Config, ruleIDs []string, log logger.Logger) (*alerts.Dispatcher, error) {
	path := cfg.AlertsFile
	if path == "" {
		path = cfg.ProxyRulesFile
	}
	if path == "" {
		return alerts.NewDispatcher(cfg.AppName, cfg.Env), nil
	}

	routes, err := alerts.Load(path, ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	dispatcher, err := alerts.Open(ctx, routes, cfg.AppName, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("open alert sinks: %w", err)
	}

	summaries := make([]map[string]any, 0, len(routes))
	for _, rc := range routes {
		summaries = append(summaries, map[string]any{
			"id":         rc.ID,
			"sink":       rc.Sink,
			"outcomes":   rc.When.Outcomes,
			"rules":      rc.When.Rules,
			"min_status": rc.When.MinStatus,
		})
	}
	log.InfoObj("alert routes loaded", "alert_routes", map[string]any{
		"file":   path,
		"count":  len(summaries),
		"routes": summaries,
	})
	return dispatcher, nil
}

// withHooks attaches the console diagnostics and the event pipeline to rule.
func withHooks(rule devproxy.Rule, cfg *config.Config, sink *EventSink, log logger.Logger) devproxy.Rule {
	rule.OnRequest = devproxy.ChainRequestHooks(rule.OnRequest, devproxy.DebugOnRequest(log, cfg.Debug))
	rule.OnError = devproxy.ChainErrorHooks(
		rule.OnError,
		devproxy.BannerOnError(log, cfg.BackendStartHint),
		func(rule devproxy.Rule, r *http.Request, err error) {
			evt := newProxyEvent(rule, r, domain.OutcomeFailed)
			evt.Error = err.Error()
			sink.Enqueue(evt)
		},
	)
	prev := rule.OnResponse
	rule.OnResponse = func(rule devproxy.Rule, r *http.Request, resp *http.Response) {
		if prev != nil {
			prev(rule, r, resp)
		}
		evt := newProxyEvent(rule, r, domain.OutcomeProxied)
		evt.Status = resp.StatusCode
		sink.Enqueue(evt)
	}
	return rule
}

func newProxyEvent(rule devproxy.Rule, r *http.Request, outcome string) domain.ProxyEvent {
	now := time.Now()
	evt := domain.ProxyEvent{
		ID:         devproxy.RequestID(r.Context()),
		RuleID:     rule.ID,
		Method:     r.Method,
		Path:       r.URL.Path,
		Target:     rule.Target.String(),
		Outcome:    outcome,
		OccurredAt: now.UTC(),
	}
	if started := devproxy.StartedAt(r.Context()); !started.IsZero() {
		evt.DurationMs = now.Sub(started).Milliseconds()
	}
	return evt
}
