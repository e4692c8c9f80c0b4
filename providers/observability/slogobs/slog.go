package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// Observer implements observability.Provider on top of Go's standard
// library slog. Spans become paired start/end debug events carrying the
// elapsed duration, metrics are kept in an in-memory store and logged on
// update, and log calls map one-to-one onto slog levels.
type Observer struct {
	logger  *slog.Logger
	metrics *metricsStore
}

// Compile-time check that Observer implements observability.Provider.
var _ observability.Provider = (*Observer)(nil)

// New creates a slog-backed observer. With no options it logs to the
// default slog logger at INFO level.
//
// Example:
//
//	observer := slogobs.New(
//	    slogobs.WithLevel(slog.LevelDebug),
//	)
func New(opts ...Option) *Observer {
	cfg := applyOptions(opts...)

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(cfg.output, &slog.HandlerOptions{
			Level: cfg.level,
		}))
	}

	return &Observer{
		logger:  logger,
		metrics: newMetricsStore(),
	}
}

// --- TRACING ---

// StartSpan begins a named span, logging a debug event at its start. The
// returned span logs its duration and accumulated attributes when End is
// called.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     attrs,
	}

	o.logger.LogAttrs(ctx, slog.LevelDebug, "span started", spanLogAttrs(name, "span.start", attrs)...)

	return ctx, span
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	attrs  []observability.Attribute
	status observability.StatusCode
	desc   string
	err    error
}

// End completes the span, logging its duration and final status.
func (s *slogSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	level := slog.LevelDebug
	if s.status == observability.StatusError {
		level = slog.LevelWarn
	}

	logAttrs := spanLogAttrs(s.name, "span.end", s.attrs)
	logAttrs = append(logAttrs, slog.Duration("duration", time.Since(s.startTime)))
	if s.desc != "" {
		logAttrs = append(logAttrs, slog.String("status", s.desc))
	}
	if s.err != nil {
		logAttrs = append(logAttrs, slog.String("error", s.err.Error()))
	}
	s.logger.LogAttrs(context.Background(), level, "span ended", logAttrs...)
}

func (s *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *slogSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
	s.desc = description
}

func (s *slogSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	logAttrs := spanLogAttrs(s.name, name, attrs)
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span event", logAttrs...)
}

func spanLogAttrs(span, event string, attrs []observability.Attribute) []slog.Attr {
	logAttrs := make([]slog.Attr, 0, len(attrs)+2)
	logAttrs = append(logAttrs,
		slog.String("span", span),
		slog.String("event", event),
	)
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	return logAttrs
}

// --- METRICS ---

// metricsStore keeps counter and histogram values in memory. Values are
// retained only so repeated updates log a running total; there is no export.
type metricsStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMetricsStore() *metricsStore {
	return &metricsStore{counters: make(map[string]int64)}
}

// Counter returns a named counter that logs its running total on Add.
func (o *Observer) Counter(name string) observability.Counter {
	return &slogCounter{name: name, observer: o}
}

// Histogram returns a named histogram that logs each recorded value.
func (o *Observer) Histogram(name string) observability.Histogram {
	return &slogHistogram{name: name, observer: o}
}

type slogCounter struct {
	name     string
	observer *Observer
}

func (c *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.observer.metrics.mu.Lock()
	c.observer.metrics.counters[c.name] += value
	total := c.observer.metrics.counters[c.name]
	c.observer.metrics.mu.Unlock()

	logAttrs := spanLogAttrs(c.name, "metric.counter", attrs)
	logAttrs = append(logAttrs, slog.Int64("value", value), slog.Int64("total", total))
	c.observer.logger.LogAttrs(ctx, slog.LevelDebug, "counter", logAttrs...)
}

type slogHistogram struct {
	name     string
	observer *Observer
}

func (h *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	logAttrs := spanLogAttrs(h.name, "metric.histogram", attrs)
	logAttrs = append(logAttrs, slog.Float64("value", value))
	h.observer.logger.LogAttrs(ctx, slog.LevelDebug, "histogram", logAttrs...)
}

// --- LOGGING ---

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, level, msg, logAttrs...)
}
