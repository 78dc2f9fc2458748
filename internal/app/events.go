package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
	"github.com/samvad-hq/samvad-devgate/internal/logger"
	"github.com/samvad-hq/samvad-devgate/internal/storage"
	"github.com/samvad-hq/samvad-devgate/pkg/alerts"
)

const defaultPublishTimeout = 5 * time.Second

// EventSink moves proxy events off the request path: hooks enqueue without
// blocking and a single worker journals them and raises alerts.
type EventSink struct {
	queue          chan domain.ProxyEvent
	store          storage.Store
	alerts         *alerts.Dispatcher
	publishTimeout time.Duration
	log            logger.Logger

	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
}

// NewEventSink builds a sink with a queue of the given size.
func NewEventSink(store storage.Store, dispatcher *alerts.Dispatcher, size int, log logger.Logger) *EventSink {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if size <= 0 {
		size = 1
	}
	return &EventSink{
		queue:          make(chan domain.ProxyEvent, size),
		store:          store,
		alerts:         dispatcher,
		publishTimeout: defaultPublishTimeout,
		log:            log,
		done:           make(chan struct{}),
	}
}

// Enqueue hands evt to the worker. It reports false when the queue is full
// and the event was dropped.
func (s *EventSink) Enqueue(evt domain.ProxyEvent) bool {
	select {
	case s.queue <- evt:
		return true
	default:
		n := s.dropped.Add(1)
		s.log.WarnObj("proxy event dropped; queue full", "event_queue", map[string]any{
			"event_id":      evt.ID,
			"dropped_total": n,
			"capacity":      cap(s.queue),
		})
		return false
	}
}

// Dropped returns how many events were discarded so far.
func (s *EventSink) Dropped() int64 { return s.dropped.Load() }

// Run processes events until ctx is cancelled, then drains what is queued.
func (s *EventSink) Run(ctx context.Context) {
	defer s.once.Do(func() { close(s.done) })
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case evt := <-s.queue:
			s.handle(evt)
		}
	}
}

// Done is closed once Run has returned.
func (s *EventSink) Done() <-chan struct{} { return s.done }

func (s *EventSink) drain() {
	for {
		select {
		case evt := <-s.queue:
			s.handle(evt)
		default:
			return
		}
	}
}

func (s *EventSink) handle(evt domain.ProxyEvent) {
	if s.store != nil {
		if err := s.store.Record(evt); err != nil {
			s.log.ErrorObj("proxy event journal write failed", "journal_error", map[string]any{
				"event_id": evt.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.alerts.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
	defer cancel()
	deliveries, _ := s.alerts.Dispatch(ctx, evt)
	for _, d := range deliveries {
		if d.Err != nil {
			s.log.ErrorObj("proxy alert not delivered", "alert_error", map[string]any{
				"event_id": evt.ID,
				"route":    d.Route,
				"sink":     d.Kind,
				"error":    d.Err.Error(),
			})
			continue
		}
		s.log.DebugObj("proxy alert delivered", "alert_delivery", map[string]any{
			"event_id": evt.ID,
			"route":    d.Route,
			"sink":     d.Kind,
		})
	}
}
