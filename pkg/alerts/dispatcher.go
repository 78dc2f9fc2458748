package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

// Route sends events matching When to Sink.
type Route struct {
	ID   string
	When Filter
	Sink Sink
}

// Delivery is the result of one route handling an event.
type Delivery struct {
	Route string
	Kind  string
	Err   error
}

// Dispatcher raises alerts for proxy events on every route whose filter
// matches. A nil Dispatcher has no routes.
type Dispatcher struct {
	source      string
	environment string
	routes      []Route
}

// NewDispatcher builds a Dispatcher over prebuilt routes. A route without
// outcomes alerts on failures.
func NewDispatcher(source, environment string, routes ...Route) *Dispatcher {
	d := &Dispatcher{source: source, environment: environment}
	for _, r := range routes {
		if r.Sink == nil {
			continue
		}
		if len(r.When.Outcomes) == 0 {
			r.When.Outcomes = []string{domain.OutcomeFailed}
		}
		d.routes = append(d.routes, r)
	}
	return d
}

// Len returns the number of routes.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.routes)
}

// Dispatch delivers evt to every matching route, one after another, and
// returns what happened per route. The error joins all delivery failures.
func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.ProxyEvent) ([]Delivery, error) {
	if d.Len() == 0 {
		return nil, nil
	}

	var (
		out  []Delivery
		errs []error
	)
	for _, r := range d.routes {
		if !r.When.Match(evt) {
			continue
		}
		err := r.Sink.Deliver(ctx, newAlert(r.ID, d.source, d.environment, evt))
		if err != nil {
			errs = append(errs, fmt.Errorf("alert route %q (%s): %w", r.ID, r.Sink.Kind(), err))
		}
		out = append(out, Delivery{Route: r.ID, Kind: r.Sink.Kind(), Err: err})
	}
	return out, errors.Join(errs...)
}

// Close releases sinks that hold client connections.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, r := range d.routes {
		if c, ok := r.Sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close alert route %q: %w", r.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}
