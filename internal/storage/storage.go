package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

// Package storage provides the local journal of proxied requests.

// Store keeps recent proxy events.
type Store interface {
	Close() error
	Record(evt domain.ProxyEvent) error
	// Recent returns up to limit unexpired events, newest first.
	Recent(limit int) ([]domain.ProxyEvent, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EventTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEventTTL        = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EventTTL <= 0 {
		opts.EventTTL = defaultEventTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                            { return nil }
func (noopStore) Record(domain.ProxyEvent) error          { return nil }
func (noopStore) Recent(int) ([]domain.ProxyEvent, error) { return nil, nil }
