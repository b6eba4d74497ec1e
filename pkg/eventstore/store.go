package eventstore

import (
	"context"
	"errors"

	"github.com/unordered-set/liquidaccess-nft/pkg/events"
)

// ErrEventNotFound is returned when an event lookup finds no matching record.
var ErrEventNotFound = errors.New("event not found")

// Store defines the interface for journal event persistence.
// The exporter writes through it; auditors and external consumers read.
type Store interface {
	InsertEvent(ctx context.Context, ev events.Event) error
	GetEvent(ctx context.Context, id string) (events.Event, error)
	ListEvents(ctx context.Context, opts ...QueryOption) ([]events.Event, error)
	CountEvents(ctx context.Context) (int, error)
}

// QueryOptions defines options for querying events
type QueryOptions struct {
	Kind    *string
	TokenID *int64
	Limit   *int
}

// QueryOption is a functional option for querying events
type QueryOption func(*QueryOptions)

// WithKind filters events by kind
func WithKind(kind events.Kind) QueryOption {
	return func(opts *QueryOptions) {
		k := string(kind)
		opts.Kind = &k
	}
}

// WithToken filters events touching the given token
func WithToken(tokenID uint64) QueryOption {
	return func(opts *QueryOptions) {
		id := int64(tokenID)
		opts.TokenID = &id
	}
}

// WithLimit caps the number of returned events
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		opts.Limit = &limit
	}
}
