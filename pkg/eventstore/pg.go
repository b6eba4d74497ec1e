package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/unordered-set/liquidaccess-nft/pkg/events"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the event store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) InsertEvent(ctx context.Context, ev events.Event) error {
	dao := toEventDao(ev)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (s *pgStore) GetEvent(ctx context.Context, id string) (events.Event, error) {
	dao := new(EventDao)

	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, ErrEventNotFound
		}
		return events.Event{}, fmt.Errorf("failed to get event: %w", err)
	}

	return toEvent(dao), nil
}

func (s *pgStore) ListEvents(ctx context.Context, opts ...QueryOption) ([]events.Event, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []EventDao
	query := s.db.NewSelect().
		Model(&daos).
		Order("occurred_at ASC").
		Order("id ASC")

	if options.Kind != nil {
		query = query.Where("kind = ?", *options.Kind)
	}
	if options.TokenID != nil {
		query = query.Where("? = ANY(token_ids)", *options.TokenID)
	}
	if options.Limit != nil {
		query = query.Limit(*options.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	evs := make([]events.Event, len(daos))
	for i := range daos {
		evs[i] = toEvent(&daos[i])
	}
	return evs, nil
}

func (s *pgStore) CountEvents(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().
		Model((*EventDao)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
