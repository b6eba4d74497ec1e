package eventstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/unordered-set/liquidaccess-nft/pkg/events"
)

// EventDao is a data access object that maps directly to the 'registry_events' table in PostgreSQL.
type EventDao struct {
	bun.BaseModel `bun:"table:registry_events,alias:re"`
	ID            string    `bun:"id,pk,type:varchar(36)"`
	Kind          string    `bun:"kind,notnull,type:varchar(32)"`
	TokenIDs      []int64   `bun:"token_ids,array"`
	FromAddress   *string   `bun:"from_address,type:varchar(42)"`
	ToAddress     *string   `bun:"to_address,type:varchar(42)"`
	Actor         *string   `bun:"actor,type:varchar(42)"`
	Detail        *string   `bun:"detail,type:varchar(255)"`
	Sequence      int64     `bun:"sequence,notnull,default:0"`
	Supply        int64     `bun:"supply,notnull,default:0"`
	OccurredAt    time.Time `bun:"occurred_at,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toEventDao converts an events.Event to EventDao.
func toEventDao(ev events.Event) *EventDao {
	dao := &EventDao{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		Sequence:   int64(ev.Sequence),
		Supply:     int64(ev.Supply),
		OccurredAt: ev.At,
	}

	if len(ev.TokenIDs) > 0 {
		dao.TokenIDs = make([]int64, len(ev.TokenIDs))
		for i, id := range ev.TokenIDs {
			dao.TokenIDs[i] = int64(id)
		}
	}
	if ev.From != "" {
		dao.FromAddress = &ev.From
	}
	if ev.To != "" {
		dao.ToAddress = &ev.To
	}
	if ev.Actor != "" {
		dao.Actor = &ev.Actor
	}
	if ev.Detail != "" {
		dao.Detail = &ev.Detail
	}

	return dao
}

// toEvent converts an EventDao to events.Event.
func toEvent(dao *EventDao) events.Event {
	ev := events.Event{
		ID:       dao.ID,
		Kind:     events.Kind(dao.Kind),
		Sequence: uint64(dao.Sequence),
		Supply:   uint64(dao.Supply),
		At:       dao.OccurredAt,
	}

	if len(dao.TokenIDs) > 0 {
		ev.TokenIDs = make([]uint64, len(dao.TokenIDs))
		for i, id := range dao.TokenIDs {
			ev.TokenIDs[i] = uint64(id)
		}
	}
	if dao.FromAddress != nil {
		ev.From = *dao.FromAddress
	}
	if dao.ToAddress != nil {
		ev.To = *dao.ToAddress
	}
	if dao.Actor != nil {
		ev.Actor = *dao.Actor
	}
	if dao.Detail != nil {
		ev.Detail = *dao.Detail
	}

	return ev
}
