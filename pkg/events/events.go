// Package events is the registry's audit trail. Every state change
// appends exactly one event; external observers reconstruct history
// from the journal alone.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a registry event type.
type Kind string

const (
	KindMinted          Kind = "minted"
	KindBatchMinted     Kind = "batch_minted"
	KindTransferred     Kind = "transferred"
	KindBurned          Kind = "burned"
	KindApproved        Kind = "approved"
	KindPermitUsed      Kind = "permit_used"
	KindSuspended       Kind = "suspended"
	KindUnsuspended     Kind = "unsuspended"
	KindFrozen          Kind = "frozen"
	KindUnfrozen        Kind = "unfrozen"
	KindCooldownSet     Kind = "cooldown_set"
	KindMetadataRebound Kind = "metadata_rebound"
	KindRoyaltySet      Kind = "royalty_set"
	KindRoleGranted     Kind = "role_granted"
	KindRoleRevoked     Kind = "role_revoked"
)

// Event records one registry state change. Detail carries the
// kind-specific payload that has no structured field, like a cooldown
// duration or a role name.
type Event struct {
	ID       string
	Kind     Kind
	TokenIDs []uint64
	From     string
	To       string
	Actor    string
	Detail   string
	Sequence uint64
	Supply   uint64
	At       time.Time
}

// Journal is an append-only in-memory event log with fan-out to
// subscribers.
//
// Unlike the registry core, the journal locks internally: exporters
// read it from their own goroutines while the serialized writer
// appends.
type Journal struct {
	mu   sync.Mutex
	log  []Event
	subs map[int]chan Event
	next int
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{subs: make(map[int]chan Event)}
}

// Append stamps the event with an id and timestamp and records it.
// Subscribers with full buffers miss the event rather than block the
// writer.
func (j *Journal) Append(ev Event) Event {
	ev.ID = uuid.NewString()
	ev.At = time.Now().UTC()

	j.mu.Lock()
	defer j.mu.Unlock()
	j.log = append(j.log, ev)
	for _, ch := range j.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// List returns a copy of the journal in append order.
func (j *Journal) List() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, len(j.log))
	copy(out, j.log)
	return out
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.log)
}

// Subscribe registers a buffered listener for future events. The
// returned function unsubscribes and closes the channel.
func (j *Journal) Subscribe(buffer int) (<-chan Event, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.next
	j.next++
	ch := make(chan Event, buffer)
	j.subs[id] = ch

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if sub, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
