// Package ledger is the ownership book of the registry. It answers who
// holds which token and enumerates holdings per account in O(1) per
// operation, using a dense per-holder slice plus a reverse index.
//
// The ledger is single-writer and does no locking; the process hosting
// it serializes access.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTokenNotFound is returned when a token id has never been issued or
// has been destroyed.
var ErrTokenNotFound = errors.New("token not found")

// Ledger maps tokens to holders and holders to dense holding lists.
//
// held keeps each holder's token ids in a packed slice; position records
// where inside that slice each token sits, so removal swaps the last
// element into the vacated slot instead of shifting.
type Ledger struct {
	owners   map[uint64]common.Address
	held     map[common.Address][]uint64
	position map[uint64]int
	nextID   uint64
}

// New creates an empty ledger. Token ids start at 1 and are never reused.
func New() *Ledger {
	return &Ledger{
		owners:   make(map[uint64]common.Address),
		held:     make(map[common.Address][]uint64),
		position: make(map[uint64]int),
		nextID:   1,
	}
}

// OwnerOf returns the holder of a token.
func (l *Ledger) OwnerOf(tokenID uint64) (common.Address, error) {
	owner, ok := l.owners[tokenID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	return owner, nil
}

// Exists reports whether a token is currently on the ledger.
func (l *Ledger) Exists(tokenID uint64) bool {
	_, ok := l.owners[tokenID]
	return ok
}

// BalanceOf returns how many tokens an account holds. Unknown accounts
// hold zero.
func (l *Ledger) BalanceOf(addr common.Address) int {
	return len(l.held[addr])
}

// TokensOf returns a copy of the account's holdings. Order reflects
// assignment history reshuffled by removals and is not meaningful.
func (l *Ledger) TokensOf(addr common.Address) []uint64 {
	tokens := l.held[addr]
	out := make([]uint64, len(tokens))
	copy(out, tokens)
	return out
}

// TotalSupply returns the number of tokens currently on the ledger.
// Destroyed tokens do not count.
func (l *Ledger) TotalSupply() int {
	return len(l.owners)
}

// NextID returns the id the next reservation will produce.
func (l *Ledger) NextID() uint64 {
	return l.nextID
}

// ReserveID consumes and returns the next token id. A reserved id is
// spent whether or not a token is ever assigned under it.
func (l *Ledger) ReserveID() uint64 {
	id := l.nextID
	l.nextID++
	return id
}

// ReserveBlock consumes n consecutive ids and returns the first. Ids in
// the block that never get assigned stay unused forever.
func (l *Ledger) ReserveBlock(n int) uint64 {
	first := l.nextID
	l.nextID += uint64(n)
	return first
}

// Assign records a new token under a holder. The id must come from a
// reservation and must not already be on the ledger; assigning a live id
// is a bug in the caller.
func (l *Ledger) Assign(tokenID uint64, to common.Address) {
	if _, ok := l.owners[tokenID]; ok {
		panic(fmt.Sprintf("ledger: assign of live token %d", tokenID))
	}
	l.owners[tokenID] = to
	l.position[tokenID] = len(l.held[to])
	l.held[to] = append(l.held[to], tokenID)
}

// Unassign removes a token from the ledger entirely.
func (l *Ledger) Unassign(tokenID uint64) error {
	owner, ok := l.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	l.removeFromHolder(owner, tokenID)
	delete(l.owners, tokenID)
	return nil
}

// Reassign moves a token to a new holder. The token keeps its id; both
// enumeration lists are updated in place.
func (l *Ledger) Reassign(tokenID uint64, to common.Address) error {
	owner, ok := l.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, tokenID)
	}
	l.removeFromHolder(owner, tokenID)
	l.owners[tokenID] = to
	l.position[tokenID] = len(l.held[to])
	l.held[to] = append(l.held[to], tokenID)
	return nil
}

// removeFromHolder swaps the last token of the holder's list into the
// removed token's slot and shrinks the list by one.
func (l *Ledger) removeFromHolder(owner common.Address, tokenID uint64) {
	tokens := l.held[owner]
	idx := l.position[tokenID]
	last := len(tokens) - 1

	if idx != last {
		moved := tokens[last]
		tokens[idx] = moved
		l.position[moved] = idx
	}
	tokens = tokens[:last]
	if len(tokens) == 0 {
		delete(l.held, owner)
	} else {
		l.held[owner] = tokens
	}
	delete(l.position, tokenID)
}

// Verify walks the ledger and checks that the forward map, the holding
// lists, and the reverse index agree. It returns the first inconsistency
// found, or nil.
func (l *Ledger) Verify() error {
	counted := 0
	for owner, tokens := range l.held {
		for i, id := range tokens {
			actual, ok := l.owners[id]
			if !ok {
				return fmt.Errorf("held token %d missing from owner map", id)
			}
			if actual != owner {
				return fmt.Errorf("token %d listed under %s but owned by %s", id, owner.Hex(), actual.Hex())
			}
			if pos, ok := l.position[id]; !ok || pos != i {
				return fmt.Errorf("token %d at slot %d has position record %d", id, i, pos)
			}
			counted++
		}
	}
	if counted != len(l.owners) {
		return fmt.Errorf("holding lists carry %d tokens, owner map has %d", counted, len(l.owners))
	}
	for id := range l.owners {
		if id >= l.nextID {
			return fmt.Errorf("token %d is live but above the id watermark %d", id, l.nextID)
		}
	}
	return nil
}

// LiveTokens returns every token id on the ledger in ascending order.
func (l *Ledger) LiveTokens() []uint64 {
	ids := make([]uint64, 0, len(l.owners))
	for id := range l.owners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
