// Package roles is a flat capability map for operator accounts. A role
// either is granted to an address or it is not; roles do not imply one
// another.
package roles

import (
	"github.com/ethereum/go-ethereum/common"
)

// Role names a capability.
type Role string

const (
	// RoleAdmin may adjust policy, destroy tokens, rebind metadata, and
	// manage role grants.
	RoleAdmin Role = "admin"
	// RoleMinter may issue new tokens.
	RoleMinter Role = "minter"
)

// Known reports whether the role name is one the registry recognizes.
func Known(r Role) bool {
	return r == RoleAdmin || r == RoleMinter
}

// Store holds role grants per address.
type Store struct {
	grants map[common.Address]map[Role]struct{}
}

// NewStore creates an empty role store.
func NewStore() *Store {
	return &Store{grants: make(map[common.Address]map[Role]struct{})}
}

// Grant gives an address a role. Idempotent.
func (s *Store) Grant(addr common.Address, role Role) {
	held, ok := s.grants[addr]
	if !ok {
		held = make(map[Role]struct{})
		s.grants[addr] = held
	}
	held[role] = struct{}{}
}

// Revoke removes a role from an address. Idempotent.
func (s *Store) Revoke(addr common.Address, role Role) {
	held, ok := s.grants[addr]
	if !ok {
		return
	}
	delete(held, role)
	if len(held) == 0 {
		delete(s.grants, addr)
	}
}

// Has reports whether an address holds a role.
func (s *Store) Has(addr common.Address, role Role) bool {
	_, ok := s.grants[addr][role]
	return ok
}
