// Package royalty tracks resale fee terms: one collection-wide default
// plus per-token overrides, expressed in basis points of the sale price.
package royalty

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxBasisPoints is the whole of a sale price.
const MaxBasisPoints = 10000

// ErrFeeTooHigh is returned when a fee exceeds MaxBasisPoints.
var ErrFeeTooHigh = errors.New("royalty exceeds 100%")

// Info is one royalty term.
type Info struct {
	Recipient   common.Address
	BasisPoints uint32
}

// Store holds the collection default and per-token overrides.
type Store struct {
	collection *Info
	perToken   map[uint64]Info
}

// NewStore creates an empty royalty store.
func NewStore() *Store {
	return &Store{perToken: make(map[uint64]Info)}
}

// SetDefault sets the collection-wide royalty term.
func (s *Store) SetDefault(info Info) error {
	if info.BasisPoints > MaxBasisPoints {
		return fmt.Errorf("%w: %d bps", ErrFeeTooHigh, info.BasisPoints)
	}
	s.collection = &info
	return nil
}

// SetToken sets an override for one token.
func (s *Store) SetToken(tokenID uint64, info Info) error {
	if info.BasisPoints > MaxBasisPoints {
		return fmt.Errorf("%w: %d bps", ErrFeeTooHigh, info.BasisPoints)
	}
	s.perToken[tokenID] = info
	return nil
}

// Remove drops the override of a destroyed token. The collection
// default is unaffected.
func (s *Store) Remove(tokenID uint64) {
	delete(s.perToken, tokenID)
}

// For returns the term applying to a token: the override when present,
// else the collection default.
func (s *Store) For(tokenID uint64) (Info, bool) {
	if info, ok := s.perToken[tokenID]; ok {
		return info, true
	}
	if s.collection != nil {
		return *s.collection, true
	}
	return Info{}, false
}

// Amount computes the fee owed on a sale. Sale prices arrive as decimal
// strings so asset precision is never lost to floats.
func (s *Store) Amount(tokenID uint64, salePrice string) (common.Address, string, error) {
	info, ok := s.For(tokenID)
	if !ok {
		return common.Address{}, "0", nil
	}
	price, err := decimal.NewFromString(salePrice)
	if err != nil {
		return common.Address{}, "", fmt.Errorf("invalid sale price %q: %w", salePrice, err)
	}
	if price.IsNegative() {
		return common.Address{}, "", fmt.Errorf("sale price must not be negative: %s", salePrice)
	}
	fee := price.Mul(decimal.NewFromInt(int64(info.BasisPoints))).Div(decimal.NewFromInt(MaxBasisPoints))
	return info.Recipient, fee.String(), nil
}
