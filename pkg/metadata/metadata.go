// Package metadata binds descriptive references to tokens. A reference
// either points at an external URI or carries inline fields that get
// served as a data URI.
package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Ref describes one token. When URI is set it wins; otherwise the
// inline fields are encoded on demand.
type Ref struct {
	URI         string `json:"uri,omitempty" yaml:"uri"`
	Name        string `json:"name,omitempty" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Image       string `json:"image,omitempty" yaml:"image"`
}

// Store maps token ids to their references.
type Store struct {
	refs map[uint64]Ref
}

// NewStore creates an empty metadata store.
func NewStore() *Store {
	return &Store{refs: make(map[uint64]Ref)}
}

// Bind records the reference for a freshly issued token.
func (s *Store) Bind(tokenID uint64, ref Ref) {
	s.refs[tokenID] = ref
}

// Rebind replaces the reference of a token.
func (s *Store) Rebind(tokenID uint64, ref Ref) {
	s.refs[tokenID] = ref
}

// Remove drops the reference of a destroyed token.
func (s *Store) Remove(tokenID uint64) {
	delete(s.refs, tokenID)
}

// Ref returns the reference bound to a token.
func (s *Store) Ref(tokenID uint64) (Ref, bool) {
	ref, ok := s.refs[tokenID]
	return ref, ok
}

// TokenURI renders the reference as a URI. External URIs pass through
// unchanged; inline fields become a base64 data URI.
func (s *Store) TokenURI(tokenID uint64) (string, bool) {
	ref, ok := s.refs[tokenID]
	if !ok {
		return "", false
	}
	if ref.URI != "" {
		return ref.URI, true
	}
	doc, err := json.Marshal(map[string]string{
		"name":        ref.Name,
		"description": ref.Description,
		"image":       ref.Image,
	})
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("data:application/json;base64,%s", base64.StdEncoding.EncodeToString(doc)), true
}
