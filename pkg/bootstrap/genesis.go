// Package bootstrap loads the genesis file: the operator set and
// starting policy a registry is born with. Genesis is applied exactly
// once, at construction, before any role checks exist.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/unordered-set/liquidaccess-nft/pkg/registry"
)

// Genesis is the on-disk form of the initial registry state.
type Genesis struct {
	Admins    []string `yaml:"admins" validate:"required,min=1,dive,eth_addr"`
	Minters   []string `yaml:"minters" validate:"omitempty,dive,eth_addr"`
	Suspended []string `yaml:"suspended" validate:"omitempty,dive,eth_addr"`
	Cooldown  string   `yaml:"cooldown" default:"0s"`
}

// Load reads, defaults, and validates a genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file: %w", err)
	}
	if err := defaults.Set(&g); err != nil {
		return nil, fmt.Errorf("failed to apply genesis defaults: %w", err)
	}
	if err := validator.New().Struct(&g); err != nil {
		return nil, fmt.Errorf("genesis validation failed: %w", err)
	}
	return &g, nil
}

// Resolve converts the file form into the typed genesis the registry
// is constructed with.
func (g *Genesis) Resolve() (registry.Genesis, error) {
	cooldown, err := time.ParseDuration(g.Cooldown)
	if err != nil {
		return registry.Genesis{}, fmt.Errorf("invalid genesis cooldown %q: %w", g.Cooldown, err)
	}

	out := registry.Genesis{Cooldown: cooldown}
	if out.Admins, err = parseAddresses(g.Admins); err != nil {
		return registry.Genesis{}, fmt.Errorf("invalid genesis admin: %w", err)
	}
	if out.Minters, err = parseAddresses(g.Minters); err != nil {
		return registry.Genesis{}, fmt.Errorf("invalid genesis minter: %w", err)
	}
	if out.Suspended, err = parseAddresses(g.Suspended); err != nil {
		return registry.Genesis{}, fmt.Errorf("invalid genesis suspension: %w", err)
	}
	return out, nil
}

func parseAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%q is not an address", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}
