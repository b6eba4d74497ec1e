package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write genesis file: %v", err)
	}
	return path
}

func TestLoadAndResolve(t *testing.T) {
	path := writeGenesis(t, `
admins:
  - "0x71bE63f3384f5fb98995898A86B02Fb2426c5788"
minters:
  - "0xFABB0ac9d68B0B445fB7357272Ff202C5651694a"
suspended:
  - "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
cooldown: 90s
`)

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	resolved, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved.Admins) != 1 || resolved.Admins[0] != common.HexToAddress("0x71bE63f3384f5fb98995898A86B02Fb2426c5788") {
		t.Errorf("unexpected admins: %v", resolved.Admins)
	}
	if len(resolved.Minters) != 1 || len(resolved.Suspended) != 1 {
		t.Errorf("unexpected minters/suspended: %v / %v", resolved.Minters, resolved.Suspended)
	}
	if resolved.Cooldown != 90*time.Second {
		t.Errorf("expected cooldown 90s, got %s", resolved.Cooldown)
	}
}

func TestLoad_CooldownDefaultsToZero(t *testing.T) {
	path := writeGenesis(t, `
admins:
  - "0x71bE63f3384f5fb98995898A86B02Fb2426c5788"
`)

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	resolved, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Cooldown != 0 {
		t.Errorf("expected zero cooldown, got %s", resolved.Cooldown)
	}
}

func TestLoad_RequiresAdmins(t *testing.T) {
	path := writeGenesis(t, `
minters:
  - "0xFABB0ac9d68B0B445fB7357272Ff202C5651694a"
`)

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for missing admins")
	}
}

func TestLoad_RejectsMalformedAddress(t *testing.T) {
	path := writeGenesis(t, `
admins:
  - "not-an-address"
`)

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for malformed address")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolve_RejectsBadDuration(t *testing.T) {
	g := &Genesis{
		Admins:   []string{"0x71bE63f3384f5fb98995898A86B02Fb2426c5788"},
		Cooldown: "soon",
	}
	if _, err := g.Resolve(); err == nil {
		t.Error("expected error for unparseable cooldown")
	}
}
