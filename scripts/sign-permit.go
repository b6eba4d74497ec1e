//go:build ignore

// sign-permit.go - Sign an EIP-712 transfer permit for a registry token
//
// Usage:
//   go run scripts/sign-permit.go -config config.yaml -key <owner-private-key> \
//     -spender 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 -token 1
//
//   go run scripts/sign-permit.go -config config.yaml -key <owner-private-key> \
//     -spender 0x7099... -token 1 -url http://localhost:8080   # fetch nonce from server
//
// The domain parameters (collection name, version, chain id, contract address)
// come from the same config file the server reads, so the signature verifies
// against a server started with that config. Without -url the nonce defaults
// to -nonce (0 for a token that has never been permitted).
//
// The script prints the signature and a ready-to-post permit_submit request
// body. Submission is open (unauthenticated); the signature itself proves the
// owner authorized the approval.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/keys"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the server config file (domain parameters)")
	keyHex     = flag.String("key", "", "Owner private key hex (with or without 0x prefix)")
	spenderHex = flag.String("spender", "", "Spender address the permit approves")
	tokenID    = flag.Uint64("token", 0, "Token id the permit covers")
	deadlineIn = flag.Duration("deadline", time.Hour, "How long the permit stays valid")
	nonce      = flag.Uint64("nonce", 0, "Permit nonce (ignored when -url is set)")
	serverURL  = flag.String("url", "", "Registry server URL; when set, the current nonce is fetched from it")
)

func main() {
	flag.Parse()

	if *keyHex == "" || *spenderHex == "" || *tokenID == 0 {
		fmt.Fprintln(os.Stderr, "Usage: -key, -spender and -token are required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}

	kp, err := keys.FromHex(*keyHex)
	if err != nil {
		fatalf("Failed to parse private key: %v", err)
	}
	owner, err := kp.Address()
	if err != nil {
		fatalf("Failed to derive owner address: %v", err)
	}

	spender, err := identity.Parse(*spenderHex)
	if err != nil {
		fatalf("Invalid spender address: %v", err)
	}

	domain := permit.Domain{
		Name:              cfg.Collection.Name,
		Version:           cfg.Collection.Version,
		ChainID:           cfg.Collection.ChainID,
		VerifyingContract: common.HexToAddress(cfg.Collection.ContractAddress),
	}

	permitNonce := *nonce
	if *serverURL != "" {
		permitNonce, err = fetchNonce(*serverURL, owner, *tokenID)
		if err != nil {
			fatalf("Failed to fetch nonce from %s: %v", *serverURL, err)
		}
		fmt.Printf("Fetched current nonce from server: %d\n", permitNonce)
	}

	p := permit.Permit{
		Owner:    owner,
		Spender:  spender,
		TokenID:  *tokenID,
		Deadline: uint64(time.Now().Add(*deadlineIn).Unix()),
		Nonce:    permitNonce,
	}

	privateKey, err := kp.ECDSA()
	if err != nil {
		fatalf("Failed to load signing key: %v", err)
	}

	signature, err := permit.Sign(domain, p, privateKey)
	if err != nil {
		fatalf("Failed to sign permit: %v", err)
	}

	fmt.Printf("\nDomain:    %s v%s (chain %d, contract %s)\n",
		domain.Name, domain.Version, domain.ChainID, domain.VerifyingContract.Hex())
	fmt.Printf("Owner:     %s\n", p.Owner.Hex())
	fmt.Printf("Spender:   %s\n", p.Spender.Hex())
	fmt.Printf("Token:     %d\n", p.TokenID)
	fmt.Printf("Deadline:  %d (%s)\n", p.Deadline, time.Unix(int64(p.Deadline), 0).Format(time.RFC3339))
	fmt.Printf("Nonce:     %d\n", p.Nonce)
	fmt.Printf("Signature: %s\n", signature)

	// The permit_submit request body, ready to POST to /rpc.
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "permit_submit",
		"params": map[string]interface{}{
			"owner":     p.Owner.Hex(),
			"spender":   p.Spender.Hex(),
			"tokenId":   p.TokenID,
			"deadline":  p.Deadline,
			"nonce":     p.Nonce,
			"signature": signature,
		},
		"id": 1,
	}
	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fatalf("Failed to encode request body: %v", err)
	}
	fmt.Printf("\npermit_submit request body:\n%s\n", pretty)
}

// fetchNonce asks a running server for the owner's current permit nonce.
// registry_currentNonce is an open method, so no auth headers are needed.
func fetchNonce(url string, owner common.Address, tokenID uint64) (uint64, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "registry_currentNonce",
		"params": map[string]interface{}{
			"owner":   owner.Hex(),
			"tokenId": tokenID,
		},
		"id": 1,
	})
	if err != nil {
		return 0, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url+"/rpc", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int         `json:"code"`
			Message string      `json:"message"`
			Data    interface{} `json:"data"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w (body: %s)", err, string(respBody))
	}
	if rpcResp.Error != nil {
		return 0, fmt.Errorf("RPC error %d: %s (%v)", rpcResp.Error.Code, rpcResp.Error.Message, rpcResp.Error.Data)
	}

	var result struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return 0, fmt.Errorf("failed to parse nonce result: %w", err)
	}
	return result.Nonce, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
