//go:build ignore

// registry-demo.go - End-to-end walkthrough against a running registry server
//
// This script drives the full token lifecycle over the JSON-RPC surface:
// 1. Mint a token each for alice and bob (admin, signature auth)
// 2. Query balances and enumerate holdings
// 3. Transfer alice's token to bob
// 4. Freeze the token and show the policy rejection a holder sees
// 5. Sign an EIP-712 permit as bob and redeem it as alice via transferFrom
// 6. Tail the event journal and print the final /status snapshot
//
// Usage:
//   go run scripts/registry-demo.go -config config.yaml
//   go run scripts/registry-demo.go -config config.yaml -url http://localhost:8080
//
// The default keys are the well-known hardhat dev accounts; the admin key must
// hold the admin and minter roles in the server's genesis file. Operator calls
// authenticate with EIP-191 signature headers, so run the server without a
// jwks URL (or port this script to bearer tokens).

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
	"github.com/unordered-set/liquidaccess-nft/pkg/keys"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
)

// Colors for output
const (
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorCyan   = "\033[0;36m"
	colorReset  = "\033[0m"
)

// Hardhat dev account private keys (0, 1, 2)
const (
	defaultAdminKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	defaultAliceKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	defaultBobKey   = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the server config file (permit domain parameters)")
	serverURL  = flag.String("url", "http://localhost:8080", "Registry server base URL")
	adminKey   = flag.String("admin-key", defaultAdminKey, "Admin private key hex")
	aliceKey   = flag.String("alice-key", defaultAliceKey, "Alice private key hex")
	bobKey     = flag.String("bob-key", defaultBobKey, "Bob private key hex")
)

// RPCRequest represents a JSON-RPC 2.0 request
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// RPCResponse represents a JSON-RPC 2.0 response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const policyRejected = -32003

type statusSnapshot struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	ChainID       uint64 `json:"chain_id"`
	TotalSupply   int    `json:"total_supply"`
	TransferCount uint64 `json:"transfer_count"`
	Cooldown      string `json:"cooldown"`
	Events        int    `json:"events"`
}

func main() {
	flag.Parse()

	printHeader("LiquidAccess Registry Demo")

	cfg, err := config.Load(*configPath)
	if err != nil {
		printError("Failed to load config: %v", err)
		os.Exit(1)
	}

	admin := mustKey("admin", *adminKey)
	alice := mustKey("alice", *aliceKey)
	bob := mustKey("bob", *bobKey)

	adminAddr := mustAddr(admin)
	aliceAddr := mustAddr(alice)
	bobAddr := mustAddr(bob)

	printInfo("admin: %s", adminAddr.Hex())
	printInfo("alice: %s", aliceAddr.Hex())
	printInfo("bob:   %s", bobAddr.Hex())

	// Server must be up before anything else
	printStep("Checking server at %s...", *serverURL)
	status, err := fetchStatus(*serverURL)
	if err != nil {
		printError("Server not reachable: %v", err)
		os.Exit(1)
	}
	printSuccess("Connected to %s (%s), chain %d, supply %d",
		status.Name, status.Symbol, status.ChainID, status.TotalSupply)

	// Step 1: mint one token each for alice and bob
	printStep("Minting tokens...")
	tokenA, err := mint(admin, aliceAddr, "alice's access pass")
	if err != nil {
		printError("Mint for alice failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Minted token %d to alice", tokenA)

	tokenB, err := mint(admin, bobAddr, "bob's access pass")
	if err != nil {
		printError("Mint for bob failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Minted token %d to bob", tokenB)

	// Step 2: query balances and holdings
	printStep("Querying alice's holdings...")
	var balance struct {
		Balance int `json:"balance"`
	}
	if err := call(nil, "registry_balanceOf", map[string]interface{}{"address": aliceAddr.Hex()}, &balance); err != nil {
		printError("balanceOf failed: %v", err)
		os.Exit(1)
	}
	var tokens struct {
		TokenIDs []uint64 `json:"tokenIds"`
	}
	if err := call(nil, "registry_tokensOf", map[string]interface{}{"address": aliceAddr.Hex()}, &tokens); err != nil {
		printError("tokensOf failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Alice holds %d token(s): %v", balance.Balance, tokens.TokenIDs)

	// Step 3: alice transfers her token to bob
	printStep("Transferring token %d from alice to bob...", tokenA)
	if err := call(alice, "registry_transfer", map[string]interface{}{
		"to":      bobAddr.Hex(),
		"tokenId": tokenA,
	}, nil); err != nil {
		printError("Transfer failed: %v", err)
		os.Exit(1)
	}
	var count struct {
		Count uint64 `json:"count"`
	}
	if err := call(nil, "registry_transferCount", nil, &count); err != nil {
		printError("transferCount failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Transferred; global transfer count is now %d", count.Count)

	// Step 4: freeze the token and show the rejection bob gets.
	// Frozen is checked before cooldown, so the error is stable no matter
	// what cooldown the genesis configures.
	printStep("Freezing token %d...", tokenA)
	if err := call(admin, "admin_freeze", map[string]interface{}{"tokenId": tokenA}, nil); err != nil {
		printError("Freeze failed: %v", err)
		os.Exit(1)
	}
	resp, err := rpcCall(*serverURL, bob, "registry_transfer", map[string]interface{}{
		"to":      aliceAddr.Hex(),
		"tokenId": tokenA,
	})
	if err != nil {
		printError("Transfer attempt failed to send: %v", err)
		os.Exit(1)
	}
	switch {
	case resp.Error == nil:
		printError("Transfer of frozen token unexpectedly succeeded")
		os.Exit(1)
	case resp.Error.Code != policyRejected:
		printError("Expected a policy rejection, got %d: %s", resp.Error.Code, resp.Error.Message)
		os.Exit(1)
	default:
		printWarning("Transfer of frozen token rejected as expected: %v", resp.Error.Data)
	}
	if err := call(admin, "admin_unfreeze", map[string]interface{}{"tokenId": tokenA}, nil); err != nil {
		printError("Unfreeze failed: %v", err)
		os.Exit(1)
	}
	var cooldown struct {
		RemainingSeconds int64 `json:"remainingSeconds"`
	}
	if err := call(nil, "registry_cooldownRemaining", map[string]interface{}{"tokenId": tokenA}, &cooldown); err != nil {
		printError("cooldown query failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Unfroze token %d; cooldown remaining %s", tokenA, time.Duration(cooldown.RemainingSeconds)*time.Second)

	// Step 5: permit flow on bob's untouched token. Bob signs an EIP-712
	// permit naming alice, alice submits it and pulls the token over.
	printStep("Running permit flow on token %d...", tokenB)
	var nonce struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := call(nil, "registry_currentNonce", map[string]interface{}{
		"owner":   bobAddr.Hex(),
		"tokenId": tokenB,
	}, &nonce); err != nil {
		printError("currentNonce failed: %v", err)
		os.Exit(1)
	}

	domain := permit.Domain{
		Name:              cfg.Collection.Name,
		Version:           cfg.Collection.Version,
		ChainID:           cfg.Collection.ChainID,
		VerifyingContract: common.HexToAddress(cfg.Collection.ContractAddress),
	}
	p := permit.Permit{
		Owner:    bobAddr,
		Spender:  aliceAddr,
		TokenID:  tokenB,
		Deadline: uint64(time.Now().Add(10 * time.Minute).Unix()),
		Nonce:    nonce.Nonce,
	}
	bobPriv, err := bob.ECDSA()
	if err != nil {
		printError("Failed to load bob's key: %v", err)
		os.Exit(1)
	}
	signature, err := permit.Sign(domain, p, bobPriv)
	if err != nil {
		printError("Permit signing failed: %v", err)
		os.Exit(1)
	}
	printInfo("bob signed permit (nonce %d): %s", p.Nonce, truncate(signature, 26))

	if err := call(nil, "permit_submit", map[string]interface{}{
		"owner":     p.Owner.Hex(),
		"spender":   p.Spender.Hex(),
		"tokenId":   p.TokenID,
		"deadline":  p.Deadline,
		"nonce":     p.Nonce,
		"signature": signature,
	}, nil); err != nil {
		printError("permit_submit failed: %v", err)
		os.Exit(1)
	}

	var approved struct {
		Spender string `json:"spender"`
	}
	if err := call(nil, "registry_approvedFor", map[string]interface{}{"tokenId": tokenB}, &approved); err != nil {
		printError("approvedFor query failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Permit accepted; token %d approval now held by %s", tokenB, approved.Spender)

	if err := call(alice, "registry_transferFrom", map[string]interface{}{
		"from":    bobAddr.Hex(),
		"to":      aliceAddr.Hex(),
		"tokenId": tokenB,
	}, nil); err != nil {
		printError("transferFrom failed: %v", err)
		os.Exit(1)
	}
	printSuccess("Alice redeemed the permit and now owns token %d", tokenB)

	// Step 6: tail the journal and print the final snapshot
	printStep("Tailing event journal...")
	var events struct {
		Events []struct {
			Kind     string    `json:"kind"`
			TokenIDs []uint64  `json:"tokenIds"`
			From     string    `json:"from"`
			To       string    `json:"to"`
			Actor    string    `json:"actor"`
			At       time.Time `json:"at"`
		} `json:"events"`
	}
	if err := call(nil, "registry_events", map[string]interface{}{"limit": 8}, &events); err != nil {
		printError("events query failed: %v", err)
		os.Exit(1)
	}
	for _, ev := range events.Events {
		line := fmt.Sprintf("%-18s tokens=%v", ev.Kind, ev.TokenIDs)
		if ev.From != "" || ev.To != "" {
			line += fmt.Sprintf(" %s -> %s", truncate(ev.From, 10), truncate(ev.To, 10))
		}
		printInfo("%s  %s", ev.At.Format(time.TimeOnly), line)
	}

	status, err = fetchStatus(*serverURL)
	if err != nil {
		printError("Final status failed: %v", err)
		os.Exit(1)
	}
	printHeader("Demo Complete")
	printInfo("supply:    %d", status.TotalSupply)
	printInfo("transfers: %d", status.TransferCount)
	printInfo("cooldown:  %s", status.Cooldown)
	printInfo("events:    %d", status.Events)
}

// call sends a JSON-RPC request and unmarshals the result into out when
// out is non-nil. A nil keypair sends the request unauthenticated; with a
// keypair the EIP-191 signature headers the server expects are attached.
func call(kp *keys.KeyPair, method string, params interface{}, out interface{}) error {
	resp, err := rpcCall(*serverURL, kp, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("RPC error %d: %s (%v)", resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}

func mint(admin *keys.KeyPair, to common.Address, name string) (uint64, error) {
	resp, err := rpcCall(*serverURL, admin, "admin_mint", map[string]interface{}{
		"to": to.Hex(),
		"metadata": map[string]interface{}{
			"uri":  fmt.Sprintf("ipfs://demo/%d", time.Now().UnixNano()),
			"name": name,
		},
	})
	if err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("RPC error %d: %s (%v)", resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	var result struct {
		TokenID uint64 `json:"tokenId"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return 0, fmt.Errorf("failed to parse mint result: %w", err)
	}
	return result.TokenID, nil
}

func rpcCall(url string, kp *keys.KeyPair, method string, params interface{}) (*RPCResponse, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", url+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if kp != nil {
		// EIP-191 personal sign over "method:timestamp"
		message := fmt.Sprintf("%s:%d", method, time.Now().Unix())
		sigHex, err := kp.SignMessage(message)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}
		httpReq.Header.Set("X-Signature", sigHex)
		httpReq.Header.Set("X-Message", message)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (body: %s)", err, string(respBody))
	}
	return &rpcResp, nil
}

func fetchStatus(url string) (*statusSnapshot, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status statusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}

func mustKey(name, hexKey string) *keys.KeyPair {
	kp, err := keys.FromHex(hexKey)
	if err != nil {
		printError("Invalid %s key: %v", name, err)
		os.Exit(1)
	}
	return kp
}

func mustAddr(kp *keys.KeyPair) common.Address {
	addr, err := kp.Address()
	if err != nil {
		printError("Failed to derive address: %v", err)
		os.Exit(1)
	}
	return addr
}

func printHeader(msg string) {
	fmt.Printf("\n%s══════════════════════════════════════════════════════════════════════%s\n", colorBlue, colorReset)
	fmt.Printf("%s  %s%s\n", colorBlue, msg, colorReset)
	fmt.Printf("%s══════════════════════════════════════════════════════════════════════%s\n", colorBlue, colorReset)
}

func printStep(format string, args ...interface{}) {
	fmt.Printf("%s>>> %s%s\n", colorCyan, fmt.Sprintf(format, args...), colorReset)
}

func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	fmt.Printf("    %s\n", fmt.Sprintf(format, args...))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
