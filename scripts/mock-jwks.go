// mock-jwks.go - JWKS endpoint and operator token issuer for local testing
//
// Usage:
//   go run scripts/mock-jwks.go
//
// Point the server at it with:
//   jwks:
//     url: http://localhost:8089/jwks.json
//     issuer: http://localhost:8089
//
// POST /token with an evm_address form field (or JSON body) returns an RS256
// JWT carrying that address as the operator identity. The signing key is
// generated fresh on every start, so tokens die with the process. Not for
// production use.

package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	port   = 8089
	keyID  = "registry-local-1"
	issuer = "http://localhost:8089"

	// Hardhat dev account 0, the usual local admin
	defaultAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var signingKey *rsa.PrivateKey

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func main() {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	http.HandleFunc("/jwks.json", handleJWKS)
	http.HandleFunc("/token", handleToken)
	http.HandleFunc("/health", handleHealth)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Mock JWKS server starting on http://localhost%s", addr)
	log.Printf("GET  /jwks.json - JSON Web Key Set (point the server's jwks.url here)")
	log.Printf("POST /token     - Returns an RS256 operator JWT (evm_address param)")
	log.Printf("GET  /health    - Health check")
	log.Fatal(http.ListenAndServe(addr, nil))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := &signingKey.PublicKey
	jwks := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kid": keyID,
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jwks)
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse form data or JSON body
	contentType := r.Header.Get("Content-Type")
	var address string

	if strings.Contains(contentType, "application/json") {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Failed to parse JSON body", http.StatusBadRequest)
			return
		}
		address = body["evm_address"]
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		address = r.FormValue("evm_address")
	}

	if address == "" {
		address = defaultAddress
	}

	tokenString, err := signOperatorToken(address)
	if err != nil {
		log.Printf("Failed to sign token: %v", err)
		http.Error(w, "Failed to sign token", http.StatusInternalServerError)
		return
	}

	resp := tokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   86400, // 24 hours
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)

	log.Printf("Issued token for evm_address=%s", address)
}

func signOperatorToken(address string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":         issuer,
		"sub":         address,
		"evm_address": address,
		"iat":         now.Unix(),
		"exp":         now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID

	return token.SignedString(signingKey)
}
