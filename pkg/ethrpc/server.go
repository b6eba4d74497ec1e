// Package ethrpc exposes the registry as a read-only ERC-721 contract
// over Ethereum JSON-RPC so stock wallets can display holdings. Writes
// never pass through here; the facade rejects transaction submission.
package ethrpc

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/registry"
)

// Read surface of ERC-721 plus ERC-2981 royalties
const erc721ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getApproved","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"},{"name":"salePrice","type":"uint256"}],"name":"royaltyInfo","outputs":[{"name":"","type":"address"},{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"interfaceId","type":"bytes4"}],"name":"supportsInterface","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Server handles Ethereum JSON-RPC requests for wallet compatibility
type Server struct {
	cfg    *config.RegistryConfig
	svc    *registry.Service
	gate   *sync.Mutex
	logger *zap.Logger

	chainID         *big.Int
	contractAddress common.Address
	erc721ABI       abi.ABI
	rpcServer       *rpc.Server
	startTime       time.Time
}

// NewServer creates a new Ethereum JSON-RPC server. Reads are
// serialized through the same gate as every other registry surface.
func NewServer(
	cfg *config.RegistryConfig,
	svc *registry.Service,
	gate *sync.Mutex,
	logger *zap.Logger,
) (*Server, error) {
	if cfg.Collection.ContractAddress == "" {
		return nil, fmt.Errorf("collection.contract_address is required")
	}

	if !common.IsHexAddress(cfg.Collection.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", cfg.Collection.ContractAddress)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC721 ABI: %w", err)
	}

	s := &Server{
		cfg:             cfg,
		svc:             svc,
		gate:            gate,
		logger:          logger,
		chainID:         new(big.Int).SetUint64(cfg.Collection.ChainID),
		contractAddress: common.HexToAddress(cfg.Collection.ContractAddress),
		erc721ABI:       parsedABI,
		rpcServer:       rpc.NewServer(),
		startTime:       time.Now(),
	}

	ethAPI := NewEthAPI(s)
	if err := s.rpcServer.RegisterName("eth", ethAPI); err != nil {
		return nil, fmt.Errorf("failed to register eth API: %w", err)
	}

	netAPI := NewNetAPI(s)
	if err := s.rpcServer.RegisterName("net", netAPI); err != nil {
		return nil, fmt.Errorf("failed to register net API: %w", err)
	}

	web3API := NewWeb3API()
	if err := s.rpcServer.RegisterName("web3", web3API); err != nil {
		return nil, fmt.Errorf("failed to register web3 API: %w", err)
	}

	logger.Info("Ethereum JSON-RPC facade initialized",
		zap.Uint64("chain_id", cfg.Collection.ChainID),
		zap.String("contract_address", cfg.Collection.ContractAddress))

	return s, nil
}

// ServeHTTP handles HTTP requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.rpcServer.ServeHTTP(w, r)
}
