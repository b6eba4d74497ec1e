package ethrpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
)

// Wallets want a plausible block gas limit even though nothing here
// consumes gas
const blockGasLimit = 30_000_000

// EthAPI implements the eth_* JSON-RPC namespace
type EthAPI struct {
	server *Server
}

// NewEthAPI creates a new EthAPI instance
func NewEthAPI(server *Server) *EthAPI {
	return &EthAPI{server: server}
}

// ChainId returns the chain ID (EIP-155)
func (api *EthAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.server.cfg.Collection.ChainID)
}

// BlockNumber returns a synthetic block height that advances about once
// a second, so wallets see confirmations accumulate even though there
// is no block production behind the registry.
func (api *EthAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.latestBlockNumber())
}

func (api *EthAPI) latestBlockNumber() uint64 {
	return 1 + uint64(time.Since(api.server.startTime).Seconds())
}

// GasPrice returns the configured gas price
func (api *EthAPI) GasPrice() (*hexutil.Big, error) {
	gasPrice := new(big.Int)
	gasPrice.SetString(api.server.cfg.EthRPC.GasPriceWei, 10)
	return (*hexutil.Big)(gasPrice), nil
}

// MaxPriorityFeePerGas returns the suggested priority fee (EIP-1559)
func (api *EthAPI) MaxPriorityFeePerGas() (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(1000000000)), nil
}

// GetBalance returns zero for every address. Holders never pay gas
// here, and a zero balance keeps wallets from offering to send ETH.
func (api *EthAPI) GetBalance(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(0)), nil
}

// GetTransactionCount returns zero since no transactions originate here
func (api *EthAPI) GetTransactionCount(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	return 0, nil
}

// GetCode returns placeholder bytecode for the collection address so
// wallets trust it as a contract
func (api *EthAPI) GetCode(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	if address == api.server.contractAddress {
		return hexutil.Bytes{0x60, 0x80}, nil
	}
	return hexutil.Bytes{}, nil
}

// Syncing returns false (always synced)
func (api *EthAPI) Syncing() (interface{}, error) {
	return false, nil
}

// SendRawTransaction always rejects. Transfers, permits, and every
// other mutation go through the registry RPC surface where policy
// rejections come back with their reasons intact.
func (api *EthAPI) SendRawTransaction(ctx context.Context, data hexutil.Bytes) (common.Hash, error) {
	api.server.logger.Warn("Rejected transaction on read-only facade",
		zap.Int("size", len(data)))
	return common.Hash{}, fmt.Errorf("transaction submission is not supported: use the registry RPC endpoint")
}

// Call executes a read-only contract call against the registry
func (api *EthAPI) Call(ctx context.Context, args CallArgs, blockNrOrHash rpc.BlockNumberOrHash, overrides *map[common.Address]interface{}) (hexutil.Bytes, error) {
	if args.To == nil || *args.To != api.server.contractAddress {
		api.server.logger.Warn("eth_call to unknown contract",
			zap.String("to", func() string {
				if args.To == nil {
					return "<nil>"
				}
				return args.To.Hex()
			}()))
		return nil, fmt.Errorf("unsupported contract")
	}

	input := args.GetData()
	if len(input) < 4 {
		return nil, fmt.Errorf("missing function selector")
	}

	method, err := api.server.erc721ABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown method")
	}

	api.server.logger.Debug("eth_call dispatch", zap.String("method", method.Name))

	// Reads hold the writer gate like every other registry surface
	api.server.gate.Lock()
	defer api.server.gate.Unlock()

	switch method.Name {
	case "name":
		return encodeString(api.server.svc.Name())
	case "symbol":
		return encodeString(api.server.svc.Symbol())
	case "totalSupply":
		return encodeUint256(big.NewInt(int64(api.server.svc.TotalSupply())))
	case "balanceOf":
		return api.callBalanceOf(input[4:])
	case "ownerOf":
		return api.callOwnerOf(input[4:])
	case "tokenURI":
		return api.callTokenURI(input[4:])
	case "getApproved":
		return api.callGetApproved(input[4:])
	case "royaltyInfo":
		return api.callRoyaltyInfo(input[4:])
	case "supportsInterface":
		return api.callSupportsInterface(input[4:])
	default:
		return nil, fmt.Errorf("unsupported method: %s", method.Name)
	}
}

func (api *EthAPI) callBalanceOf(data []byte) (hexutil.Bytes, error) {
	method := api.server.erc721ABI.Methods["balanceOf"]
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data); err != nil {
		return nil, err
	}

	addr, ok := args["owner"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("invalid owner address")
	}

	return encodeUint256(big.NewInt(int64(api.server.svc.BalanceOf(addr))))
}

func (api *EthAPI) callOwnerOf(data []byte) (hexutil.Bytes, error) {
	tokenID, err := api.unpackTokenID("ownerOf", data)
	if err != nil {
		return nil, err
	}

	owner, err := api.server.svc.OwnerOf(tokenID)
	if err != nil {
		return nil, revertError(err)
	}
	return encodeAddress(owner)
}

func (api *EthAPI) callTokenURI(data []byte) (hexutil.Bytes, error) {
	tokenID, err := api.unpackTokenID("tokenURI", data)
	if err != nil {
		return nil, err
	}

	// Tokens without bound metadata report an empty URI
	uri, err := api.server.svc.TokenURI(tokenID)
	if err != nil {
		return nil, revertError(err)
	}
	return encodeString(uri)
}

func (api *EthAPI) callGetApproved(data []byte) (hexutil.Bytes, error) {
	tokenID, err := api.unpackTokenID("getApproved", data)
	if err != nil {
		return nil, err
	}

	// The zero address means no approval outstanding
	approved, err := api.server.svc.ApprovedFor(tokenID)
	if err != nil {
		return nil, revertError(err)
	}
	return encodeAddress(approved)
}

func (api *EthAPI) callRoyaltyInfo(data []byte) (hexutil.Bytes, error) {
	method := api.server.erc721ABI.Methods["royaltyInfo"]
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data); err != nil {
		return nil, err
	}

	rawID, ok := args["tokenId"].(*big.Int)
	if !ok || !rawID.IsUint64() {
		return nil, fmt.Errorf("invalid token id")
	}
	salePrice, ok := args["salePrice"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid sale price")
	}

	receiver, amountStr, err := api.server.svc.RoyaltyInfo(rawID.Uint64(), salePrice.String())
	if err != nil {
		return nil, revertError(err)
	}

	// The registry quotes royalties as decimal strings; the wire wants
	// an integer wei amount, so fractions truncate
	amountDec, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse royalty amount: %w", err)
	}

	return encodeAddressUint256(receiver, amountDec.BigInt())
}

func (api *EthAPI) callSupportsInterface(data []byte) (hexutil.Bytes, error) {
	method := api.server.erc721ABI.Methods["supportsInterface"]
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data); err != nil {
		return nil, err
	}

	id, ok := args["interfaceId"].([4]byte)
	if !ok {
		return nil, fmt.Errorf("invalid interface id")
	}

	supported := map[[4]byte]bool{
		{0x01, 0xff, 0xc9, 0xa7}: true, // ERC-165
		{0x80, 0xac, 0x58, 0xcd}: true, // ERC-721
		{0x5b, 0x5e, 0x13, 0x9f}: true, // ERC-721 metadata
		{0x2a, 0x55, 0x20, 0x5a}: true, // ERC-2981 royalties
	}
	return encodeBool(supported[id])
}

func (api *EthAPI) unpackTokenID(methodName string, data []byte) (uint64, error) {
	method := api.server.erc721ABI.Methods[methodName]
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data); err != nil {
		return 0, err
	}

	rawID, ok := args["tokenId"].(*big.Int)
	if !ok || !rawID.IsUint64() {
		return 0, fmt.Errorf("invalid token id")
	}
	return rawID.Uint64(), nil
}

// revertError renders a registry error the way wallets expect a failed
// eth_call to read
func revertError(err error) error {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Errorf("execution reverted: %s", svcErr.Message)
	}
	return fmt.Errorf("execution reverted: %v", err)
}

func encodeUint256(v *big.Int) (hexutil.Bytes, error) {
	uint256Type, _ := abi.NewType("uint256", "", nil)
	args := abi.Arguments{{Type: uint256Type}}
	return args.Pack(v)
}

func encodeString(s string) (hexutil.Bytes, error) {
	stringType, _ := abi.NewType("string", "", nil)
	args := abi.Arguments{{Type: stringType}}
	return args.Pack(s)
}

func encodeAddress(addr common.Address) (hexutil.Bytes, error) {
	addressType, _ := abi.NewType("address", "", nil)
	args := abi.Arguments{{Type: addressType}}
	return args.Pack(addr)
}

func encodeBool(b bool) (hexutil.Bytes, error) {
	boolType, _ := abi.NewType("bool", "", nil)
	args := abi.Arguments{{Type: boolType}}
	return args.Pack(b)
}

func encodeAddressUint256(addr common.Address, v *big.Int) (hexutil.Bytes, error) {
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	args := abi.Arguments{{Type: addressType}, {Type: uint256Type}}
	return args.Pack(addr, v)
}

// RPCBlock represents a block in JSON-RPC format
type RPCBlock struct {
	Number           hexutil.Uint64   `json:"number"`
	Hash             common.Hash      `json:"hash"`
	ParentHash       common.Hash      `json:"parentHash"`
	Nonce            types.BlockNonce `json:"nonce"`
	Sha3Uncles       common.Hash      `json:"sha3Uncles"`
	LogsBloom        types.Bloom      `json:"logsBloom"`
	TransactionsRoot common.Hash      `json:"transactionsRoot"`
	StateRoot        common.Hash      `json:"stateRoot"`
	ReceiptsRoot     common.Hash      `json:"receiptsRoot"`
	Miner            common.Address   `json:"miner"`
	Difficulty       *hexutil.Big     `json:"difficulty"`
	TotalDifficulty  *hexutil.Big     `json:"totalDifficulty"`
	ExtraData        hexutil.Bytes    `json:"extraData"`
	Size             hexutil.Uint64   `json:"size"`
	GasLimit         hexutil.Uint64   `json:"gasLimit"`
	GasUsed          hexutil.Uint64   `json:"gasUsed"`
	Timestamp        hexutil.Uint64   `json:"timestamp"`
	Transactions     []interface{}    `json:"transactions"`
	Uncles           []common.Hash    `json:"uncles"`
	BaseFeePerGas    *hexutil.Big     `json:"baseFeePerGas,omitempty"`
}

// GetBlockByNumber returns a synthetic block by number
func (api *EthAPI) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (*RPCBlock, error) {
	var blockNum uint64
	if number >= 0 {
		blockNum = uint64(number)
	} else {
		// "latest", "pending", and friends track eth_blockNumber
		blockNum = api.latestBlockNumber()
	}

	if blockNum == 0 {
		return nil, nil
	}

	return api.syntheticBlock(blockNum), nil
}

// GetBlockByHash returns a synthetic block by hash. Block hashes are
// keccak256(chainID || number), which cannot be reversed, so unknown
// hashes resolve to the latest block; wallets only probe that a block
// exists behind the hash they were handed.
func (api *EthAPI) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (*RPCBlock, error) {
	return api.syntheticBlock(api.latestBlockNumber()), nil
}

func (api *EthAPI) syntheticBlock(blockNum uint64) *RPCBlock {
	parentHash := common.Hash{}
	if blockNum > 1 {
		parentHash = api.syntheticBlockHash(blockNum - 1)
	}

	return &RPCBlock{
		Number:           hexutil.Uint64(blockNum),
		Hash:             api.syntheticBlockHash(blockNum),
		ParentHash:       parentHash,
		Nonce:            types.BlockNonce{},
		Sha3Uncles:       common.Hash{},
		LogsBloom:        types.Bloom{},
		TransactionsRoot: common.Hash{},
		StateRoot:        common.Hash{},
		ReceiptsRoot:     common.Hash{},
		Miner:            common.Address{},
		Difficulty:       (*hexutil.Big)(big.NewInt(0)),
		TotalDifficulty:  (*hexutil.Big)(big.NewInt(0)),
		ExtraData:        []byte{},
		Size:             hexutil.Uint64(0),
		GasLimit:         hexutil.Uint64(blockGasLimit),
		GasUsed:          hexutil.Uint64(0),
		Timestamp:        hexutil.Uint64(uint64(api.server.startTime.Unix()) + blockNum),
		Transactions:     []interface{}{},
		Uncles:           []common.Hash{},
		BaseFeePerGas:    (*hexutil.Big)(big.NewInt(1000000000)),
	}
}

func (api *EthAPI) syntheticBlockHash(number uint64) common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], api.server.cfg.Collection.ChainID)
	binary.BigEndian.PutUint64(buf[8:], number)
	return crypto.Keccak256Hash(buf[:])
}
