package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"deposit-bridge/internal/bridge/builder"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Backend 签名广播需要的节点能力, *ethclient.Client 满足
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

var (
	ErrNoBackend       = errors.New("no rpc backend for chain")
	ErrSenderMismatch  = errors.New("call sender does not match signer key")
	ErrNoBaseFee       = errors.New("chain has no base fee, eip-1559 required")
	ErrMissingKeyInEnv = errors.New("private key env is empty")
)

// EVMSigner 本地私钥签名, 发送 EIP-1559 交易
type EVMSigner struct {
	key           *ecdsa.PrivateKey
	from          common.Address
	backends      map[uint64]Backend
	gasMultiplier float64
	tl            *zap.Logger
}

var _ builder.Signer = (*EVMSigner)(nil)

func NewEVMSigner(key *ecdsa.PrivateKey, backends map[uint64]Backend, gasMultiplier float64, tl *zap.Logger) *EVMSigner {
	if gasMultiplier < 1 {
		gasMultiplier = 1
	}
	return &EVMSigner{
		key:           key,
		from:          crypto.PubkeyToAddress(key.PublicKey),
		backends:      backends,
		gasMultiplier: gasMultiplier,
		tl:            tl,
	}
}

// PrivateKeyFromEnv 从环境变量读取十六进制私钥, 可带 0x
func PrivateKeyFromEnv(name string) (*ecdsa.PrivateKey, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyInEnv, name)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key from %s: %w", name, err)
	}
	return key, nil
}

// Address 签名地址
func (s *EVMSigner) Address() common.Address {
	return s.from
}

// SignAndSend 估算 gas, 签名并广播, 返回交易哈希
func (s *EVMSigner) SignAndSend(ctx context.Context, chain builder.ChainContext, call builder.CallSpec) (string, error) {
	backend, ok := s.backends[chain.ChainID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrNoBackend, chain.ChainID)
	}
	if call.From != "" && !strings.EqualFold(call.From, s.from.Hex()) {
		return "", fmt.Errorf("%w: %s", ErrSenderMismatch, call.From)
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas tip: %w", err)
	}
	header, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("latest header: %w", err)
	}
	if header.BaseFee == nil {
		return "", ErrNoBaseFee
	}
	// 2 * baseFee + tip, 留出 base fee 上涨空间
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)

	to := call.To
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	gas = uint64(float64(gas) * s.gasMultiplier)

	chainID := new(big.Int).SetUint64(chain.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	})
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	s.tl.Debug("evm tx broadcast",
		zap.Uint64("chainId", chain.ChainID),
		zap.String("method", call.Method),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
		zap.String("txHash", signed.Hash().Hex()))
	return signed.Hash().Hex(), nil
}
