package builder

import (
	"context"
	"errors"
	"math/big"
	"time"

	"deposit-bridge/internal/bridge/bech32addr"
	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/monitor"
	"deposit-bridge/internal/bridge/registry"
	"deposit-bridge/internal/bridge/units"
	"deposit-bridge/pkg/logger"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const opSubmit = "builder.SubmitDeposit"

// DefaultMemo bridge 调用的 memo 参数
var DefaultMemo = []byte{0x00}

var (
	errNoRecipient = errors.New("no recipient and no destination account for owner")
	errWrongPrefix = errors.New("address prefix does not match destination chain")
	errNoSigner    = errors.New("signer is nil")
)

// Builder 组装并提交 bridge 交易, 无内部可变状态
type Builder struct {
	registry *registry.Registry
	tl       *zap.Logger
	destHRP  string
}

// NewBuilder destHRP 为目标链地址前缀, 为空时不校验前缀
func NewBuilder(reg *registry.Registry, tl *zap.Logger, destHRP string) *Builder {
	return &Builder{
		registry: reg,
		tl:       tl,
		destHRP:  destHRP,
	}
}

// SubmitDeposit 校验、编码并通过 signer 提交 bridge 交易
// 链不支持、金额或地址非法时在调用 signer 之前失败
func (b *Builder) SubmitDeposit(ctx context.Context, req DepositRequest, signer Signer) (*Submission, error) {
	ctx, span := logger.StartSpan(ctx, "builder", "SubmitDeposit")
	defer span.End()
	tl := logger.NewLoggerWithTrace(ctx, b.tl)

	chainID := req.Token.ChainID
	entry, ok := b.registry.Lookup(chainID)
	if !ok {
		monitor.BridgeSubmissions.WithLabelValues(chainID, "unsupported").Inc()
		tl.Warn("bridge not available for chain", zap.String("chainId", chainID))
		return nil, errs.Newf(errs.CodeUnsupportedChain, opSubmit, "no bridge contract for chain %q", chainID).
			With("chainId", chainID)
	}
	contract := entry.Contract.Hex()

	amount, err := units.ParseUnits(req.Amount, req.Token.Decimals)
	if err != nil {
		monitor.BridgeSubmissions.WithLabelValues(chainID, "invalid").Inc()
		return nil, err
	}

	recipient, err := b.recipientPayload(req)
	if err != nil {
		monitor.BridgeSubmissions.WithLabelValues(chainID, "invalid").Inc()
		return nil, err
	}

	data, err := entry.Pack(amount, recipient, DefaultMemo)
	if err != nil {
		monitor.BridgeSubmissions.WithLabelValues(chainID, "invalid").Inc()
		return nil, errs.New(errs.CodeInvalidAmount, opSubmit, err).With("chainId", chainID)
	}

	if signer == nil {
		return nil, errs.New(errs.CodeSubmissionFailed, opSubmit, errNoSigner).
			With("chainId", chainID).
			With("contractAddress", contract)
	}

	call := CallSpec{
		From:   req.Owner,
		To:     entry.Contract,
		Method: entry.Method,
		Args:   []any{amount, recipient, DefaultMemo},
		Data:   data,
		Value:  new(big.Int),
	}

	start := time.Now()
	txHash, err := signer.SignAndSend(ctx, ChainContext{ChainID: entry.ChainID}, call)
	monitor.BridgeSignerDuration.WithLabelValues(chainID).Observe(time.Since(start).Seconds())
	if err == nil && txHash == "" {
		err = errors.New("signer returned empty transaction hash")
	}
	if err != nil {
		monitor.BridgeSubmissions.WithLabelValues(chainID, "failed").Inc()
		tl.Error("bridge tx error",
			zap.Error(err),
			zap.String("chainId", chainID),
			zap.String("contractAddress", contract))
		return nil, errs.New(errs.CodeSubmissionFailed, opSubmit, err).
			With("chainId", chainID).
			With("contractAddress", contract)
	}

	monitor.BridgeSubmissions.WithLabelValues(chainID, "submitted").Inc()
	tl.Info("bridge tx submitted",
		zap.String("txHash", txHash),
		zap.String("chainId", chainID),
		zap.String("contractAddress", contract))

	return &Submission{
		TxHash:      txHash,
		ChainID:     chainID,
		Contract:    entry.Contract,
		AmountMinor: amount.String(),
		Recipient:   hexutil.Encode(recipient),
		Memo:        DefaultMemo,
	}, nil
}

// recipientPayload 显式收款地址优先, 否则用用户自己的目标链地址
func (b *Builder) recipientPayload(req DepositRequest) ([]byte, error) {
	addr := req.Recipient
	if addr == "" {
		addr = req.OwnerDestination
	}
	if addr == "" {
		return nil, errs.New(errs.CodeInvalidAddress, opSubmit, errNoRecipient).With("owner", req.Owner)
	}

	hrp, payload, err := bech32addr.Decode(addr)
	if err != nil {
		return nil, err
	}
	if b.destHRP != "" && hrp != b.destHRP {
		return nil, errs.New(errs.CodeInvalidAddress, opSubmit, errWrongPrefix).
			With("prefix", hrp).
			With("expected", b.destHRP)
	}
	return payload, nil
}
