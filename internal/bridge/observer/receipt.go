package observer

import (
	"context"
	"errors"

	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/ledger"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/monitor"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReceiptSource *ethclient.Client 满足
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Ledger 观察者需要的账本能力
type Ledger interface {
	// Sync 加载存储中其他进程写入的 pending 记录
	Sync(ctx context.Context) (int, error)
	PendingDeposits() []ledger.OwnedDeposit
	UpdateStatus(ctx context.Context, owner, id string, status model.DepositStatus) error
}

const (
	outcomeConfirmed = "confirmed"
	outcomeFailed    = "failed"
	outcomePending   = "pending"
	outcomeNoClient  = "no_client"
	outcomeError     = "error"
)

// ReceiptObserver 轮询 pending 充值的交易回执并推进账本状态
// 回执 status=1 -> confirmed, status=0 -> failed, 未上链 -> 保持 pending
type ReceiptObserver struct {
	ledger  Ledger
	sources map[string]ReceiptSource // key 为 chainId
	limiter *rate.Limiter
	tl      *zap.Logger
}

// NewReceiptObserver rps 为每秒 RPC 次数, <=0 不限流
func NewReceiptObserver(l Ledger, sources map[string]ReceiptSource, rps int, tl *zap.Logger) *ReceiptObserver {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return &ReceiptObserver{ledger: l, sources: sources, limiter: limiter, tl: tl}
}

// CheckOnce 先同步存储再检查一轮, 单笔 RPC 失败不中断本轮
func (o *ReceiptObserver) CheckOnce(ctx context.Context) error {
	if n, err := o.ledger.Sync(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.tl.Warn("sync pending deposits failed", zap.Error(err))
	} else if n > 0 {
		o.tl.Info("pending deposits loaded", zap.Int("records", n))
	}

	for _, d := range o.ledger.PendingDeposits() {
		if err := o.check(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// check 只在 ctx 结束时返回错误
func (o *ReceiptObserver) check(ctx context.Context, d ledger.OwnedDeposit) error {
	chainID := d.Record.ChainID
	source, ok := o.sources[chainID]
	if !ok {
		monitor.DepositObserverChecks.WithLabelValues(chainID, outcomeNoClient).Inc()
		return nil
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	receipt, err := source.TransactionReceipt(ctx, common.HexToHash(d.Record.TxHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			monitor.DepositObserverChecks.WithLabelValues(chainID, outcomePending).Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		monitor.DepositObserverChecks.WithLabelValues(chainID, outcomeError).Inc()
		o.tl.Warn("fetch receipt failed",
			zap.String("chainId", chainID),
			zap.String("txHash", d.Record.TxHash),
			zap.Error(err))
		return nil
	}

	status, outcome := model.DepositConfirmed, outcomeConfirmed
	if receipt.Status != types.ReceiptStatusSuccessful {
		status, outcome = model.DepositFailed, outcomeFailed
	}
	monitor.DepositObserverChecks.WithLabelValues(chainID, outcome).Inc()

	if err := o.ledger.UpdateStatus(ctx, d.Owner, d.Record.ID, status); err != nil {
		// 其他路径已推进到不同终态
		if errs.CodeOf(err) == errs.CodeInvalidTransition {
			o.tl.Warn("deposit already settled", zap.String("id", d.Record.ID), zap.Error(err))
			return nil
		}
		o.tl.Error("update deposit status failed", zap.String("id", d.Record.ID), zap.Error(err))
		return nil
	}
	o.tl.Info("deposit settled",
		zap.String("owner", d.Owner),
		zap.String("id", d.Record.ID),
		zap.String("txHash", d.Record.TxHash),
		zap.String("status", string(status)),
		zap.Stringer("block", receipt.BlockNumber))
	return nil
}
