package dao

import (
	"context"
	"time"

	"deposit-bridge/internal/bridge/model"
)

// DepositDAO 充值记录持久化, 满足 ledger.Store
type DepositDAO interface {
	// Save 写入一条记录并返回分配的顺序号, id 已存在时返回 DuplicateID
	Save(ctx context.Context, owner string, record model.DepositRecord) (int64, error)
	// UpdateStatus 仅当当前状态为 from 时更新
	UpdateStatus(ctx context.Context, owner, id string, from, to model.DepositStatus, updatedAt int64) error
	ListByOwner(ctx context.Context, owner string) ([]model.StoredDeposit, error)
	GetByTxHash(ctx context.Context, txHash string) (*model.DepositRecord, error)
	// PendingOwners 仍有 pending 记录的 owner, 用于启动时恢复账本
	PendingOwners(ctx context.Context) ([]string, error)
}

const DEPOSIT_REDIS_CACHE_TTL = 30 * time.Minute
