package dao

import (
	"context"
	"errors"
	"fmt"

	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrDepositRowNotFound = errors.New("deposit row not found")

// depositDAO 实现 DepositDAO, owner 的记录列表缓存在 Redis
// 列表会被其他进程写入, 不做进程内缓存
type depositDAO struct {
	db  *gorm.DB
	rds *redis.Client // 可为 nil
	tl  *zap.Logger
}

// NewDepositDAO 创建 DepositDAO 实例
func NewDepositDAO(db *gorm.DB, rds *redis.Client, tl *zap.Logger) DepositDAO {
	return &depositDAO{
		db:  db,
		rds: rds,
		tl:  tl,
	}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.DepositRow{})
}

// Save 在事务内分配 owner 内递增的 seq
func (d *depositDAO) Save(ctx context.Context, owner string, record model.DepositRecord) (int64, error) {
	var seq int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.DepositRow{}).
			Where("owner = ? AND id = ?", owner, record.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return duplicateDeposit(owner, record.ID)
		}

		var maxSeq int64
		if err := tx.Model(&model.DepositRow{}).
			Select("COALESCE(MAX(seq), -1)").
			Where("owner = ?", owner).
			Row().Scan(&maxSeq); err != nil {
			return err
		}
		seq = maxSeq + 1

		row, err := model.NewDepositRow(owner, seq, record)
		if err != nil {
			return fmt.Errorf("encode deposit %s: %w", record.ID, err)
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateDeposit(owner, record.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	d.clearCache(ctx, owner)
	return seq, nil
}

func (d *depositDAO) UpdateStatus(ctx context.Context, owner, id string, from, to model.DepositStatus, updatedAt int64) error {
	result := d.db.WithContext(ctx).
		Model(&model.DepositRow{}).
		Where("owner = ? AND id = ? AND status = ?", owner, id, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		d.clearCache(ctx, owner)
		return nil
	}

	var row model.DepositRow
	err := d.db.WithContext(ctx).
		Select("status").
		Where("owner = ? AND id = ?", owner, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrDepositRowNotFound, owner, id)
	}
	if err != nil {
		return err
	}
	if row.Status == string(to) {
		return nil
	}
	return errs.Newf(errs.CodeInvalidTransition, "dao.UpdateStatus",
		"deposit %q is %s, expected %s", id, row.Status, from).
		With("owner", owner).
		With("id", id)
}

// ListByOwner 按 seq 顺序返回
func (d *depositDAO) ListByOwner(ctx context.Context, owner string) ([]model.StoredDeposit, error) {
	cacheKey := DepositListKey(owner)

	if d.rds != nil {
		cached, err := d.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			var stored []model.StoredDeposit
			if sonic.Unmarshal([]byte(cached), &stored) == nil {
				return stored, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			d.tl.Warn("redis get deposits failed", zap.String("owner", owner), zap.Error(err))
		}
	}

	// 查数据库
	var rows []model.DepositRow
	err := d.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("seq ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stored := make([]model.StoredDeposit, 0, len(rows))
	for i := range rows {
		r, err := rows[i].Record()
		if err != nil {
			return nil, fmt.Errorf("decode deposit %s: %w", rows[i].ID, err)
		}
		stored = append(stored, model.StoredDeposit{Seq: rows[i].Seq, Record: r})
	}

	d.updateCache(ctx, cacheKey, stored)
	return stored, nil
}

func (d *depositDAO) GetByTxHash(ctx context.Context, txHash string) (*model.DepositRecord, error) {
	var row model.DepositRow
	err := d.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r, err := row.Record()
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *depositDAO) PendingOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := d.db.WithContext(ctx).
		Model(&model.DepositRow{}).
		Where("status = ?", string(model.DepositPending)).
		Distinct("owner").
		Order("owner ASC").
		Pluck("owner", &owners).Error
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func (d *depositDAO) updateCache(ctx context.Context, cacheKey string, stored []model.StoredDeposit) {
	if d.rds == nil {
		return
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return
	}
	if err := d.rds.Set(ctx, cacheKey, string(data), DEPOSIT_REDIS_CACHE_TTL).Err(); err != nil {
		d.tl.Warn("redis set deposits failed", zap.String("key", cacheKey), zap.Error(err))
	}
}

func (d *depositDAO) clearCache(ctx context.Context, owner string) {
	if d.rds == nil {
		return
	}
	if err := d.rds.Del(ctx, DepositListKey(owner)).Err(); err != nil {
		d.tl.Warn("redis del deposits failed", zap.String("owner", owner), zap.Error(err))
	}
}

func duplicateDeposit(owner, id string) error {
	return errs.Newf(errs.CodeDuplicateID, "dao.Save", "deposit %q already stored", id).
		With("owner", owner)
}
