package observer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"deposit-bridge/internal/bridge/dao"
	"deposit-bridge/internal/bridge/ledger"
	"deposit-bridge/internal/bridge/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeReceipts map[common.Hash]*types.Receipt

func (f fakeReceipts) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	if h == common.HexToHash("0xee") {
		return nil, errors.New("connection reset")
	}
	r, ok := f[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func record(ctx context.Context, t *testing.T, l *ledger.Ledger, owner, chainID, txHash string) string {
	t.Helper()
	r, err := l.RecordDeposit(ctx, owner, model.DepositRecord{
		TxHash:      txHash,
		ChainID:     chainID,
		TokenAmount: "1000000",
	})
	require.NoError(t, err)
	return r.ID
}

func statusOf(t *testing.T, l *ledger.Ledger, owner, id string) model.DepositStatus {
	t.Helper()
	for _, r := range l.ListDeposits(owner) {
		if r.ID == id {
			return r.Status
		}
	}
	t.Fatalf("deposit %s not found", id)
	return ""
}

func TestReceiptObserverSettlesDeposits(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(zap.NewNop())

	ok := record(ctx, t, l, "alice", "11155111", "0xaa")
	reverted := record(ctx, t, l, "alice", "11155111", "0xbb")
	unmined := record(ctx, t, l, "bob", "11155111", "0xcc")
	rpcErr := record(ctx, t, l, "bob", "11155111", "0xee")
	noClient := record(ctx, t, l, "bob", "solana", "5xyz")

	receipts := fakeReceipts{
		common.HexToHash("0xaa"): {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
		common.HexToHash("0xbb"): {Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(101)},
	}
	o := NewReceiptObserver(l, map[string]ReceiptSource{"11155111": receipts}, 0, zap.NewNop())
	require.NoError(t, o.CheckOnce(ctx))

	require.Equal(t, model.DepositConfirmed, statusOf(t, l, "alice", ok))
	require.Equal(t, model.DepositFailed, statusOf(t, l, "alice", reverted))
	require.Equal(t, model.DepositPending, statusOf(t, l, "bob", unmined))
	require.Equal(t, model.DepositPending, statusOf(t, l, "bob", rpcErr))
	require.Equal(t, model.DepositPending, statusOf(t, l, "bob", noClient))
	require.Len(t, l.PendingDeposits(), 3)

	// 第二轮不重复推进已结算的记录
	require.NoError(t, o.CheckOnce(ctx))
	require.Len(t, l.PendingDeposits(), 3)
}

func TestReceiptObserverStopsOnCancel(t *testing.T) {
	l := ledger.New(zap.NewNop())
	record(context.Background(), t, l, "alice", "11155111", "0xaa")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := NewReceiptObserver(l, map[string]ReceiptSource{"11155111": fakeReceipts{}}, 1, zap.NewNop())
	require.ErrorIs(t, o.CheckOnce(ctx), context.Canceled)
}

type staleLedger struct {
	*ledger.Ledger
	pending []ledger.OwnedDeposit
}

func (s staleLedger) PendingDeposits() []ledger.OwnedDeposit { return s.pending }

func TestReceiptObserverIgnoresSettledConflict(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(zap.NewNop())
	id := record(ctx, t, l, "alice", "11155111", "0xaa")
	snapshot := l.PendingDeposits()
	require.NoError(t, l.UpdateStatus(ctx, "alice", id, model.DepositFailed))

	receipts := fakeReceipts{common.HexToHash("0xaa"): {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}}
	o := NewReceiptObserver(staleLedger{Ledger: l, pending: snapshot}, map[string]ReceiptSource{"11155111": receipts}, 0, zap.NewNop())
	require.NoError(t, o.CheckOnce(ctx))
	require.Equal(t, model.DepositFailed, statusOf(t, l, "alice", id))
}

func TestReceiptObserverPicksUpDepositsFromOtherProcess(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bridge.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, dao.AutoMigrate(db))

	// worker 启动时存储为空
	worker := ledger.New(zap.NewNop(), ledger.WithStore(dao.NewDepositDAO(db, nil, zap.NewNop())))
	receipts := fakeReceipts{
		common.HexToHash("0xaa"): {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
	}
	o := NewReceiptObserver(worker, map[string]ReceiptSource{"11155111": receipts}, 0, zap.NewNop())
	require.NoError(t, o.CheckOnce(ctx))
	require.Empty(t, worker.PendingDeposits())

	// 命令行进程提交后写入同一存储
	cli := ledger.New(zap.NewNop(), ledger.WithStore(dao.NewDepositDAO(db, nil, zap.NewNop())))
	id := record(ctx, t, cli, "alice", "11155111", "0xaa")

	require.NoError(t, o.CheckOnce(ctx))
	require.Equal(t, model.DepositConfirmed, statusOf(t, worker, "alice", id))

	_, err = cli.Restore(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, model.DepositConfirmed, statusOf(t, cli, "alice", id))
}
