package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"sync"

	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/monitor"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store 账本持久化, 可选
type Store interface {
	// Save 返回存储分配的 owner 内顺序号, id 已存在时返回 DuplicateID
	Save(ctx context.Context, owner string, record model.DepositRecord) (int64, error)
	// UpdateStatus 仅当存储中的状态为 from 时迁移到 to
	UpdateStatus(ctx context.Context, owner, id string, from, to model.DepositStatus, updatedAt int64) error
	ListByOwner(ctx context.Context, owner string) ([]model.StoredDeposit, error)
	PendingOwners(ctx context.Context) ([]string, error)
}

// EventSink 账本事件出口, 不得阻塞
type EventSink interface {
	Submit(event model.DepositEvent)
}

// OwnedDeposit 带 owner 的记录
type OwnedDeposit struct {
	Owner  string
	Record model.DepositRecord
}

// ownerBook 按 seq 升序保存记录
type ownerBook struct {
	records []model.DepositRecord
	seqs    []int64
	index   map[string]int
	loaded  bool // 已从存储加载
}

func newOwnerBook() *ownerBook {
	return &ownerBook{index: make(map[string]int)}
}

func (b *ownerBook) nextSeq() int64 {
	if len(b.seqs) == 0 {
		return 0
	}
	return b.seqs[len(b.seqs)-1] + 1
}

// insert 按 seq 插入, 相同 seq 排在已有记录之后
func (b *ownerBook) insert(seq int64, r model.DepositRecord) {
	i := sort.Search(len(b.seqs), func(i int) bool { return b.seqs[i] > seq })
	b.records = slices.Insert(b.records, i, r)
	b.seqs = slices.Insert(b.seqs, i, seq)
	for j := i; j < len(b.records); j++ {
		b.index[b.records[j].ID] = j
	}
}

// Ledger 按 owner 划分的充值记录, 只追加与状态迁移, 从不删除
// 存储 I/O 期间不持有锁
type Ledger struct {
	mu     sync.RWMutex
	owners map[string]*ownerBook
	store  Store
	sink   EventSink
	tl     *zap.Logger
}

type Option func(*Ledger)

// WithStore 写穿到持久化存储
func WithStore(s Store) Option {
	return func(l *Ledger) { l.store = s }
}

// WithEventSink 发布账本事件
func WithEventSink(s EventSink) Option {
	return func(l *Ledger) { l.sink = s }
}

// New 创建账本, 应用启动时构造一次并向下传递
func New(tl *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		owners: make(map[string]*ownerBook),
		tl:     tl,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDepositID 生成充值记录 id
func NewDepositID() string {
	return "deposit-" + uuid.NewString()
}

// RecordDeposit 追加一条记录, 状态强制为 pending
func (l *Ledger) RecordDeposit(ctx context.Context, owner string, record model.DepositRecord) (model.DepositRecord, error) {
	const op = "ledger.RecordDeposit"

	if record.ID == "" {
		record.ID = NewDepositID()
	}
	if v, ok := new(big.Int).SetString(record.TokenAmount, 10); !ok || v.Sign() < 0 {
		return model.DepositRecord{}, errs.Newf(errs.CodeInvalidAmount, op,
			"token amount %q is not a minor-unit integer", record.TokenAmount).With("id", record.ID)
	}
	record.Status = model.DepositPending
	now := model.NowMillis()
	if record.CreatedAt == 0 {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	if err := l.ensureLoaded(ctx, owner); err != nil {
		return model.DepositRecord{}, err
	}

	l.mu.Lock()
	book := l.book(owner)
	if _, dup := book.index[record.ID]; dup {
		l.mu.Unlock()
		return model.DepositRecord{}, duplicateID(op, owner, record.ID)
	}
	if l.store == nil {
		book.insert(book.nextSeq(), record)
		l.mu.Unlock()
		l.recorded(owner, record)
		return record, nil
	}
	l.mu.Unlock()

	seq, err := l.store.Save(ctx, owner, record)
	if err != nil {
		if errors.Is(err, errs.ErrDuplicateID) {
			return model.DepositRecord{}, err
		}
		return model.DepositRecord{}, fmt.Errorf("persist deposit %s: %w", record.ID, err)
	}

	l.mu.Lock()
	book = l.book(owner)
	if _, dup := book.index[record.ID]; !dup {
		book.insert(seq, record)
	}
	l.mu.Unlock()

	l.recorded(owner, record)
	return record, nil
}

func (l *Ledger) recorded(owner string, record model.DepositRecord) {
	monitor.DepositRecords.Inc()
	l.tl.Info("deposit recorded",
		zap.String("owner", owner),
		zap.String("id", record.ID),
		zap.String("txHash", record.TxHash),
		zap.String("chainId", record.ChainID))
	l.emit(model.DEPOSIT_EVENT_RECORDED, owner, record, "")
}

// UpdateStatus 迁移状态, 仅允许 pending -> confirmed/failed
// 重复投递同一终态为空操作, 终态之间切换返回 InvalidTransition
func (l *Ledger) UpdateStatus(ctx context.Context, owner, id string, status model.DepositStatus) error {
	const op = "ledger.UpdateStatus"

	if !status.Valid() {
		return errs.Newf(errs.CodeInvalidTransition, op, "unknown status %q", status).With("id", id)
	}
	if err := l.ensureLoaded(ctx, owner); err != nil {
		return err
	}

	l.mu.RLock()
	current, ok := l.statusOf(owner, id)
	l.mu.RUnlock()
	if !ok {
		return errs.Newf(errs.CodeDepositNotFound, op, "deposit %q not found", id).With("owner", owner)
	}
	if current == status {
		return nil
	}
	if current.IsTerminal() || status == model.DepositPending {
		return invalidTransition(op, owner, id, current, status)
	}

	updatedAt := model.NowMillis()
	if l.store != nil {
		if err := l.store.UpdateStatus(ctx, owner, id, current, status, updatedAt); err != nil {
			if errors.Is(err, errs.ErrInvalidTransition) {
				return err
			}
			return fmt.Errorf("persist deposit status %s: %w", id, err)
		}
	}

	l.mu.Lock()
	book, ok := l.owners[owner]
	if !ok {
		// Reset 之后到达, 已落库
		l.mu.Unlock()
		return nil
	}
	i, ok := book.index[id]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	switch book.records[i].Status {
	case status:
		l.mu.Unlock()
		return nil
	case current:
	default:
		now := book.records[i].Status
		l.mu.Unlock()
		return invalidTransition(op, owner, id, now, status)
	}
	book.records[i].Status = status
	book.records[i].UpdatedAt = updatedAt
	updated := book.records[i]
	l.mu.Unlock()

	monitor.DepositTransitions.WithLabelValues(string(status)).Inc()
	l.tl.Info("deposit status updated",
		zap.String("owner", owner),
		zap.String("id", id),
		zap.String("from", string(current)),
		zap.String("to", string(status)))
	l.emit(model.DEPOSIT_EVENT_TRANSITION, owner, updated, current)
	return nil
}

// ListDeposits 按插入顺序返回副本
func (l *Ledger) ListDeposits(owner string) []model.DepositRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.owners[owner]
	if !ok {
		return []model.DepositRecord{}
	}
	out := make([]model.DepositRecord, len(book.records))
	copy(out, book.records)
	return out
}

// FindByTxHash 按交易哈希查找
func (l *Ledger) FindByTxHash(owner, txHash string) (model.DepositRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.owners[owner]
	if !ok {
		return model.DepositRecord{}, false
	}
	for _, r := range book.records {
		if r.TxHash == txHash {
			return r, true
		}
	}
	return model.DepositRecord{}, false
}

// PendingDeposits 所有 owner 下仍为 pending 的记录快照
func (l *Ledger) PendingDeposits() []OwnedDeposit {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []OwnedDeposit
	for owner, book := range l.owners {
		for _, r := range book.records {
			if r.Status == model.DepositPending {
				out = append(out, OwnedDeposit{Owner: owner, Record: r})
			}
		}
	}
	return out
}

// Restore 从存储加载 owner 的记录并按存储顺序合并
// 内存中仍为 pending 而存储中已是终态的记录以存储为准
func (l *Ledger) Restore(ctx context.Context, owner string) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	stored, err := l.store.ListByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("restore deposits for %s: %w", owner, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.book(owner)
	n := 0
	for _, s := range stored {
		r := s.Record
		if !r.Status.Valid() {
			l.tl.Warn("skip stored deposit with unknown status", zap.String("id", r.ID), zap.String("status", string(r.Status)))
			continue
		}
		if i, dup := book.index[r.ID]; dup {
			if book.records[i].Status == model.DepositPending && r.Status.IsTerminal() {
				book.records[i].Status = r.Status
				book.records[i].UpdatedAt = r.UpdatedAt
			}
			continue
		}
		book.insert(s.Seq, r)
		n++
	}
	book.loaded = true
	return n, nil
}

// Sync 加载存储中所有仍有 pending 记录的 owner, 包括其他进程写入的
func (l *Ledger) Sync(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	owners, err := l.store.PendingOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending owners: %w", err)
	}
	total := 0
	for _, owner := range owners {
		n, err := l.Restore(ctx, owner)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Reset 账户切换时清空, 存储中的记录保留
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners = make(map[string]*ownerBook)
}

func (l *Ledger) ensureLoaded(ctx context.Context, owner string) error {
	if l.store == nil {
		return nil
	}
	l.mu.RLock()
	book, ok := l.owners[owner]
	loaded := ok && book.loaded
	l.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := l.Restore(ctx, owner)
	return err
}

// book 调用方持有写锁
func (l *Ledger) book(owner string) *ownerBook {
	book, ok := l.owners[owner]
	if !ok {
		book = newOwnerBook()
		l.owners[owner] = book
	}
	return book
}

// statusOf 调用方持有读锁
func (l *Ledger) statusOf(owner, id string) (model.DepositStatus, bool) {
	book, ok := l.owners[owner]
	if !ok {
		return "", false
	}
	i, ok := book.index[id]
	if !ok {
		return "", false
	}
	return book.records[i].Status, true
}

func duplicateID(op, owner, id string) error {
	return errs.Newf(errs.CodeDuplicateID, op, "deposit %q already recorded", id).With("owner", owner)
}

func invalidTransition(op, owner, id string, from, to model.DepositStatus) error {
	return errs.Newf(errs.CodeInvalidTransition, op, "%s -> %s", from, to).
		With("id", id).
		With("owner", owner)
}

func (l *Ledger) emit(action, owner string, record model.DepositRecord, prev model.DepositStatus) {
	if l.sink == nil {
		return
	}
	l.sink.Submit(*model.NewDepositEvent(action, owner, record, prev))
}

