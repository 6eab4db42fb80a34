package deposit

import (
	"context"
	"fmt"

	"deposit-bridge/internal/bridge/builder"
	"deposit-bridge/internal/bridge/ledger"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/selector"

	"go.uber.org/zap"
)

// BalanceSource 账户余额, balance.Aggregator 满足
type BalanceSource interface {
	Balances(ctx context.Context, account model.SourceAccount) ([]model.BalanceEntry, error)
}

// Estimator USD 估值, price.Oracle 满足
type Estimator interface {
	EstimateUSD(ctx context.Context, token model.Token, amountMinor string) *string
}

// Request 一次充值
type Request struct {
	Account model.SourceAccount
	// Token 为空时自动选择默认代币
	Token  *model.Token
	Amount string
	// Recipient 目标链收款地址, 为空时充值给 OwnerDestination
	Recipient        string
	OwnerDestination string
}

// Service 选币, 提交, 记账
type Service struct {
	builder   *builder.Builder
	ledger    *ledger.Ledger
	balances  BalanceSource
	estimator Estimator
	tl        *zap.Logger
}

type Option func(*Service)

func WithBalances(b BalanceSource) Option {
	return func(s *Service) { s.balances = b }
}

func WithEstimator(e Estimator) Option {
	return func(s *Service) { s.estimator = e }
}

func NewService(b *builder.Builder, l *ledger.Ledger, tl *zap.Logger, opts ...Option) *Service {
	s := &Service{builder: b, ledger: l, tl: tl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultToken 查询余额后选择默认代币, 余额查询失败时退回生态默认 USDC
func (s *Service) DefaultToken(ctx context.Context, account model.SourceAccount) (model.Token, error) {
	var balances []model.BalanceEntry
	if s.balances != nil && account.Ecosystem != model.EcosystemUnset {
		var err error
		balances, err = s.balances.Balances(ctx, account)
		if err != nil {
			s.tl.Warn("load balances failed, using fallback token",
				zap.String("address", account.Address),
				zap.Error(err))
			balances = nil
		}
	}
	return selector.ResolveDefaultToken(account, balances)
}

// Deposit 提交 bridge 交易并记录一条 pending 充值
// 提交失败时账本不变
func (s *Service) Deposit(ctx context.Context, req Request, signer builder.Signer) (model.DepositRecord, error) {
	var token model.Token
	if req.Token != nil {
		token = *req.Token
	} else {
		var err error
		if token, err = s.DefaultToken(ctx, req.Account); err != nil {
			return model.DepositRecord{}, err
		}
	}

	owner := req.Account.Address
	sub, err := s.builder.SubmitDeposit(ctx, builder.DepositRequest{
		Owner:            owner,
		Token:            token,
		Amount:           req.Amount,
		Recipient:        req.Recipient,
		OwnerDestination: req.OwnerDestination,
	}, signer)
	if err != nil {
		return model.DepositRecord{}, err
	}

	record := model.DepositRecord{
		ID:               ledger.NewDepositID(),
		TxHash:           sub.TxHash,
		ChainID:          sub.ChainID,
		Token:            token,
		TokenAmount:      sub.AmountMinor,
		IsInstantDeposit: false,
	}
	if s.estimator != nil {
		record.EstimatedAmountUSD = s.estimator.EstimateUSD(ctx, token, sub.AmountMinor)
	}

	recorded, err := s.ledger.RecordDeposit(ctx, owner, record)
	if err != nil {
		// 交易已广播, 记账失败需要人工对账
		s.tl.Error("record deposit failed after submission",
			zap.String("owner", owner),
			zap.String("txHash", sub.TxHash),
			zap.Error(err))
		return model.DepositRecord{}, fmt.Errorf("record deposit %s: %w", sub.TxHash, err)
	}
	return recorded, nil
}

// Deposits 当前 owner 的充值记录
func (s *Service) Deposits(owner string) []model.DepositRecord {
	return s.ledger.ListDeposits(owner)
}
