package model

import (
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
)

// DepositStatus 充值状态
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositConfirmed DepositStatus = "confirmed"
	DepositFailed    DepositStatus = "failed"
)

// IsTerminal 是否终态
func (s DepositStatus) IsTerminal() bool {
	return s == DepositConfirmed || s == DepositFailed
}

// Valid 是否为已知状态
func (s DepositStatus) Valid() bool {
	return s == DepositPending || s.IsTerminal()
}

// DepositRecord 一次桥接充值的客户端记录
type DepositRecord struct {
	ID                 string        `json:"id"`
	TxHash             string        `json:"txHash"`
	ChainID            string        `json:"chainId"`
	Status             DepositStatus `json:"status"`
	Token              Token         `json:"token"`
	TokenAmount        string        `json:"tokenAmount"` // 最小单位整数
	EstimatedAmountUSD *string       `json:"estimatedAmountUsd,omitempty"`
	IsInstantDeposit   bool          `json:"isInstantDeposit"`
	CreatedAt          int64         `json:"createdAt"`
	UpdatedAt          int64         `json:"updatedAt"`
}

// StoredDeposit 存储中的记录及其在 owner 内的顺序号
type StoredDeposit struct {
	Seq    int64         `json:"seq"`
	Record DepositRecord `json:"record"`
}

// DepositRow deposit 表结构
type DepositRow struct {
	ID                 string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Owner              string         `gorm:"column:owner;type:varchar(128);primaryKey;index" json:"owner"`
	Seq                int64          `gorm:"column:seq;not null" json:"seq"` // 同一 owner 内的插入顺序
	TxHash             string         `gorm:"column:tx_hash;type:varchar(100);not null;index" json:"tx_hash"`
	ChainID            string         `gorm:"column:chain_id;type:varchar(64);not null" json:"chain_id"`
	Status             string         `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Token              datatypes.JSON `gorm:"column:token" json:"token"`
	TokenAmount        string         `gorm:"column:token_amount;type:varchar(80);not null" json:"token_amount"`
	EstimatedAmountUSD *string        `gorm:"column:estimated_amount_usd" json:"estimated_amount_usd"`
	IsInstantDeposit   bool           `gorm:"column:is_instant_deposit;not null;default:false" json:"is_instant_deposit"`
	CreatedAt          int64          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          int64          `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (DepositRow) TableName() string {
	return "bridge_deposits"
}

// NewDepositRow 记录转为表结构
func NewDepositRow(owner string, seq int64, r DepositRecord) (*DepositRow, error) {
	token, err := sonic.Marshal(r.Token)
	if err != nil {
		return nil, err
	}
	return &DepositRow{
		ID:                 r.ID,
		Owner:              owner,
		Seq:                seq,
		TxHash:             r.TxHash,
		ChainID:            r.ChainID,
		Status:             string(r.Status),
		Token:              datatypes.JSON(token),
		TokenAmount:        r.TokenAmount,
		EstimatedAmountUSD: r.EstimatedAmountUSD,
		IsInstantDeposit:   r.IsInstantDeposit,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

// Record 表结构转回记录
func (row *DepositRow) Record() (DepositRecord, error) {
	var token Token
	if len(row.Token) > 0 {
		if err := sonic.Unmarshal(row.Token, &token); err != nil {
			return DepositRecord{}, err
		}
	}
	return DepositRecord{
		ID:                 row.ID,
		TxHash:             row.TxHash,
		ChainID:            row.ChainID,
		Status:             DepositStatus(row.Status),
		Token:              token,
		TokenAmount:        row.TokenAmount,
		EstimatedAmountUSD: row.EstimatedAmountUSD,
		IsInstantDeposit:   row.IsInstantDeposit,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

// NowMillis 毫秒时间戳
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
