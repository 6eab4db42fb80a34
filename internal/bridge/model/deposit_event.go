package model

import (
	"github.com/google/uuid"
)

const DEPOSIT_EVENT_TYPE = "deposit.bridge.DepositEvent"

const (
	DEPOSIT_EVENT_RECORDED   = "recorded"
	DEPOSIT_EVENT_TRANSITION = "transition"
)

// DepositEvent 账本变更事件
type DepositEvent struct {
	Event DepositEventDetails `json:"event"`
	Type  string              `json:"type"`
}

type DepositEventDetails struct {
	ID         string        `json:"id"`
	Action     string        `json:"action"`
	Owner      string        `json:"owner"`
	Deposit    DepositRecord `json:"deposit"`
	PrevStatus DepositStatus `json:"prevStatus,omitempty"`
	CreatedAt  int64         `json:"createdAt"`
}

// NewDepositEvent 构造事件
func NewDepositEvent(action, owner string, record DepositRecord, prev DepositStatus) *DepositEvent {
	return &DepositEvent{
		Event: DepositEventDetails{
			ID:         uuid.New().String(),
			Action:     action,
			Owner:      owner,
			Deposit:    record,
			PrevStatus: prev,
			CreatedAt:  NowMillis(),
		},
		Type: DEPOSIT_EVENT_TYPE,
	}
}
