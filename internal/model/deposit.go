package model

import (
	"time"
)

// Deposit and withdrawal requests share one tiny lifecycle: they are
// born pending and die on the first administrative decision.
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusDeclined = "DECLINED"
)

var validRequestTransitions = map[string][]string{
	RequestStatusPending: {RequestStatusApproved, RequestStatusDeclined},
}

// CanTransitionTo reports whether a request may move between the two
// states. Terminal states have no outgoing edges, so a second decision
// on the same request is always rejected.
func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := validRequestTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Deposit is a user's claim that funds were sent on-chain. The hash is
// recorded as claimed, never verified here; crediting happens only on
// administrative approval, exactly once.
type Deposit struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DepositNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"deposit_no"`
	RequestID  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`
	AccountID  int64     `gorm:"index;not null" json:"account_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Currency   string    `gorm:"type:varchar(16);not null" json:"currency"`
	Blockchain string    `gorm:"type:varchar(32);not null" json:"blockchain"`
	TxHash     string    `gorm:"type:varchar(128);not null" json:"tx_hash"`
	Status     string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Deposit) TableName() string {
	return "deposit"
}
