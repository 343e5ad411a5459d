package model

import (
	"time"
)

// Withdrawal reserves funds at request time: the account is debited in
// the same transaction that inserts the pending row, so N concurrent
// requests cannot each pass a balance check against a stale balance.
// Approval is therefore balance-neutral; declining refunds the
// reservation.
type Withdrawal struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"`
	RequestID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`
	AccountID    int64     `gorm:"index;not null" json:"account_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Currency     string    `gorm:"type:varchar(16);not null" json:"currency"`
	Blockchain   string    `gorm:"type:varchar(32);not null" json:"blockchain"`
	Address      string    `gorm:"type:varchar(128);not null" json:"address"`
	Status       string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawal"
}
