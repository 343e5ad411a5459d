package model

import (
	"time"
)

// ============================================================================
// Balance ledger entry types
// ============================================================================

const (
	TransactionTypeDeposit        = "DEPOSIT"         // approved deposit credit
	TransactionTypeWithdraw       = "WITHDRAW"        // reservation debit at request time
	TransactionTypeWithdrawRefund = "WITHDRAW_REFUND" // declined withdrawal refund
	TransactionTypeNodeLock       = "NODE_LOCK"       // capital locked into a node
	TransactionTypeReferralBonus  = "REFERRAL_BONUS"  // cascade payout
	TransactionTypeAdjust         = "ADJUST"          // administrative signed adjustment
)

// ============================================================================
// Balance ledger entity
// ============================================================================

// AccountTransaction records every single balance mutation and is the
// reconciliation backbone of the ledger.
//
// Ledger table rules:
// 1. Append only, never update, never delete.
// 2. Every row carries the business reference that caused it.
// 3. Balance before/after is recorded so any run of rows can be replayed
//    and checked for consistency.
type AccountTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	AccountID     int64     `gorm:"index;not null" json:"account_id"`
	ReferenceNo   string    `gorm:"type:varchar(64);index;not null" json:"reference_no"` // deposit/withdrawal/node/bonus number
	Amount        int64     `gorm:"not null" json:"amount"`                              // positive credit, negative debit
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountTransaction) TableName() string {
	return "account_transaction"
}
