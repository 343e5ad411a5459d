package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account holds a user's balance and their referral-parent edge.
// It is the hub every other table references, and the only row the
// ledger ever mutates in place. Balances are integer cents.
//
// ReferredBy points at another account; the edges form a forest. The
// cascade never trusts that shape: traversal is hard-bounded at the
// configured tier count regardless of what the column contains.
type Account struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"type:varchar(64)" json:"username"`
	Role         string    `gorm:"type:varchar(16);not null;default:user" json:"role"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`          // available balance in cents
	Version      int       `gorm:"not null;default:0" json:"version"`          // optimistic lock counter
	ReferralCode string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"referral_code"`
	ReferredBy   *int64    `gorm:"index" json:"referred_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
