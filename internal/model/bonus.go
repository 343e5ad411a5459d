package model

import (
	"time"
)

// ReferralBonus records one tiered payout of the cascade. AccountID is
// the beneficiary; ReferredAccountID is always the original activator,
// at every tier, not the intermediate link. Append-only, written
// exclusively by the cascade inside the activation transaction.
type ReferralBonus struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BonusNo           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"bonus_no"`
	AccountID         int64     `gorm:"index;not null" json:"account_id"`
	ReferredAccountID int64     `gorm:"index;not null" json:"referred_account_id"`
	NodeID            int64     `gorm:"index;not null" json:"node_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Tier              int       `gorm:"not null" json:"tier"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ReferralBonus) TableName() string {
	return "referral_bonus"
}
