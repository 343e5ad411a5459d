package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// Financial event names carried in outbox payloads.
const (
	EventDepositApproved    = "deposit.approved"
	EventDepositDeclined    = "deposit.declined"
	EventWithdrawalCreated  = "withdrawal.created"
	EventWithdrawalApproved = "withdrawal.approved"
	EventWithdrawalDeclined = "withdrawal.declined"
	EventNodeActivated      = "node.activated"
)

// OutboxMessage is written inside the same transaction as the financial
// mutation it announces, then published to Kafka by the sender job.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
