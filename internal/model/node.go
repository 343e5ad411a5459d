package model

import (
	"time"
)

const (
	NodeStatusActive = "ACTIVE"
)

const (
	NodeActionActivation = "ACTIVATION"
)

// Node is a capital-locking investment contract. Activation debits the
// owning account by Amount; TargetAmount is the declared maturity goal.
// No maturity or closure transition exists in the current design, so
// nodes remain ACTIVE indefinitely.
type Node struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NodeNo       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"node_no"`
	RequestID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`
	AccountID    int64     `gorm:"index;not null" json:"account_id"`
	NodeName     string    `gorm:"type:varchar(64);not null" json:"node_name"`
	Amount       int64     `gorm:"not null" json:"amount"`
	TargetAmount int64     `gorm:"not null" json:"target_amount"`
	Status       string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Node) TableName() string {
	return "user_node"
}

// NodeActivity is the append-only lifecycle log of a node. Rows are
// written inside the same transaction as the event they describe and
// are never updated or deleted.
type NodeActivity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NodeID    int64     `gorm:"index;not null" json:"node_id"`
	Action    string    `gorm:"type:varchar(32);not null" json:"action"`
	Detail    string    `gorm:"type:varchar(256)" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (NodeActivity) TableName() string {
	return "node_activity"
}
