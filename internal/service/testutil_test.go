package service

import (
	"fmt"
	"testing"

	"nexusledger/internal/config"
	"nexusledger/internal/infrastructure/database"
	"nexusledger/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a pooled second connection would see a different empty in-memory
	// database, so pin the pool to one
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{FinancialEvents: "nexus.financial-events"},
		},
		Business: config.BusinessConfig{
			MaxRetryCount: 3,
		},
	}
}

var testAccountSeq int

// createTestAccount inserts an account directly, bypassing the
// provisioning flow, so tests can shape the referral graph freely.
func createTestAccount(t *testing.T, db *gorm.DB, balance int64, referredBy *int64) *model.Account {
	t.Helper()

	testAccountSeq++
	account := &model.Account{
		Email:        fmt.Sprintf("user%d@example.com", testAccountSeq),
		Username:     fmt.Sprintf("user%d", testAccountSeq),
		Role:         model.RoleUser,
		Balance:      balance,
		ReferralCode: fmt.Sprintf("CODE%04d", testAccountSeq),
		ReferredBy:   referredBy,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func accountBalance(t *testing.T, db *gorm.DB, accountID int64) int64 {
	t.Helper()

	var account model.Account
	require.NoError(t, db.Where("id = ?", accountID).First(&account).Error)
	return account.Balance
}
