package service

import (
	"context"
	"testing"

	"nexusledger/internal/model"
	"nexusledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWithdrawalReservesFunds(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	withdrawal, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-1",
		AccountID:  account.ID,
		Amount:     20000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAbcDef123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, withdrawal.Status)

	// funds are reserved at request time
	assert.Equal(t, int64(80000), accountBalance(t, db, account.ID))

	var entries []*model.AccountTransaction
	require.NoError(t, db.Where("account_id = ?", account.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TransactionTypeWithdraw, entries[0].Type)
	assert.Equal(t, int64(-20000), entries[0].Amount)
}

func TestCreateWithdrawalValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	_, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-bad-1",
		AccountID:  account.ID,
		Amount:     -5,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAbcDef123",
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID: "wdr-bad-2",
		AccountID: account.ID,
		Amount:    1000,
	})
	assert.ErrorIs(t, err, ErrIncompleteWithdrawalDetails)

	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))
}

func TestCreateWithdrawalInsufficientFunds(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 5000, nil)

	_, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-2",
		AccountID:  account.ID,
		Amount:     10000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAbcDef123",
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)

	// no partial effect: balance unchanged, no row created
	assert.Equal(t, int64(5000), accountBalance(t, db, account.ID))
	var count int64
	require.NoError(t, db.Model(&model.Withdrawal{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSequentialOverdrainRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	// two requests summing over the balance must not both succeed
	account := createTestAccount(t, db, 100000, nil)

	_, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-3a",
		AccountID:  account.ID,
		Amount:     70000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAddr1",
	})
	require.NoError(t, err)

	_, err = svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-3b",
		AccountID:  account.ID,
		Amount:     70000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAddr2",
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, int64(30000), accountBalance(t, db, account.ID))
}

func TestApproveWithdrawalBalanceNeutral(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	withdrawal, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-4",
		AccountID:  account.ID,
		Amount:     40000,
		Currency:   "BTC",
		Blockchain: "Bitcoin",
		Address:    "bc1qxyz",
	})
	require.NoError(t, err)
	require.Equal(t, int64(60000), accountBalance(t, db, account.ID))

	require.NoError(t, svc.ApproveWithdrawal(ctx, withdrawal.ID))

	// already debited at creation, approval changes nothing
	assert.Equal(t, int64(60000), accountBalance(t, db, account.ID))

	stored, err := svc.GetWithdrawal(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, stored.Status)

	err = svc.DeclineWithdrawal(ctx, withdrawal.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	assert.Equal(t, int64(60000), accountBalance(t, db, account.ID))
}

func TestDeclineWithdrawalRefunds(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	withdrawal, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-5",
		AccountID:  account.ID,
		Amount:     20000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAddr3",
	})
	require.NoError(t, err)
	require.Equal(t, int64(80000), accountBalance(t, db, account.ID))

	require.NoError(t, svc.DeclineWithdrawal(ctx, withdrawal.ID))

	// reservation fully reversed
	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))

	stored, err := svc.GetWithdrawal(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDeclined, stored.Status)

	// second decline must not refund again
	err = svc.DeclineWithdrawal(ctx, withdrawal.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))

	var entries []*model.AccountTransaction
	require.NoError(t, db.Where("account_id = ? AND type = ?", account.ID, model.TransactionTypeWithdrawRefund).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(20000), entries[0].Amount)
}

func TestCreateWithdrawalIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewWithdrawalService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 50000, nil)

	first, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-6",
		AccountID:  account.ID,
		Amount:     30000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAddr4",
	})
	require.NoError(t, err)

	// a resubmission must not reserve twice
	again, err := svc.CreateWithdrawal(ctx, &CreateWithdrawalRequest{
		RequestID:  "wdr-req-6",
		AccountID:  account.ID,
		Amount:     30000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		Address:    "TAddr4",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(20000), accountBalance(t, db, account.ID))
}
