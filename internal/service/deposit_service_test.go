package service

import (
	"context"
	"testing"

	"nexusledger/internal/model"
	"nexusledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeposit(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 0, nil)

	deposit, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-req-1",
		AccountID:  account.ID,
		Amount:     50000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		TxHash:     "0xabc123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, deposit.Status)
	assert.NotEmpty(t, deposit.DepositNo)

	// creation never touches the balance
	assert.Equal(t, int64(0), accountBalance(t, db, account.ID))

	// same request id returns the original deposit
	again, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-req-1",
		AccountID:  account.ID,
		Amount:     50000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		TxHash:     "0xabc123",
	})
	require.NoError(t, err)
	assert.Equal(t, deposit.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&model.Deposit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateDepositValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 0, nil)

	_, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-bad-1",
		AccountID:  account.ID,
		Amount:     0,
		Currency:   "USDT",
		Blockchain: "TRC20",
		TxHash:     "0xabc",
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID: "dep-bad-2",
		AccountID: account.ID,
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrIncompleteDepositDetails)

	_, err = svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-bad-3",
		AccountID:  99999,
		Amount:     100,
		Currency:   "USDT",
		Blockchain: "TRC20",
		TxHash:     "0xabc",
	})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestApproveDepositCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 0, nil)

	deposit, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-req-2",
		AccountID:  account.ID,
		Amount:     100000,
		Currency:   "BTC",
		Blockchain: "Bitcoin",
		TxHash:     "0xdef456",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ApproveDeposit(ctx, deposit.ID))
	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))

	// terminal deposits reject further transitions, balance untouched
	err = svc.ApproveDeposit(ctx, deposit.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	err = svc.DeclineDeposit(ctx, deposit.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))

	// exactly one ledger entry for the credit
	var entries []*model.AccountTransaction
	require.NoError(t, db.Where("account_id = ?", account.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TransactionTypeDeposit, entries[0].Type)
	assert.Equal(t, int64(0), entries[0].BalanceBefore)
	assert.Equal(t, int64(100000), entries[0].BalanceAfter)
}

func TestDeclineDepositNoBalanceEffect(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 25000, nil)

	deposit, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-req-3",
		AccountID:  account.ID,
		Amount:     100000,
		Currency:   "ETH",
		Blockchain: "Ethereum",
		TxHash:     "0x789",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeclineDeposit(ctx, deposit.ID))
	assert.Equal(t, int64(25000), accountBalance(t, db, account.ID))

	stored, err := svc.GetDeposit(ctx, deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDeclined, stored.Status)

	err = svc.ApproveDeposit(ctx, deposit.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
	assert.Equal(t, int64(25000), accountBalance(t, db, account.ID))
}

func TestApproveDepositNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())

	err := svc.ApproveDeposit(context.Background(), 12345)
	assert.ErrorIs(t, err, repository.ErrDepositNotFound)
}

func TestApprovalWritesOutboxEvent(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositService(db, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 0, nil)

	deposit, err := svc.CreateDeposit(ctx, &CreateDepositRequest{
		RequestID:  "dep-req-4",
		AccountID:  account.ID,
		Amount:     5000,
		Currency:   "USDT",
		Blockchain: "TRC20",
		TxHash:     "0xoutbox",
	})
	require.NoError(t, err)
	require.NoError(t, svc.ApproveDeposit(ctx, deposit.ID))

	var messages []*model.OutboxMessage
	require.NoError(t, db.Find(&messages).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, deposit.DepositNo, messages[0].MessageKey)
	assert.Equal(t, model.OutboxStatusPending, messages[0].Status)
	assert.Contains(t, messages[0].Payload, model.EventDepositApproved)
}
