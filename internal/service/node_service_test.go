package service

import (
	"context"
	"testing"

	"nexusledger/internal/model"
	"nexusledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateNodeWithoutReferrer(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	result, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-1",
		AccountID:    account.ID,
		NodeName:     "Quantum Alpha",
		Amount:       50000,
		TargetAmount: 150000,
	})
	require.NoError(t, err)
	assert.Equal(t, model.NodeStatusActive, result.Status)
	assert.Zero(t, result.TiersPaid)

	// activator debited by exactly the locked amount
	assert.Equal(t, int64(50000), accountBalance(t, db, account.ID))

	var nodes []*model.Node
	require.NoError(t, db.Find(&nodes).Error)
	require.Len(t, nodes, 1)
	assert.Equal(t, int64(50000), nodes[0].Amount)
	assert.Equal(t, int64(150000), nodes[0].TargetAmount)

	var activities []*model.NodeActivity
	require.NoError(t, db.Where("node_id = ?", nodes[0].ID).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, model.NodeActionActivation, activities[0].Action)
	assert.Contains(t, activities[0].Detail, "Quantum Alpha")

	// no referrer, no bonuses
	var bonusCount int64
	require.NoError(t, db.Model(&model.ReferralBonus{}).Count(&bonusCount).Error)
	assert.Zero(t, bonusCount)
}

func TestActivateNodeValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 100000, nil)

	_, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-bad-1",
		AccountID:    account.ID,
		Amount:       50000,
		TargetAmount: 150000,
	})
	assert.ErrorIs(t, err, ErrNodeNameRequired)

	_, err = svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID: "node-bad-2",
		AccountID: account.ID,
		NodeName:  "No Target",
		Amount:    50000,
	})
	assert.ErrorIs(t, err, ErrInvalidTargetAmount)

	assert.Equal(t, int64(100000), accountBalance(t, db, account.ID))
}

func TestActivateNodeInsufficientFunds(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	account := createTestAccount(t, db, 10000, nil)

	_, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-2",
		AccountID:    account.ID,
		NodeName:     "Overreach",
		Amount:       20000,
		TargetAmount: 50000,
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)

	assert.Equal(t, int64(10000), accountBalance(t, db, account.ID))
	var count int64
	require.NoError(t, db.Model(&model.Node{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCascadeTwoLevels(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	// C refers B refers A; C has no referrer
	accountC := createTestAccount(t, db, 0, nil)
	accountB := createTestAccount(t, db, 0, &accountC.ID)
	accountA := createTestAccount(t, db, 100000, &accountB.ID)

	result, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-3",
		AccountID:    accountA.ID,
		NodeName:     "Genesis",
		Amount:       100000,
		TargetAmount: 300000,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TiersPaid)

	// A debited in full; B gets 7%, C gets 3%
	assert.Equal(t, int64(0), accountBalance(t, db, accountA.ID))
	assert.Equal(t, int64(7000), accountBalance(t, db, accountB.ID))
	assert.Equal(t, int64(3000), accountBalance(t, db, accountC.ID))

	var bonuses []*model.ReferralBonus
	require.NoError(t, db.Order("tier ASC").Find(&bonuses).Error)
	require.Len(t, bonuses, 2)

	assert.Equal(t, accountB.ID, bonuses[0].AccountID)
	assert.Equal(t, 1, bonuses[0].Tier)
	assert.Equal(t, int64(7000), bonuses[0].Amount)

	assert.Equal(t, accountC.ID, bonuses[1].AccountID)
	assert.Equal(t, 2, bonuses[1].Tier)
	assert.Equal(t, int64(3000), bonuses[1].Amount)

	// both rows name the original activator, not the intermediate link
	for _, bonus := range bonuses {
		assert.Equal(t, accountA.ID, bonus.ReferredAccountID)
	}
}

func TestCascadeStopsAtThreeTiers(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	// chain of five ancestors; only three may be paid
	ancestor4 := createTestAccount(t, db, 0, nil)
	ancestor3 := createTestAccount(t, db, 0, &ancestor4.ID)
	ancestor2 := createTestAccount(t, db, 0, &ancestor3.ID)
	ancestor1 := createTestAccount(t, db, 0, &ancestor2.ID)
	activator := createTestAccount(t, db, 100000, &ancestor1.ID)

	result, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-4",
		AccountID:    activator.ID,
		NodeName:     "Deep Chain",
		Amount:       100000,
		TargetAmount: 200000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TiersPaid)

	assert.Equal(t, int64(7000), accountBalance(t, db, ancestor1.ID))
	assert.Equal(t, int64(3000), accountBalance(t, db, ancestor2.ID))
	assert.Equal(t, int64(1000), accountBalance(t, db, ancestor3.ID))
	assert.Equal(t, int64(0), accountBalance(t, db, ancestor4.ID))
}

func TestCascadeBoundedOnCyclicGraph(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	// malformed two-cycle: A refers B, B refers A. The walk must
	// terminate after exactly three hops instead of looping.
	accountA := createTestAccount(t, db, 100000, nil)
	accountB := createTestAccount(t, db, 0, &accountA.ID)
	require.NoError(t, db.Model(&model.Account{}).Where("id = ?", accountA.ID).Update("referred_by", accountB.ID).Error)

	result, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-5",
		AccountID:    accountA.ID,
		NodeName:     "Cycle",
		Amount:       100000,
		TargetAmount: 200000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TiersPaid)

	var bonusCount int64
	require.NoError(t, db.Model(&model.ReferralBonus{}).Count(&bonusCount).Error)
	assert.Equal(t, int64(3), bonusCount)
}

func TestActivateNodeIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	referrer := createTestAccount(t, db, 0, nil)
	activator := createTestAccount(t, db, 100000, &referrer.ID)

	first, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-6",
		AccountID:    activator.ID,
		NodeName:     "Once Only",
		Amount:       50000,
		TargetAmount: 100000,
	})
	require.NoError(t, err)

	// a duplicate submission returns the original node and pays nothing
	again, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-6",
		AccountID:    activator.ID,
		NodeName:     "Once Only",
		Amount:       50000,
		TargetAmount: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.NodeID, again.NodeID)
	assert.Equal(t, first.TiersPaid, again.TiersPaid)

	assert.Equal(t, int64(50000), accountBalance(t, db, activator.ID))
	assert.Equal(t, int64(3500), accountBalance(t, db, referrer.ID))
}

func TestListActivityOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	owner := createTestAccount(t, db, 100000, nil)
	stranger := createTestAccount(t, db, 0, nil)

	result, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-7",
		AccountID:    owner.ID,
		NodeName:     "Private",
		Amount:       10000,
		TargetAmount: 30000,
	})
	require.NoError(t, err)

	activity, err := svc.ListActivity(ctx, owner.ID, result.NodeID)
	require.NoError(t, err)
	assert.Len(t, activity, 1)

	_, err = svc.ListActivity(ctx, stranger.ID, result.NodeID)
	assert.ErrorIs(t, err, repository.ErrNodeNotFound)
}

func TestActivationLedgerEntries(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db, nil, newTestConfig())
	ctx := context.Background()

	referrer := createTestAccount(t, db, 0, nil)
	activator := createTestAccount(t, db, 200000, &referrer.ID)

	_, err := svc.ActivateNode(ctx, &ActivateNodeRequest{
		RequestID:    "node-req-8",
		AccountID:    activator.ID,
		NodeName:     "Ledgered",
		Amount:       100000,
		TargetAmount: 250000,
	})
	require.NoError(t, err)

	var lockEntries []*model.AccountTransaction
	require.NoError(t, db.Where("account_id = ? AND type = ?", activator.ID, model.TransactionTypeNodeLock).Find(&lockEntries).Error)
	require.Len(t, lockEntries, 1)
	assert.Equal(t, int64(-100000), lockEntries[0].Amount)
	assert.Equal(t, int64(200000), lockEntries[0].BalanceBefore)
	assert.Equal(t, int64(100000), lockEntries[0].BalanceAfter)

	var bonusEntries []*model.AccountTransaction
	require.NoError(t, db.Where("account_id = ? AND type = ?", referrer.ID, model.TransactionTypeReferralBonus).Find(&bonusEntries).Error)
	require.Len(t, bonusEntries, 1)
	assert.Equal(t, int64(7000), bonusEntries[0].Amount)
}
