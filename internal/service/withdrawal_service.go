package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"nexusledger/internal/config"
	"nexusledger/internal/infrastructure/lock"
	"nexusledger/internal/model"
	"nexusledger/internal/repository"
	"nexusledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var ErrIncompleteWithdrawalDetails = errors.New("currency, blockchain and address are required")

type WithdrawalService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	withdrawalRepo  *repository.WithdrawalRepository
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewWithdrawalService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WithdrawalService {
	return &WithdrawalService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		withdrawalRepo:  repository.NewWithdrawalRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateWithdrawalRequest struct {
	RequestID  string
	AccountID  int64
	Amount     int64
	Currency   string
	Blockchain string
	Address    string
}

// CreateWithdrawal reserves the funds at request time: the pending row
// and the debit commit in one transaction. Reserving here, not at
// approval, is what stops N concurrent requests from each passing a
// balance check against the same stale balance.
func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, req *CreateWithdrawalRequest) (*model.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Currency == "" || req.Blockchain == "" || req.Address == "" {
		return nil, ErrIncompleteWithdrawalDetails
	}

	existing, err := s.withdrawalRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up withdrawal: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if s.redisClient != nil {
		fundsLock := lock.NewFundsLock(s.redisClient, req.AccountID, req.RequestID)
		if err := fundsLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("system busy, please retry: %w", err)
		}
		defer fundsLock.Unlock(ctx)

		// idempotency re-check now that we hold the lock
		existing, err = s.withdrawalRepo.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up withdrawal: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.Balance < req.Amount {
		return nil, repository.ErrInsufficientBalance
	}

	withdrawal := &model.Withdrawal{
		WithdrawalNo: idgen.GenerateWithdrawalNo(),
		RequestID:    req.RequestID,
		AccountID:    req.AccountID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Blockchain:   req.Blockchain,
		Address:      req.Address,
		Status:       model.RequestStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// the conditional debit is the authoritative sufficiency check;
		// if a concurrent request drained the balance first, this
		// matches zero rows and the whole creation rolls back
		if err := s.accountRepo.Deduct(ctx, tx, req.AccountID, req.Amount, account.Version); err != nil {
			return err
		}

		if err := s.withdrawalRepo.Create(ctx, tx, withdrawal); err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     req.AccountID,
			ReferenceNo:   withdrawal.WithdrawalNo,
			Amount:        -req.Amount,
			Type:          model.TransactionTypeWithdraw,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance - req.Amount,
			Remark:        fmt.Sprintf("withdrawal reserved, %s to %s", req.Currency, req.Address),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		return s.writeEvent(ctx, tx, model.EventWithdrawalCreated, withdrawal)
	})

	if err != nil {
		return nil, err
	}

	log.Printf("withdrawal created: withdrawalNo=%s, accountID=%d, amount=%d", withdrawal.WithdrawalNo, req.AccountID, req.Amount)
	return withdrawal, nil
}

// ApproveWithdrawal finalizes a payout. The funds already left the
// balance when the request was created, so this is a pure status
// transition.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, id int64) error {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if withdrawal.Status != model.RequestStatusPending {
		return repository.ErrInvalidStateTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawalRepo.UpdateStatus(ctx, tx, id, model.RequestStatusPending, model.RequestStatusApproved); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventWithdrawalApproved, withdrawal)
	})

	if err != nil {
		return err
	}

	log.Printf("withdrawal approved: withdrawalNo=%s, accountID=%d", withdrawal.WithdrawalNo, withdrawal.AccountID)
	return nil
}

// DeclineWithdrawal reverses the reservation: the status transition and
// the refund commit together.
func (s *WithdrawalService) DeclineWithdrawal(ctx context.Context, id int64) error {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if withdrawal.Status != model.RequestStatusPending {
		return repository.ErrInvalidStateTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawalRepo.UpdateStatus(ctx, tx, id, model.RequestStatusPending, model.RequestStatusDeclined); err != nil {
			return err
		}

		account, err := s.accountRepo.GetByIDTx(ctx, tx, withdrawal.AccountID)
		if err != nil {
			return err
		}

		if err := s.accountRepo.Increase(ctx, tx, withdrawal.AccountID, withdrawal.Amount); err != nil {
			return fmt.Errorf("failed to refund reservation: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     withdrawal.AccountID,
			ReferenceNo:   withdrawal.WithdrawalNo,
			Amount:        withdrawal.Amount,
			Type:          model.TransactionTypeWithdrawRefund,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + withdrawal.Amount,
			Remark:        "withdrawal declined, reservation refunded",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		return s.writeEvent(ctx, tx, model.EventWithdrawalDeclined, withdrawal)
	})

	if err != nil {
		return err
	}

	log.Printf("withdrawal declined: withdrawalNo=%s, accountID=%d, refunded=%d", withdrawal.WithdrawalNo, withdrawal.AccountID, withdrawal.Amount)
	return nil
}

func (s *WithdrawalService) writeEvent(ctx context.Context, tx *gorm.DB, event string, withdrawal *model.Withdrawal) error {
	payload := map[string]interface{}{
		"event":         event,
		"withdrawal_no": withdrawal.WithdrawalNo,
		"account_id":    withdrawal.AccountID,
		"amount":        withdrawal.Amount,
		"currency":      withdrawal.Currency,
		"blockchain":    withdrawal.Blockchain,
		"address":       withdrawal.Address,
		"occurred_at":   time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: withdrawal.WithdrawalNo,
		Topic:      s.cfg.Kafka.Topic.FinancialEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return fmt.Errorf("failed to write outbox message: %w", err)
	}
	return nil
}

func (s *WithdrawalService) GetWithdrawal(ctx context.Context, id int64) (*model.Withdrawal, error) {
	return s.withdrawalRepo.GetByID(ctx, id)
}

func (s *WithdrawalService) ListAccountWithdrawals(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Withdrawal, int64, error) {
	return s.withdrawalRepo.ListByAccountID(ctx, accountID, page, pageSize)
}

func (s *WithdrawalService) ListAllWithdrawals(ctx context.Context, page, pageSize int) ([]*model.Withdrawal, int64, error) {
	return s.withdrawalRepo.ListAll(ctx, page, pageSize)
}
