package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"nexusledger/internal/config"
	"nexusledger/internal/model"
	"nexusledger/internal/repository"
	"nexusledger/pkg/idgen"

	"gorm.io/gorm"
)

var ErrIncompleteDepositDetails = errors.New("currency, blockchain and tx hash are required")

type DepositService struct {
	db              *gorm.DB
	cfg             *config.Config
	depositRepo     *repository.DepositRepository
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewDepositService(db *gorm.DB, cfg *config.Config) *DepositService {
	return &DepositService{
		db:              db,
		cfg:             cfg,
		depositRepo:     repository.NewDepositRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateDepositRequest struct {
	RequestID  string
	AccountID  int64
	Amount     int64
	Currency   string
	Blockchain string
	TxHash     string
}

// CreateDeposit records a user's claim that funds were sent. The hash
// is stored as claimed; nothing touches the balance until an
// administrator approves.
func (s *DepositService) CreateDeposit(ctx context.Context, req *CreateDepositRequest) (*model.Deposit, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Currency == "" || req.Blockchain == "" || req.TxHash == "" {
		return nil, ErrIncompleteDepositDetails
	}

	// idempotency: a resubmitted request returns the original deposit
	existing, err := s.depositRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up deposit: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	deposit := &model.Deposit{
		DepositNo:  idgen.GenerateDepositNo(),
		RequestID:  req.RequestID,
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Blockchain: req.Blockchain,
		TxHash:     req.TxHash,
		Status:     model.RequestStatusPending,
	}

	if err := s.depositRepo.Create(ctx, nil, deposit); err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	return deposit, nil
}

// ApproveDeposit credits the owning account by the deposit amount,
// exactly once. The status transition and the credit commit together or
// not at all.
func (s *DepositService) ApproveDeposit(ctx context.Context, id int64) error {
	deposit, err := s.depositRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if deposit.Status != model.RequestStatusPending {
		return repository.ErrInvalidStateTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// the status guard inside UpdateStatus is the authoritative
		// exactly-once check; a racing approval loses here
		if err := s.depositRepo.UpdateStatus(ctx, tx, id, model.RequestStatusPending, model.RequestStatusApproved); err != nil {
			return err
		}

		account, err := s.accountRepo.GetByIDTx(ctx, tx, deposit.AccountID)
		if err != nil {
			return err
		}

		if err := s.accountRepo.Increase(ctx, tx, deposit.AccountID, deposit.Amount); err != nil {
			return fmt.Errorf("failed to credit deposit: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     deposit.AccountID,
			ReferenceNo:   deposit.DepositNo,
			Amount:        deposit.Amount,
			Type:          model.TransactionTypeDeposit,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + deposit.Amount,
			Remark:        fmt.Sprintf("deposit approved, %s on %s", deposit.Currency, deposit.Blockchain),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		return s.writeEvent(ctx, tx, model.EventDepositApproved, deposit)
	})

	if err != nil {
		return err
	}

	log.Printf("deposit approved: depositNo=%s, accountID=%d, amount=%d", deposit.DepositNo, deposit.AccountID, deposit.Amount)
	return nil
}

// DeclineDeposit finalizes the request without any balance effect; the
// funds were never credited.
func (s *DepositService) DeclineDeposit(ctx context.Context, id int64) error {
	deposit, err := s.depositRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if deposit.Status != model.RequestStatusPending {
		return repository.ErrInvalidStateTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.depositRepo.UpdateStatus(ctx, tx, id, model.RequestStatusPending, model.RequestStatusDeclined); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, model.EventDepositDeclined, deposit)
	})

	if err != nil {
		return err
	}

	log.Printf("deposit declined: depositNo=%s, accountID=%d", deposit.DepositNo, deposit.AccountID)
	return nil
}

func (s *DepositService) writeEvent(ctx context.Context, tx *gorm.DB, event string, deposit *model.Deposit) error {
	payload := map[string]interface{}{
		"event":      event,
		"deposit_no": deposit.DepositNo,
		"account_id": deposit.AccountID,
		"amount":     deposit.Amount,
		"currency":   deposit.Currency,
		"blockchain": deposit.Blockchain,
		"decided_at": time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: deposit.DepositNo,
		Topic:      s.cfg.Kafka.Topic.FinancialEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return fmt.Errorf("failed to write outbox message: %w", err)
	}
	return nil
}

func (s *DepositService) GetDeposit(ctx context.Context, id int64) (*model.Deposit, error) {
	return s.depositRepo.GetByID(ctx, id)
}

func (s *DepositService) ListAccountDeposits(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Deposit, int64, error) {
	return s.depositRepo.ListByAccountID(ctx, accountID, page, pageSize)
}

func (s *DepositService) ListAllDeposits(ctx context.Context, page, pageSize int) ([]*model.Deposit, int64, error) {
	return s.depositRepo.ListAll(ctx, page, pageSize)
}
