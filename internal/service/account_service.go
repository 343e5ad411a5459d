package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"nexusledger/internal/model"
	"nexusledger/internal/repository"
	"nexusledger/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrInvalidAmount          = errors.New("amount must be greater than 0")
	ErrEmailRequired          = errors.New("email is required")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrZeroAdjustment         = errors.New("adjustment delta must be non-zero")
)

type AccountService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

func (s *AccountService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

type CreateAccountRequest struct {
	Email        string
	Username     string
	Role         string
	ReferralCode string // inviter's code, optional
}

// CreateAccount provisions the balance-holding side of a registration.
// Credentials live with the external auth collaborator; this only
// creates the ledger row, resolves the inviter edge and issues a fresh
// referral code.
//
// The referral graph stays acyclic by construction: an edge can only
// point at an account that already exists, so no chain can ever reach
// back to a newer account.
func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*model.Account, error) {
	if req.Email == "" {
		return nil, ErrEmailRequired
	}

	existing, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	var referredBy *int64
	if req.ReferralCode != "" {
		referrer, err := s.accountRepo.GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			// An unknown code drops the edge rather than failing the
			// registration, matching the platform's signup behavior.
			if !errors.Is(err, repository.ErrReferralCodeNotFound) {
				return nil, fmt.Errorf("failed to resolve referral code: %w", err)
			}
		} else {
			referredBy = &referrer.ID
		}
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	code, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Email:        req.Email,
		Username:     req.Username,
		Role:         role,
		Balance:      0,
		ReferralCode: code,
		ReferredBy:   referredBy,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// generateReferralCode issues an 8-char uppercase hex code, retrying on
// the unlikely collision.
func (s *AccountService) generateReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code := strings.ToUpper(hex.EncodeToString(buf))

		_, err := s.accountRepo.GetByReferralCode(ctx, code)
		if errors.Is(err, repository.ErrReferralCodeNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("failed to generate a unique referral code")
}

// AdjustBalance applies an administrative signed delta: positive for a
// reward, negative for a penalty. A penalty obeys the same non-negative
// guard as every other debit, and the ledger row is written in the same
// transaction as the mutation.
func (s *AccountService) AdjustBalance(ctx context.Context, accountID int64, delta int64, remark string) error {
	if delta == 0 {
		return ErrZeroAdjustment
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if delta < 0 {
			if err := s.accountRepo.Deduct(ctx, tx, accountID, -delta, account.Version); err != nil {
				return err
			}
		} else {
			if err := s.accountRepo.Increase(ctx, tx, accountID, delta); err != nil {
				return err
			}
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     accountID,
			ReferenceNo:   idgen.GenerateAdjustNo(),
			Amount:        delta,
			Type:          model.TransactionTypeAdjust,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + delta,
			Remark:        remark,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		return nil
	})
}

func (s *AccountService) ListReferrals(ctx context.Context, accountID int64) ([]*model.Account, error) {
	return s.accountRepo.ListReferrals(ctx, accountID)
}

func (s *AccountService) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	return s.transactionRepo.ListByAccountID(ctx, accountID, page, pageSize)
}
