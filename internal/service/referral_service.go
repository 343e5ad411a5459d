package service

import (
	"context"
	"fmt"

	"nexusledger/internal/config"
	"nexusledger/internal/model"
	"nexusledger/internal/repository"
	"nexusledger/pkg/idgen"

	"gorm.io/gorm"
)

// ReferralService is the cascade engine: given a node activation it
// walks the referral-parent chain and pays the tiered bonuses.
type ReferralService struct {
	db              *gorm.DB
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	bonusRepo       *repository.BonusRepository
	transactionRepo *repository.TransactionRepository
}

func NewReferralService(db *gorm.DB, cfg *config.Config) *ReferralService {
	return &ReferralService{
		db:              db,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		bonusRepo:       repository.NewBonusRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// PayCascade credits each ancestor of the activator with its tier share
// of the locked principal, inside the caller's transaction. The walk is
// hard-bounded by the tier table (three hops), so a malformed or even
// cyclic parent chain cannot loop; it just pays at most the configured
// tiers and stops. Every credit pairs with exactly one ReferralBonus
// row and one ledger entry: never one without the others.
//
// The recorded referred account is always the original activator, at
// every tier, not the intermediate link.
func (s *ReferralService) PayCascade(ctx context.Context, tx *gorm.DB, activatorID int64, node *model.Node) ([]*model.ReferralBonus, error) {
	var paid []*model.ReferralBonus

	currentID := activatorID
	for i, basisPoints := range s.cfg.Business.TierBasisPoints() {
		tier := i + 1

		referrer, err := s.accountRepo.GetReferrer(ctx, tx, currentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tier %d referrer: %w", tier, err)
		}
		if referrer == nil {
			break
		}

		bonusAmount := node.Amount * basisPoints / 10000

		if err := s.accountRepo.Increase(ctx, tx, referrer.ID, bonusAmount); err != nil {
			return nil, fmt.Errorf("failed to credit tier %d bonus: %w", tier, err)
		}

		bonus := &model.ReferralBonus{
			BonusNo:           idgen.GenerateBonusNo(),
			AccountID:         referrer.ID,
			ReferredAccountID: activatorID,
			NodeID:            node.ID,
			Amount:            bonusAmount,
			Tier:              tier,
		}
		if err := s.bonusRepo.Create(ctx, tx, bonus); err != nil {
			return nil, fmt.Errorf("failed to record tier %d bonus: %w", tier, err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     referrer.ID,
			ReferenceNo:   bonus.BonusNo,
			Amount:        bonusAmount,
			Type:          model.TransactionTypeReferralBonus,
			BalanceBefore: referrer.Balance,
			BalanceAfter:  referrer.Balance + bonusAmount,
			Remark:        fmt.Sprintf("tier %d referral bonus for node %s", tier, node.NodeNo),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return nil, fmt.Errorf("failed to record ledger entry: %w", err)
		}

		paid = append(paid, bonus)
		currentID = referrer.ID
	}

	return paid, nil
}

// BonusView is a bonus row joined with who triggered it, for history
// display.
type BonusView struct {
	*model.ReferralBonus
	ReferredEmail    string `json:"referred_email"`
	ReferredUsername string `json:"referred_username"`
}

func (s *ReferralService) ListBonuses(ctx context.Context, accountID int64, page, pageSize int) ([]*BonusView, int64, error) {
	bonuses, total, err := s.bonusRepo.ListByAccountID(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	// one lookup per distinct activator; bonus pages are small
	activators := make(map[int64]*model.Account)
	views := make([]*BonusView, 0, len(bonuses))
	for _, bonus := range bonuses {
		activator, ok := activators[bonus.ReferredAccountID]
		if !ok {
			activator, err = s.accountRepo.GetByID(ctx, bonus.ReferredAccountID)
			if err != nil {
				return nil, 0, err
			}
			activators[bonus.ReferredAccountID] = activator
		}
		views = append(views, &BonusView{
			ReferralBonus:    bonus,
			ReferredEmail:    activator.Email,
			ReferredUsername: activator.Username,
		})
	}

	return views, total, nil
}
