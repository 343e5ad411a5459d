package repository

import (
	"context"

	"nexusledger/internal/model"

	"gorm.io/gorm"
)

type BonusRepository struct {
	db *gorm.DB
}

func NewBonusRepository(db *gorm.DB) *BonusRepository {
	return &BonusRepository{db: db}
}

func (r *BonusRepository) Create(ctx context.Context, tx *gorm.DB, bonus *model.ReferralBonus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(bonus).Error
}

func (r *BonusRepository) ListByAccountID(ctx context.Context, accountID int64, page, pageSize int) ([]*model.ReferralBonus, int64, error) {
	var bonuses []*model.ReferralBonus
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ReferralBonus{}).Where("account_id = ?", accountID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bonuses).Error

	return bonuses, total, err
}

func (r *BonusRepository) ListByNodeID(ctx context.Context, nodeID int64) ([]*model.ReferralBonus, error) {
	var bonuses []*model.ReferralBonus
	err := r.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("tier ASC").
		Find(&bonuses).Error
	return bonuses, err
}
