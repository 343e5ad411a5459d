package repository

import (
	"context"
	"errors"

	"nexusledger/internal/model"

	"gorm.io/gorm"
)

var ErrNodeNotFound = errors.New("node not found")

type NodeRepository struct {
	db *gorm.DB
}

func NewNodeRepository(db *gorm.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

func (r *NodeRepository) Create(ctx context.Context, tx *gorm.DB, node *model.Node) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(node).Error
}

func (r *NodeRepository) GetByID(ctx context.Context, id int64) (*model.Node, error) {
	var node model.Node
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return &node, nil
}

func (r *NodeRepository) GetByRequestID(ctx context.Context, requestID string) (*model.Node, error) {
	var node model.Node
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (r *NodeRepository) ListActiveByAccountID(ctx context.Context, accountID int64) ([]*model.Node, error) {
	var nodes []*model.Node
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, model.NodeStatusActive).
		Order("created_at DESC").
		Find(&nodes).Error
	return nodes, err
}

// RecordActivity appends a lifecycle entry for a node. Must run inside
// the same transaction as the event it describes.
func (r *NodeRepository) RecordActivity(ctx context.Context, tx *gorm.DB, activity *model.NodeActivity) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(activity).Error
}

func (r *NodeRepository) ListActivity(ctx context.Context, nodeID int64) ([]*model.NodeActivity, error) {
	var activities []*model.NodeActivity
	err := r.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("created_at DESC, id DESC").
		Find(&activities).Error
	return activities, err
}
