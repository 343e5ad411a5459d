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

var (
	ErrNodeNameRequired    = errors.New("node name is required")
	ErrInvalidTargetAmount = errors.New("target amount must be greater than 0")
)

type NodeService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	nodeRepo        *repository.NodeRepository
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	referralService *ReferralService
}

func NewNodeService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *NodeService {
	return &NodeService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		nodeRepo:        repository.NewNodeRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		referralService: NewReferralService(db, cfg),
	}
}

type ActivateNodeRequest struct {
	RequestID    string
	AccountID    int64
	NodeName     string
	Amount       int64
	TargetAmount int64
}

type ActivateNodeResponse struct {
	NodeID    int64  `json:"node_id"`
	NodeNo    string `json:"node_no"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	TiersPaid int    `json:"tiers_paid"`
}

// ActivateNode locks capital into a new node contract. One transaction
// spans the debit, the node row, the ACTIVATION activity entry, the
// ledger entry and the full referral cascade; a failure anywhere rolls
// back everything including partial bonus credits.
func (s *NodeService) ActivateNode(ctx context.Context, req *ActivateNodeRequest) (*ActivateNodeResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.NodeName == "" {
		return nil, ErrNodeNameRequired
	}
	if req.TargetAmount <= 0 {
		return nil, ErrInvalidTargetAmount
	}

	existing, err := s.nodeRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}
	if existing != nil {
		return s.asResponse(ctx, existing)
	}

	if s.redisClient != nil {
		fundsLock := lock.NewFundsLock(s.redisClient, req.AccountID, req.RequestID)
		if err := fundsLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("system busy, please retry: %w", err)
		}
		defer fundsLock.Unlock(ctx)

		existing, err = s.nodeRepo.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up node: %w", err)
		}
		if existing != nil {
			return s.asResponse(ctx, existing)
		}
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.Balance < req.Amount {
		return nil, repository.ErrInsufficientBalance
	}

	node := &model.Node{
		NodeNo:       idgen.GenerateNodeNo(),
		RequestID:    req.RequestID,
		AccountID:    req.AccountID,
		NodeName:     req.NodeName,
		Amount:       req.Amount,
		TargetAmount: req.TargetAmount,
		Status:       model.NodeStatusActive,
	}

	var tiersPaid int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Deduct(ctx, tx, req.AccountID, req.Amount, account.Version); err != nil {
			return err
		}

		if err := s.nodeRepo.Create(ctx, tx, node); err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}

		activity := &model.NodeActivity{
			NodeID: node.ID,
			Action: model.NodeActionActivation,
			Detail: fmt.Sprintf("Node %s initialized with $%.2f capital.", req.NodeName, float64(req.Amount)/100),
		}
		if err := s.nodeRepo.RecordActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("failed to record node activity: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     req.AccountID,
			ReferenceNo:   node.NodeNo,
			Amount:        -req.Amount,
			Type:          model.TransactionTypeNodeLock,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance - req.Amount,
			Remark:        fmt.Sprintf("capital locked into node %s", req.NodeName),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("failed to record ledger entry: %w", err)
		}

		bonuses, err := s.referralService.PayCascade(ctx, tx, req.AccountID, node)
		if err != nil {
			return err
		}
		tiersPaid = len(bonuses)

		payload := map[string]interface{}{
			"event":         model.EventNodeActivated,
			"node_no":       node.NodeNo,
			"account_id":    req.AccountID,
			"node_name":     req.NodeName,
			"amount":        req.Amount,
			"target_amount": req.TargetAmount,
			"tiers_paid":    tiersPaid,
			"activated_at":  time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(payload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: node.NodeNo,
			Topic:      s.cfg.Kafka.Topic.FinancialEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("failed to write outbox message: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("node activated: nodeNo=%s, accountID=%d, amount=%d, tiersPaid=%d", node.NodeNo, req.AccountID, req.Amount, tiersPaid)

	return &ActivateNodeResponse{
		NodeID:    node.ID,
		NodeNo:    node.NodeNo,
		Status:    node.Status,
		Amount:    node.Amount,
		TiersPaid: tiersPaid,
	}, nil
}

func (s *NodeService) asResponse(ctx context.Context, node *model.Node) (*ActivateNodeResponse, error) {
	bonuses, err := s.referralService.bonusRepo.ListByNodeID(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return &ActivateNodeResponse{
		NodeID:    node.ID,
		NodeNo:    node.NodeNo,
		Status:    node.Status,
		Amount:    node.Amount,
		TiersPaid: len(bonuses),
	}, nil
}

func (s *NodeService) ListNodes(ctx context.Context, accountID int64) ([]*model.Node, error) {
	return s.nodeRepo.ListActiveByAccountID(ctx, accountID)
}

// ListActivity returns a node's lifecycle log, newest first. Ownership
// is checked so one account cannot read another's node history.
func (s *NodeService) ListActivity(ctx context.Context, accountID, nodeID int64) ([]*model.NodeActivity, error) {
	node, err := s.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.AccountID != accountID {
		return nil, repository.ErrNodeNotFound
	}
	return s.nodeRepo.ListActivity(ctx, nodeID)
}
