package handler

import (
	"errors"
	"strconv"

	"nexusledger/internal/config"
	"nexusledger/internal/repository"
	"nexusledger/internal/service"
	"nexusledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler carries all service dependencies.
type Handler struct {
	accountService    *service.AccountService
	depositService    *service.DepositService
	withdrawalService *service.WithdrawalService
	nodeService       *service.NodeService
	referralService   *service.ReferralService
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		accountService:    service.NewAccountService(db),
		depositService:    service.NewDepositService(db, cfg),
		withdrawalService: service.NewWithdrawalService(db, rdb, cfg),
		nodeService:       service.NewNodeService(db, rdb, cfg),
		referralService:   service.NewReferralService(db, cfg),
	}
}

// respondError maps the service error taxonomy onto business codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, repository.ErrDepositNotFound):
		response.BusinessError(c, response.CodeDepositNotFound, err.Error())
	case errors.Is(err, repository.ErrWithdrawalNotFound):
		response.BusinessError(c, response.CodeWithdrawalNotFound, err.Error())
	case errors.Is(err, repository.ErrNodeNotFound):
		response.BusinessError(c, response.CodeNodeNotFound, err.Error())
	case errors.Is(err, repository.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, repository.ErrInvalidStateTransition):
		response.BusinessError(c, response.CodeInvalidStateTransition, err.Error())
	case errors.Is(err, repository.ErrReferralCodeNotFound):
		response.BusinessError(c, response.CodeReferralCodeNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrZeroAdjustment),
		errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrEmailAlreadyRegistered),
		errors.Is(err, service.ErrIncompleteDepositDetails),
		errors.Is(err, service.ErrIncompleteWithdrawalDetails),
		errors.Is(err, service.ErrNodeNameRequired),
		errors.Is(err, service.ErrInvalidTargetAmount):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ============================================================
// Account endpoints
// ============================================================

// GetBalance returns the caller's current balance.
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account := currentAccount(c)

	response.Success(c, gin.H{
		"account_id": account.ID,
		"balance":    account.Balance,
	})
}

// CreateAccountRequest is submitted by the registration collaborator
// once credentials are established on its side.
type CreateAccountRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	ReferralCode string `json:"referral_code"`
}

// CreateAccount provisions the ledger side of a new registration.
// POST /api/v1/account/create
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid parameters: "+err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), &service.CreateAccountRequest{
		Email:        req.Email,
		Username:     req.Username,
		Role:         req.Role,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_id":    account.ID,
		"referral_code": account.ReferralCode,
		"referred_by":   account.ReferredBy,
	})
}

// ListReferrals returns the caller's direct downline.
// GET /api/v1/account/referrals
func (h *Handler) ListReferrals(c *gin.Context) {
	account := currentAccount(c)

	referrals, err := h.accountService.ListReferrals(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]gin.H, 0, len(referrals))
	for _, r := range referrals {
		list = append(list, gin.H{
			"email":      r.Email,
			"username":   r.Username,
			"balance":    r.Balance,
			"created_at": r.CreatedAt,
		})
	}

	response.Success(c, list)
}

// ListTransactions returns the caller's balance ledger, newest first.
// GET /api/v1/account/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	account := currentAccount(c)
	page, pageSize := pagination(c)

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), account.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Deposit endpoints
// ============================================================

type CreateDepositRequest struct {
	RequestID  string `json:"request_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	Currency   string `json:"currency" binding:"required"`
	Blockchain string `json:"blockchain" binding:"required"`
	TxHash     string `json:"tx_hash" binding:"required"`
}

// CreateDeposit records a claimed on-chain transfer for review.
// POST /api/v1/deposit/create
func (h *Handler) CreateDeposit(c *gin.Context) {
	account := currentAccount(c)

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid parameters: "+err.Error())
		return
	}

	deposit, err := h.depositService.CreateDeposit(c.Request.Context(), &service.CreateDepositRequest{
		RequestID:  req.RequestID,
		AccountID:  account.ID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Blockchain: req.Blockchain,
		TxHash:     req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":         deposit.ID,
		"deposit_no": deposit.DepositNo,
		"status":     deposit.Status,
	})
}

// ListDeposits returns the caller's deposit history.
// GET /api/v1/deposit/history
func (h *Handler) ListDeposits(c *gin.Context) {
	account := currentAccount(c)
	page, pageSize := pagination(c)

	deposits, total, err := h.depositService.ListAccountDeposits(c.Request.Context(), account.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      deposits,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Withdrawal endpoints
// ============================================================

type CreateWithdrawalRequest struct {
	RequestID  string `json:"request_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	Currency   string `json:"currency" binding:"required"`
	Blockchain string `json:"blockchain" binding:"required"`
	Address    string `json:"address" binding:"required"`
}

// CreateWithdrawal reserves funds and queues the payout for review.
// POST /api/v1/withdrawal/create
//
// The reservation happens here, not at approval: the pending row and
// the debit are one atomic unit, so concurrent requests cannot
// double-spend a balance.
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	account := currentAccount(c)

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid parameters: "+err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.CreateWithdrawal(c.Request.Context(), &service.CreateWithdrawalRequest{
		RequestID:  req.RequestID,
		AccountID:  account.ID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Blockchain: req.Blockchain,
		Address:    req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":            withdrawal.ID,
		"withdrawal_no": withdrawal.WithdrawalNo,
		"status":        withdrawal.Status,
	})
}

// ListWithdrawals returns the caller's withdrawal history.
// GET /api/v1/withdrawal/history
func (h *Handler) ListWithdrawals(c *gin.Context) {
	account := currentAccount(c)
	page, pageSize := pagination(c)

	withdrawals, total, err := h.withdrawalService.ListAccountWithdrawals(c.Request.Context(), account.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      withdrawals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Node endpoints
// ============================================================

type ActivateNodeRequest struct {
	RequestID    string `json:"request_id" binding:"required"`
	NodeName     string `json:"node_name" binding:"required"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	TargetAmount int64  `json:"target_amount" binding:"required,gt=0"`
}

// ActivateNode locks capital into a new node contract and triggers the
// referral cascade.
// POST /api/v1/node/activate
func (h *Handler) ActivateNode(c *gin.Context) {
	account := currentAccount(c)

	var req ActivateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.nodeService.ActivateNode(c.Request.Context(), &service.ActivateNodeRequest{
		RequestID:    req.RequestID,
		AccountID:    account.ID,
		NodeName:     req.NodeName,
		Amount:       req.Amount,
		TargetAmount: req.TargetAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ListNodes returns the caller's active nodes.
// GET /api/v1/node/list
func (h *Handler) ListNodes(c *gin.Context) {
	account := currentAccount(c)

	nodes, err := h.nodeService.ListNodes(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, nodes)
}

// ListNodeActivity returns one node's lifecycle log, newest first.
// GET /api/v1/node/:id/activity
func (h *Handler) ListNodeActivity(c *gin.Context) {
	account := currentAccount(c)

	nodeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid node id")
		return
	}

	activity, err := h.nodeService.ListActivity(c.Request.Context(), account.ID, nodeID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, activity)
}

// ============================================================
// Referral bonus endpoints
// ============================================================

// ListBonuses returns the caller's referral bonus history.
// GET /api/v1/referral/bonuses
func (h *Handler) ListBonuses(c *gin.Context) {
	account := currentAccount(c)
	page, pageSize := pagination(c)

	bonuses, total, err := h.referralService.ListBonuses(c.Request.Context(), account.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      bonuses,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Admin endpoints
// ============================================================

// AdminListDeposits lists deposits across all accounts.
// GET /api/v1/admin/deposits
func (h *Handler) AdminListDeposits(c *gin.Context) {
	page, pageSize := pagination(c)

	deposits, total, err := h.depositService.ListAllDeposits(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      deposits,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminApproveDeposit approves a pending deposit and credits the owner.
// POST /api/v1/admin/deposits/:id/approve
func (h *Handler) AdminApproveDeposit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid deposit id")
		return
	}

	if err := h.depositService.ApproveDeposit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "deposit approved"})
}

// AdminDeclineDeposit declines a pending deposit, no balance effect.
// POST /api/v1/admin/deposits/:id/decline
func (h *Handler) AdminDeclineDeposit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid deposit id")
		return
	}

	if err := h.depositService.DeclineDeposit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "deposit declined"})
}

// AdminListWithdrawals lists withdrawals across all accounts.
// GET /api/v1/admin/withdrawals
func (h *Handler) AdminListWithdrawals(c *gin.Context) {
	page, pageSize := pagination(c)

	withdrawals, total, err := h.withdrawalService.ListAllWithdrawals(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      withdrawals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminApproveWithdrawal approves a pending withdrawal; the funds were
// already reserved at creation.
// POST /api/v1/admin/withdrawals/:id/approve
func (h *Handler) AdminApproveWithdrawal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid withdrawal id")
		return
	}

	if err := h.withdrawalService.ApproveWithdrawal(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "withdrawal approved"})
}

// AdminDeclineWithdrawal declines a pending withdrawal and refunds the
// reservation.
// POST /api/v1/admin/withdrawals/:id/decline
func (h *Handler) AdminDeclineWithdrawal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid withdrawal id")
		return
	}

	if err := h.withdrawalService.DeclineWithdrawal(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "withdrawal declined"})
}

type AdjustBalanceRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// AdminAdjustBalance applies a signed delta to an account: positive for
// a reward, negative for a penalty.
// POST /api/v1/admin/accounts/:id/adjust
func (h *Handler) AdminAdjustBalance(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid account id")
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid parameters: "+err.Error())
		return
	}

	if err := h.accountService.AdjustBalance(c.Request.Context(), accountID, req.Amount, req.Remark); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "balance adjusted"})
}
