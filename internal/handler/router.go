package handler

import (
	"nexusledger/internal/config"
	"nexusledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter wires middleware and routes.
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)
	accountService := service.NewAccountService(db)

	api := r.Group("/api/v1")

	// account provisioning is called by the registration collaborator
	// before the new user has an identity to forward
	api.POST("/account/create", h.CreateAccount)

	authed := api.Group("")
	authed.Use(IdentityMiddleware(accountService))
	{
		account := authed.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.GET("/referrals", h.ListReferrals)
			account.GET("/transactions", h.ListTransactions)
		}

		deposit := authed.Group("/deposit")
		{
			deposit.POST("/create", h.CreateDeposit)
			deposit.GET("/history", h.ListDeposits)
		}

		withdrawal := authed.Group("/withdrawal")
		{
			withdrawal.POST("/create", h.CreateWithdrawal)
			withdrawal.GET("/history", h.ListWithdrawals)
		}

		node := authed.Group("/node")
		{
			node.POST("/activate", h.ActivateNode)
			node.GET("/list", h.ListNodes)
			node.GET("/:id/activity", h.ListNodeActivity)
		}

		referral := authed.Group("/referral")
		{
			referral.GET("/bonuses", h.ListBonuses)
		}

		admin := authed.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.GET("/deposits", h.AdminListDeposits)
			admin.POST("/deposits/:id/approve", h.AdminApproveDeposit)
			admin.POST("/deposits/:id/decline", h.AdminDeclineDeposit)
			admin.GET("/withdrawals", h.AdminListWithdrawals)
			admin.POST("/withdrawals/:id/approve", h.AdminApproveWithdrawal)
			admin.POST("/withdrawals/:id/decline", h.AdminDeclineWithdrawal)
			admin.POST("/accounts/:id/adjust", h.AdminAdjustBalance)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
