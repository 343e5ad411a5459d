package handler

import (
	"log"
	"strconv"
	"time"

	"nexusledger/internal/model"
	"nexusledger/internal/service"
	"nexusledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const ctxAccountKey = "account"

// IdentityMiddleware resolves the caller's account from the identity
// header set by the upstream gateway. Authentication itself (tokens,
// sessions) happens there; this core only trusts the forwarded ID.
func IdentityMiddleware(accountService *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-User-ID")
		accountID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || accountID <= 0 {
			response.Unauthorized(c, "missing or invalid identity header")
			c.Abort()
			return
		}

		account, err := accountService.GetAccount(c.Request.Context(), accountID)
		if err != nil {
			response.Unauthorized(c, "unknown account")
			c.Abort()
			return
		}

		c.Set(ctxAccountKey, account)
		c.Next()
	}
}

// AdminMiddleware gates administrative decisions on the account role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := currentAccount(c)
		if account == nil || account.Role != model.RoleAdmin {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentAccount(c *gin.Context) *model.Account {
	v, ok := c.Get(ctxAccountKey)
	if !ok {
		return nil
	}
	account, _ := v.(*model.Account)
	return account
}

// LoggerMiddleware is the access log.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware keeps a panicking handler from taking the process
// down.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
