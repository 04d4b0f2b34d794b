package ledger

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmadera/payfriend/internal/auth"
	"github.com/kmadera/payfriend/internal/validation"
)

// Handler provides HTTP endpoints for users and transfers.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes sets up ledger routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.UpsertUser)
	r.GET("/users/:uid", h.GetUser)
	r.GET("/users/:uid/transactions", h.ListTransactions)
	r.POST("/transfers", h.SendMoney)
	r.GET("/transactions/:id", h.GetTransaction)
	r.POST("/transactions/:id/fraud-report", h.ReportFraud)
}

// UpsertUser handles POST /users. Idempotent: posting an existing UID
// returns the stored record.
func (h *Handler) UpsertUser(c *gin.Context) {
	var p Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	p.Name = validation.SanitizeString(p.Name, 200)
	p.Email = validation.SanitizeString(p.Email, 320)

	user, err := h.svc.UpsertUser(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("upsert user failed", "uid", p.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error", "message": "Failed to provision user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUser handles GET /users/:uid.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error", "message": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListTransactions handles GET /users/:uid/transactions. Direction tags
// are relative to the user in the path.
func (h *Handler) ListTransactions(c *gin.Context) {
	uid := c.Param("uid")

	txns, err := h.svc.TransactionsForUser(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error", "message": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// TransferRequest is the request body for POST /transfers.
type TransferRequest struct {
	SenderUID             string `json:"senderUid"` // ignored when authenticated
	ReceiverAccountNumber string `json:"receiverAccountNumber" binding:"required"`
	Amount                string `json:"amount" binding:"required"`
	Description           string `json:"description" binding:"required"`
	BypassWarning         bool   `json:"bypassWarning"`
}

// SendMoney handles POST /transfers. The authenticated user is the
// sender; senderUid in the body is honored only for unauthenticated
// (development) requests.
func (h *Handler) SendMoney(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	senderUID := auth.UID(c)
	if senderUID == "" {
		senderUID = req.SenderUID
	}
	if senderUID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Sender identity required"})
		return
	}

	if !validation.IsValidAccountNumber(req.ReceiverAccountNumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Receiver account number must be 6 alphanumeric characters"})
		return
	}
	if !validation.IsValidAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Amount must be a positive decimal"})
		return
	}

	amount, err := ParseCents(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Amount must be a positive decimal"})
		return
	}

	description := validation.SanitizeString(req.Description, validation.MaxStringLength)

	result, err := h.svc.SendMoney(c.Request.Context(), senderUID, req.ReceiverAccountNumber, amount, description, req.BypassWarning)
	if err != nil {
		h.logger.Error("transfer failed", "sender", senderUID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer_error", "message": "Transfer failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles GET /transactions/:id. When the caller is
// authenticated the direction tag is relative to them.
func (h *Handler) GetTransaction(c *gin.Context) {
	txn, err := h.svc.GetTransaction(c.Request.Context(), c.Param("id"), auth.UID(c))
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error", "message": "Failed to load transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// FraudReportRequest is the request body for fraud reports.
type FraudReportRequest struct {
	Report string `json:"report" binding:"required"`
}

// ReportFraud handles POST /transactions/:id/fraud-report.
func (h *Handler) ReportFraud(c *gin.Context) {
	var req FraudReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	report := validation.SanitizeString(req.Report, validation.MaxStringLength)

	result, err := h.svc.ReportFraud(c.Request.Context(), c.Param("id"), report)
	if err != nil {
		h.logger.Error("fraud report failed", "txn", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report_error", "message": "Fraud report failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
