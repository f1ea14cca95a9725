package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ujjwalsingh108/payment-processing-app/internal/command"
	"github.com/ujjwalsingh108/payment-processing-app/internal/middleware"
	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
)

// TransactionAdmitter defines the write-side operations used by WebhookHandler.
type TransactionAdmitter interface {
	Admit(ctx context.Context, req command.AdmitRequest) (command.AdmitOutcome, error)
}

// TransactionQuerier defines the read-side operations used by WebhookHandler.
type TransactionQuerier interface {
	GetTransaction(ctx context.Context, transactionID string) (*models.TransactionView, error)
}

type WebhookHandler struct {
	admitter TransactionAdmitter
	queries  TransactionQuerier
}

type WebhookRequest struct {
	TransactionID      string  `json:"transaction_id" validate:"required"`
	SourceAccount      string  `json:"source_account" validate:"required"`
	DestinationAccount string  `json:"destination_account" validate:"required"`
	Amount             float64 `json:"amount" validate:"required,gt=0"`
	Currency           string  `json:"currency" validate:"required"`
}

type WebhookResponse struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

type HealthCheckResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"current_time"`
}

func NewWebhookHandler(admitter TransactionAdmitter, queries TransactionQuerier) *WebhookHandler {
	return &WebhookHandler{admitter: admitter, queries: queries}
}

// ReceiveWebhook accepts a transaction webhook and queues it for background
// processing. Duplicates are a success from the sender's perspective; both
// outcomes return 202 so retrying senders never see an error for redelivery.
func (h *WebhookHandler) ReceiveWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	outcome, err := h.admitter.Admit(c.Request.Context(), command.AdmitRequest{
		TransactionID:      req.TransactionID,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		Currency:           req.Currency,
	})
	if err != nil {
		var vErr *command.ValidationError
		if errors.As(err, &vErr) {
			middleware.RespondWithError(c, http.StatusBadRequest, vErr.Reason)
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to accept transaction")
		return
	}

	message := "Transaction accepted for processing"
	if outcome == command.OutcomeDuplicate {
		message = "Transaction already received"
	}
	c.JSON(http.StatusAccepted, WebhookResponse{
		Message:       message,
		TransactionID: req.TransactionID,
	})
}

// GetTransaction returns the current state of a transaction for pollers.
func (h *WebhookHandler) GetTransaction(c *gin.Context) {
	transactionID := c.Param("transactionId")

	view, err := h.queries.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Transaction "+transactionID+" not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get transaction")
		return
	}

	c.JSON(http.StatusOK, view)
}

// HealthCheck reports liveness.
func (h *WebhookHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthCheckResponse{
		Status:      "HEALTHY",
		CurrentTime: time.Now().UTC().Format(time.RFC3339),
	})
}
