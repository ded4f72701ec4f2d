package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// paymentHandler serves payment execution, reconciliation and bank details.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

func newPaymentHandler(ps portssvc.PaymentSvcFacade) *paymentHandler {
	return &paymentHandler{paymentService: ps}
}

// RegisterPaymentRoutes registers payment routes.
func RegisterPaymentRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := newPaymentHandler(paymentService)

	rg.POST("/payout-batches/:id/payment", h.initiate)
	rg.POST("/payout-batches/:id/reconciliation", h.reconcile)

	payments := rg.Group("/payments")
	{
		payments.GET("", h.listTransactions)
		payments.GET("/:id", h.getTransaction)
		payments.POST("/:id/confirm", h.confirm)
		payments.POST("/:id/fail", h.fail)
		payments.POST("/:id/retry", h.retry)
		payments.POST("/:id/cancel", h.cancel)
	}

	reconciliations := rg.Group("/reconciliations")
	{
		reconciliations.GET("", h.listReconciliations)
		reconciliations.POST("/:id/resolve", h.resolve)
	}

	methods := rg.Group("/payment-methods")
	{
		methods.POST("", h.addMethod)
		methods.GET("", h.listMethods)
		methods.POST("/:id/verify", h.verifyMethod)
		methods.POST("/:id/default", h.setDefaultMethod)
		methods.POST("/:id/deactivate", h.deactivateMethod)
	}

	rg.GET("/payment-audit", h.listAudit)
}

// initiate godoc
// @Summary Initiate payment of a released batch
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   id path string true "Batch ID"
// @Param   body body dto.InitiatePaymentRequest false "Payment details"
// @Success 201 {object} domain.PaymentTransaction
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Failure 409 {object} map[string]string "Batch already has a payment"
// @Failure 422 {object} map[string]string "Batch not released"
// @Security BearerAuth
// @Router /payout-batches/{id}/payment [post]
func (h *paymentHandler) initiate(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.InitiatePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	tx, err := h.paymentService.InitiatePayment(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondError(c, err, "initiate payment")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Payment initiated",
		slog.String("transaction_id", tx.TransactionID), slog.String("batch_id", tx.BatchID))
	c.JSON(http.StatusCreated, tx)
}

// listTransactions godoc
// @Summary List payment transactions
// @Tags payments
// @Produce  json
// @Param   status query string false "PENDING, PROCESSING, COMPLETED, FAILED or CANCELLED"
// @Success 200 {array} domain.PaymentTransaction
// @Security BearerAuth
// @Router /payments [get]
func (h *paymentHandler) listTransactions(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	txs, err := h.paymentService.ListTransactions(c.Request.Context(), optionalStatus[domain.PaymentStatus](c, "status"))
	if err != nil {
		respondError(c, err, "list payments")
		return
	}
	c.JSON(http.StatusOK, txs)
}

// getTransaction godoc
// @Summary Get a payment transaction
// @Tags payments
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} domain.PaymentTransaction
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *paymentHandler) getTransaction(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	tx, err := h.paymentService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve payment")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// confirm godoc
// @Summary Confirm a payment
// @Description Completes the transaction, marks the payouts of the batch PAID and their commissions paid.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Param   body body dto.ConfirmPaymentRequest true "Bank confirmation"
// @Success 200 {object} domain.PaymentTransaction
// @Failure 400 {object} map[string]string "External reference required"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /payments/{id}/confirm [post]
func (h *paymentHandler) confirm(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tx, err := h.paymentService.ConfirmPayment(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondError(c, err, "confirm payment")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Payment confirmed", slog.String("transaction_id", tx.TransactionID))
	c.JSON(http.StatusOK, tx)
}

// fail godoc
// @Summary Record a failed payment
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Param   body body dto.FailPaymentRequest true "Failure reason"
// @Success 200 {object} domain.PaymentTransaction
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /payments/{id}/fail [post]
func (h *paymentHandler) fail(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tx, err := h.paymentService.MarkPaymentFailed(c.Request.Context(), c.Param("id"), req.Reason, actorID)
	if err != nil {
		respondError(c, err, "mark payment failed")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// retry godoc
// @Summary Retry a failed payment
// @Tags payments
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} domain.PaymentTransaction
// @Failure 422 {object} map[string]string "Not failed, or retry limit reached"
// @Security BearerAuth
// @Router /payments/{id}/retry [post]
func (h *paymentHandler) retry(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	tx, err := h.paymentService.RetryPayment(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "retry payment")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// cancel godoc
// @Summary Cancel an open payment
// @Tags payments
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} domain.PaymentTransaction
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /payments/{id}/cancel [post]
func (h *paymentHandler) cancel(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	tx, err := h.paymentService.CancelPayment(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "cancel payment")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// reconcile godoc
// @Summary Reconcile a batch against the bank
// @Description Compares the actual transferred amount with the sum of the batch's payouts.
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Batch ID"
// @Param   body body dto.CreateReconciliationRequest true "Actual amount"
// @Success 201 {object} domain.PaymentReconciliation
// @Failure 404 {object} map[string]string "Batch not found"
// @Security BearerAuth
// @Router /payout-batches/{id}/reconciliation [post]
func (h *paymentHandler) reconcile(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := h.paymentService.CreateReconciliation(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondError(c, err, "reconcile batch")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// listReconciliations godoc
// @Summary List reconciliations
// @Tags reconciliations
// @Produce  json
// @Param   status query string false "RECONCILED, DISCREPANCY or RESOLVED"
// @Success 200 {array} domain.PaymentReconciliation
// @Security BearerAuth
// @Router /reconciliations [get]
func (h *paymentHandler) listReconciliations(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	recs, err := h.paymentService.ListReconciliations(c.Request.Context(), optionalStatus[domain.ReconciliationStatus](c, "status"))
	if err != nil {
		respondError(c, err, "list reconciliations")
		return
	}
	c.JSON(http.StatusOK, recs)
}

// resolve godoc
// @Summary Resolve a discrepancy
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   body body dto.ResolveDiscrepancyRequest true "Resolution notes"
// @Success 200 {object} domain.PaymentReconciliation
// @Failure 422 {object} map[string]string "No open discrepancy"
// @Security BearerAuth
// @Router /reconciliations/{id}/resolve [post]
func (h *paymentHandler) resolve(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ResolveDiscrepancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := h.paymentService.ResolveDiscrepancy(c.Request.Context(), c.Param("id"), req.ResolutionNotes, actorID)
	if err != nil {
		respondError(c, err, "resolve discrepancy")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// addMethod godoc
// @Summary Add a payment method
// @Description Account and routing numbers are encrypted at rest and only the last four digits are returned.
// @Tags payment-methods
// @Accept  json
// @Produce  json
// @Param   body body dto.AddPaymentMethodRequest true "Bank details"
// @Success 201 {object} domain.PaymentMethod
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /payment-methods [post]
func (h *paymentHandler) addMethod(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AddPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	method, err := h.paymentService.AddPaymentMethod(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "add payment method")
		return
	}
	c.JSON(http.StatusCreated, method)
}

// listMethods godoc
// @Summary List payment methods of a consultant
// @Tags payment-methods
// @Produce  json
// @Param   consultantID query string false "Consultant, defaults to the caller"
// @Success 200 {array} domain.PaymentMethod
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /payment-methods [get]
func (h *paymentHandler) listMethods(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	consultantID := c.DefaultQuery("consultantID", actorID)
	methods, err := h.paymentService.ListPaymentMethods(c.Request.Context(), consultantID, actorID)
	if err != nil {
		respondError(c, err, "list payment methods")
		return
	}
	c.JSON(http.StatusOK, methods)
}

// verifyMethod godoc
// @Summary Verify a payment method
// @Tags payment-methods
// @Produce  json
// @Param   id path string true "Payment method ID"
// @Success 200 {object} domain.PaymentMethod
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Failure 422 {object} map[string]string "Not pending"
// @Security BearerAuth
// @Router /payment-methods/{id}/verify [post]
func (h *paymentHandler) verifyMethod(c *gin.Context) {
	h.methodAction(c, "verify payment method", h.paymentService.VerifyPaymentMethod)
}

// setDefaultMethod godoc
// @Summary Make a verified method the default
// @Tags payment-methods
// @Produce  json
// @Param   id path string true "Payment method ID"
// @Success 200 {object} domain.PaymentMethod
// @Failure 422 {object} map[string]string "Not verified"
// @Security BearerAuth
// @Router /payment-methods/{id}/default [post]
func (h *paymentHandler) setDefaultMethod(c *gin.Context) {
	h.methodAction(c, "set default payment method", h.paymentService.SetDefaultPaymentMethod)
}

// deactivateMethod godoc
// @Summary Deactivate a payment method
// @Tags payment-methods
// @Produce  json
// @Param   id path string true "Payment method ID"
// @Success 200 {object} domain.PaymentMethod
// @Failure 422 {object} map[string]string "Already inactive or used by an open payment"
// @Security BearerAuth
// @Router /payment-methods/{id}/deactivate [post]
func (h *paymentHandler) deactivateMethod(c *gin.Context) {
	h.methodAction(c, "deactivate payment method", h.paymentService.DeactivatePaymentMethod)
}

func (h *paymentHandler) methodAction(c *gin.Context, action string, fn func(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error)) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	method, err := fn(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, method)
}

// listAudit godoc
// @Summary Payment audit trail of an entity
// @Tags payments
// @Produce  json
// @Param   entityType query string true "e.g. payment_transaction, payment_method"
// @Param   entityID query string true "Entity ID"
// @Success 200 {array} domain.PaymentAuditEntry
// @Failure 400 {object} map[string]string "entityType and entityID are required"
// @Security BearerAuth
// @Router /payment-audit [get]
func (h *paymentHandler) listAudit(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	entityType, entityID := c.Query("entityType"), c.Query("entityID")
	if entityType == "" || entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entityType and entityID are required"})
		return
	}
	entries, err := h.paymentService.ListAudit(c.Request.Context(), entityType, entityID)
	if err != nil {
		respondError(c, err, "list payment audit")
		return
	}
	c.JSON(http.StatusOK, entries)
}
