package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// payoutHandler serves payout periods, batches and the payouts inside them.
type payoutHandler struct {
	payoutService portssvc.PayoutSvcFacade
}

func newPayoutHandler(ps portssvc.PayoutSvcFacade) *payoutHandler {
	return &payoutHandler{payoutService: ps}
}

// RegisterPayoutRoutes registers settlement routes.
func RegisterPayoutRoutes(rg *gin.RouterGroup, payoutService portssvc.PayoutSvcFacade) {
	h := newPayoutHandler(payoutService)

	periods := rg.Group("/payout-periods")
	{
		periods.POST("", h.createPeriod)
		periods.GET("", h.listPeriods)
		periods.POST("/:id/close", h.closePeriod)
	}

	batches := rg.Group("/payout-batches")
	{
		batches.POST("", h.createBatch)
		batches.GET("", h.listBatches)
		batches.GET("/:id", h.getBatch)
		batches.POST("/:id/generate", h.generate)
		batches.POST("/:id/lock", h.lock)
		batches.POST("/:id/release", h.release)
		batches.POST("/:id/void", h.void)
		batches.GET("/:id/payouts", h.listPayouts)
		batches.GET("/:id/history", h.getHistory)
	}

	rg.GET("/payouts/:id/line-items", h.listLineItems)
}

// createPeriod godoc
// @Summary Create a payout period
// @Tags payouts
// @Accept  json
// @Produce  json
// @Param   period body dto.CreatePeriodRequest true "Period"
// @Success 201 {object} domain.PayoutPeriod
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Failure 409 {object} map[string]string "Overlapping period"
// @Security BearerAuth
// @Router /payout-periods [post]
func (h *payoutHandler) createPeriod(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	period, err := h.payoutService.CreatePeriod(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "create payout period")
		return
	}
	c.JSON(http.StatusCreated, period)
}

// listPeriods godoc
// @Summary List payout periods
// @Tags payouts
// @Produce  json
// @Param   status query string false "OPEN or CLOSED"
// @Success 200 {array} domain.PayoutPeriod
// @Security BearerAuth
// @Router /payout-periods [get]
func (h *payoutHandler) listPeriods(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	periods, err := h.payoutService.ListPeriods(c.Request.Context(), optionalStatus[domain.PeriodStatus](c, "status"))
	if err != nil {
		respondError(c, err, "list payout periods")
		return
	}
	c.JSON(http.StatusOK, periods)
}

// closePeriod godoc
// @Summary Close a payout period
// @Description Fails while any batch of the period is still open.
// @Tags payouts
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} domain.PayoutPeriod
// @Failure 422 {object} map[string]string "Open batches remain"
// @Security BearerAuth
// @Router /payout-periods/{id}/close [post]
func (h *payoutHandler) closePeriod(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	period, err := h.payoutService.ClosePeriod(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "close payout period")
		return
	}
	c.JSON(http.StatusOK, period)
}

// createBatch godoc
// @Summary Create a payout batch
// @Description Creates a DRAFT batch and immediately claims every approved, unclaimed commission into per-payee payouts.
// @Tags payouts
// @Accept  json
// @Produce  json
// @Param   batch body dto.CreateBatchRequest true "Batch"
// @Success 201 {object} dto.CreateBatchResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Failure 422 {object} map[string]string "Period closed"
// @Security BearerAuth
// @Router /payout-batches [post]
func (h *payoutHandler) createBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	batch, gen, err := h.payoutService.CreateBatchForPeriod(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "create payout batch")
		return
	}
	logger.Info("Payout batch created",
		slog.String("batch_id", batch.BatchID),
		slog.Int("line_items", gen.LineItemsCreated))
	c.JSON(http.StatusCreated, dto.CreateBatchResponse{Batch: *batch, Generation: *gen})
}

// listBatches godoc
// @Summary List payout batches
// @Tags payouts
// @Produce  json
// @Param   periodID query string false "Filter by period"
// @Param   status query string false "DRAFT, LOCKED, RELEASED or VOID"
// @Success 200 {array} domain.PayoutBatch
// @Security BearerAuth
// @Router /payout-batches [get]
func (h *payoutHandler) listBatches(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	batches, err := h.payoutService.ListBatches(c.Request.Context(),
		optionalQuery(c, "periodID"), optionalStatus[domain.BatchStatus](c, "status"))
	if err != nil {
		respondError(c, err, "list payout batches")
		return
	}
	c.JSON(http.StatusOK, batches)
}

// getBatch godoc
// @Summary Get a payout batch
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {object} domain.PayoutBatch
// @Failure 404 {object} map[string]string "Batch not found"
// @Security BearerAuth
// @Router /payout-batches/{id} [get]
func (h *payoutHandler) getBatch(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	batch, err := h.payoutService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve payout batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// generate godoc
// @Summary Regenerate draft payouts
// @Description Claims approved commissions that became eligible since the batch was created. Safe to repeat.
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {object} domain.GenerationResult
// @Failure 422 {object} map[string]string "Batch is not DRAFT"
// @Security BearerAuth
// @Router /payout-batches/{id}/generate [post]
func (h *payoutHandler) generate(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	gen, err := h.payoutService.GenerateDraftPayouts(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "generate payouts")
		return
	}
	c.JSON(http.StatusOK, gen)
}

// lock godoc
// @Summary Lock a batch
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {object} domain.PayoutBatch
// @Failure 400 {object} map[string]string "Empty batch"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /payout-batches/{id}/lock [post]
func (h *payoutHandler) lock(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	batch, err := h.payoutService.LockBatch(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "lock payout batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// release godoc
// @Summary Release a locked batch for payment
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {object} domain.PayoutBatch
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /payout-batches/{id}/release [post]
func (h *payoutHandler) release(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	batch, err := h.payoutService.ReleaseBatch(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "release payout batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// void godoc
// @Summary Void a batch
// @Description Returns every claimed commission to the eligible pool.
// @Tags payouts
// @Accept  json
// @Produce  json
// @Param   id path string true "Batch ID"
// @Param   body body dto.VoidBatchRequest true "Reason"
// @Success 200 {object} domain.PayoutBatch
// @Failure 400 {object} map[string]string "Reason required"
// @Failure 422 {object} map[string]string "Batch already released or void"
// @Security BearerAuth
// @Router /payout-batches/{id}/void [post]
func (h *payoutHandler) void(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.VoidBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	batch, err := h.payoutService.VoidBatch(c.Request.Context(), c.Param("id"), actorID, req.Reason)
	if err != nil {
		respondError(c, err, "void payout batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// listPayouts godoc
// @Summary Per-payee payouts of a batch
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {array} domain.Payout
// @Security BearerAuth
// @Router /payout-batches/{id}/payouts [get]
func (h *payoutHandler) listPayouts(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	payouts, err := h.payoutService.ListPayouts(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "list payouts")
		return
	}
	c.JSON(http.StatusOK, payouts)
}

// getHistory godoc
// @Summary Audit trail of a batch
// @Tags payouts
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {array} domain.PayoutHistoryEntry
// @Security BearerAuth
// @Router /payout-batches/{id}/history [get]
func (h *payoutHandler) getHistory(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	history, err := h.payoutService.GetBatchHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve batch history")
		return
	}
	c.JSON(http.StatusOK, history)
}

// listLineItems godoc
// @Summary Commissions settled by a payout
// @Tags payouts
// @Produce  json
// @Param   id path string true "Payout ID"
// @Success 200 {array} domain.PayoutLineItem
// @Security BearerAuth
// @Router /payouts/{id}/line-items [get]
func (h *payoutHandler) listLineItems(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	items, err := h.payoutService.ListLineItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "list payout line items")
		return
	}
	c.JSON(http.StatusOK, items)
}
