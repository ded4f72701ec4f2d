package handlers

import (
	"context"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// commissionHandler serves commission records and their approval workflow.
type commissionHandler struct {
	commissionService portssvc.CommissionSvcFacade
	approvalService   portssvc.ApprovalSvcFacade
}

func newCommissionHandler(cs portssvc.CommissionSvcFacade, as portssvc.ApprovalSvcFacade) *commissionHandler {
	return &commissionHandler{commissionService: cs, approvalService: as}
}

// RegisterCommissionRoutes registers commission and approval routes.
func RegisterCommissionRoutes(rg *gin.RouterGroup, commissionService portssvc.CommissionSvcFacade, approvalService portssvc.ApprovalSvcFacade) {
	h := newCommissionHandler(commissionService, approvalService)

	commissions := rg.Group("/commissions")
	{
		commissions.POST("", h.createCommission)
		commissions.GET("", h.listCommissions)
		commissions.GET("/:id", h.getCommission)
		commissions.GET("/:id/overrides", h.listOverrides)
		commissions.POST("/:id/adjustments", h.createAdjustment)

		commissions.POST("/:id/submit", h.submit)
		commissions.POST("/:id/approve", h.approve)
		commissions.POST("/:id/reject", h.reject)
		commissions.POST("/:id/mark-paid", h.markPaid)
		commissions.GET("/:id/history", h.getHistory)
		commissions.GET("/:id/capabilities", h.getCapabilities)
	}

	rg.GET("/approvals/pending", h.listPendingApprovals)
}

// createCommission godoc
// @Summary Record a sale
// @Description Creates a draft base commission and the override commissions of the consultant's manager chain in one transaction.
// @Tags commissions
// @Accept  json
// @Produce  json
// @Param   commission body dto.CreateCommissionRequest true "Sale details"
// @Success 201 {object} dto.CreateCommissionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Duplicate reference number"
// @Failure 500 {object} map[string]string "Failed to create commission"
// @Security BearerAuth
// @Router /commissions [post]
func (h *commissionHandler) createCommission(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.commissionService.CreateBaseWithOverrides(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "create commission")
		return
	}

	logger.Info("Commission created",
		slog.String("commission_id", result.Base.CommissionID),
		slog.Int("total_created", result.TotalCreated))
	c.JSON(http.StatusCreated, dto.CreateCommissionResponse{
		Base:         dto.ToCommissionResponse(result.Base),
		Overrides:    dto.ToListCommissionResponse(result.Overrides),
		TotalCreated: result.TotalCreated,
	})
}

// createAdjustment godoc
// @Summary Adjust a paid commission
// @Description Creates a draft adjustment linked to a paid commission. The amount may be negative.
// @Tags commissions
// @Accept  json
// @Produce  json
// @Param   id path string true "Original commission ID"
// @Param   adjustment body dto.CreateAdjustmentRequest true "Adjustment"
// @Success 201 {object} dto.CommissionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Commission not found"
// @Failure 422 {object} map[string]string "Original is not paid"
// @Security BearerAuth
// @Router /commissions/{id}/adjustments [post]
func (h *commissionHandler) createAdjustment(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	adj, err := h.commissionService.CreateAdjustment(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		respondError(c, err, "create adjustment")
		return
	}
	c.JSON(http.StatusCreated, dto.ToCommissionResponse(*adj))
}

// getCommission godoc
// @Summary Get a commission
// @Tags commissions
// @Produce  json
// @Param   id path string true "Commission ID"
// @Success 200 {object} dto.CommissionResponse
// @Failure 404 {object} map[string]string "Commission not found"
// @Security BearerAuth
// @Router /commissions/{id} [get]
func (h *commissionHandler) getCommission(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	commission, err := h.commissionService.GetCommission(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve commission")
		return
	}
	c.JSON(http.StatusOK, dto.ToCommissionResponse(*commission))
}

// listCommissions godoc
// @Summary List commissions
// @Description Newest first by transaction date. Pass nextToken from the previous page to continue.
// @Tags commissions
// @Produce  json
// @Param   consultantID query string false "Filter by consultant"
// @Param   state query string false "draft, submitted, approved, rejected or paid"
// @Param   type query string false "base, override or adjustment"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListCommissionsResponse
// @Failure 400 {object} map[string]string "Invalid filter or token"
// @Security BearerAuth
// @Router /commissions [get]
func (h *commissionHandler) listCommissions(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var params dto.ListCommissionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.commissionService.ListCommissions(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "list commissions")
		return
	}
	c.JSON(http.StatusOK, res)
}

// listOverrides godoc
// @Summary List the overrides generated from a base commission
// @Tags commissions
// @Produce  json
// @Param   id path string true "Base commission ID"
// @Success 200 {array} dto.CommissionResponse
// @Security BearerAuth
// @Router /commissions/{id}/overrides [get]
func (h *commissionHandler) listOverrides(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	overrides, err := h.commissionService.ListOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "list overrides")
		return
	}
	c.JSON(http.StatusOK, dto.ToListCommissionResponse(overrides))
}

// submit godoc
// @Summary Submit a commission for approval
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   id path string true "Commission ID"
// @Param   body body dto.TransitionRequest false "Notes"
// @Success 200 {object} dto.TransitionResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /commissions/{id}/submit [post]
func (h *commissionHandler) submit(c *gin.Context) {
	h.transition(c, "submit commission", h.approvalService.Submit)
}

// approve godoc
// @Summary Approve a submitted commission
// @Description Approving a base commission cascades to its submitted overrides.
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   id path string true "Commission ID"
// @Param   body body dto.TransitionRequest false "Notes"
// @Success 200 {object} dto.TransitionResponse
// @Failure 403 {object} map[string]string "Not the assigned approver, or self-approval"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /commissions/{id}/approve [post]
func (h *commissionHandler) approve(c *gin.Context) {
	h.transition(c, "approve commission", h.approvalService.Approve)
}

// markPaid godoc
// @Summary Mark an approved commission paid
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   id path string true "Commission ID"
// @Param   body body dto.TransitionRequest false "Notes"
// @Success 200 {object} dto.TransitionResponse
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /commissions/{id}/mark-paid [post]
func (h *commissionHandler) markPaid(c *gin.Context) {
	h.transition(c, "mark commission paid", h.approvalService.MarkPaid)
}

type transitionFunc func(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error)

func (h *commissionHandler) transition(c *gin.Context, action string, fn transitionFunc) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	result, err := fn(c.Request.Context(), c.Param("id"), actorID, req.Notes)
	if err != nil {
		respondError(c, err, action)
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Commission transitioned",
		slog.String("commission_id", result.Commission.CommissionID),
		slog.String("state", string(result.Commission.State)),
		slog.Int("cascaded", len(result.Cascaded)))
	c.JSON(http.StatusOK, dto.ToTransitionResponse(result.Commission, result.History, result.Cascaded))
}

// reject godoc
// @Summary Reject a submitted commission
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   id path string true "Commission ID"
// @Param   body body dto.RejectCommissionRequest true "Reason"
// @Success 200 {object} dto.TransitionResponse
// @Failure 400 {object} map[string]string "Reason required"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /commissions/{id}/reject [post]
func (h *commissionHandler) reject(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.RejectCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), actorID, req.Reason)
	if err != nil {
		respondError(c, err, "reject commission")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransitionResponse(result.Commission, result.History, result.Cascaded))
}

// getHistory godoc
// @Summary Approval history of a commission
// @Tags approvals
// @Produce  json
// @Param   id path string true "Commission ID"
// @Success 200 {array} domain.ApprovalHistoryEntry
// @Failure 404 {object} map[string]string "Commission not found"
// @Security BearerAuth
// @Router /commissions/{id}/history [get]
func (h *commissionHandler) getHistory(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	history, err := h.approvalService.GetApprovalHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve approval history")
		return
	}
	c.JSON(http.StatusOK, history)
}

// getCapabilities godoc
// @Summary What the caller may do with a commission
// @Tags approvals
// @Produce  json
// @Param   id path string true "Commission ID"
// @Success 200 {object} domain.Capabilities
// @Failure 404 {object} map[string]string "Commission not found"
// @Security BearerAuth
// @Router /commissions/{id}/capabilities [get]
func (h *commissionHandler) getCapabilities(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	caps, err := h.approvalService.GetCapabilities(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "retrieve capabilities")
		return
	}
	c.JSON(http.StatusOK, caps)
}

// listPendingApprovals godoc
// @Summary Commissions awaiting the caller's decision
// @Tags approvals
// @Produce  json
// @Success 200 {array} dto.CommissionResponse
// @Security BearerAuth
// @Router /approvals/pending [get]
func (h *commissionHandler) listPendingApprovals(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	pending, err := h.approvalService.ListPendingApprovals(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err, "list pending approvals")
		return
	}
	c.JSON(http.StatusOK, dto.ToListCommissionResponse(pending))
}
