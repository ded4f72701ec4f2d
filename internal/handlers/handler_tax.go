package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type taxHandler struct {
	taxService portssvc.TaxSvcFacade
}

func newTaxHandler(ts portssvc.TaxSvcFacade) *taxHandler {
	return &taxHandler{taxService: ts}
}

// RegisterTaxRoutes registers W-9 and 1099 routes.
func RegisterTaxRoutes(rg *gin.RouterGroup, taxService portssvc.TaxSvcFacade) {
	h := newTaxHandler(taxService)

	tax := rg.Group("/tax")
	{
		tax.POST("/w9", h.submitW9)
		tax.GET("/w9/pending", h.listPendingW9)
		tax.POST("/w9/:id/approve", h.approveW9)
		tax.POST("/w9/:id/reject", h.rejectW9)
		tax.GET("/consultants/:consultantID/w9", h.getW9)

		tax.POST("/documents/1099-nec", h.generate1099)
		tax.GET("/documents", h.listDocuments)
		tax.POST("/documents/:id/sent", h.markSent)
		tax.POST("/documents/:id/filed", h.markFiled)
	}
}

// submitW9 godoc
// @Summary Submit or replace a W-9
// @Description The TIN is encrypted at rest; responses carry only its last four digits. Resubmission returns the form to PENDING.
// @Tags tax
// @Accept  json
// @Produce  json
// @Param   body body dto.SubmitW9Request true "W-9"
// @Success 201 {object} domain.W9Information
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /tax/w9 [post]
func (h *taxHandler) submitW9(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SubmitW9Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	w9, err := h.taxService.SubmitW9(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "submit W-9")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("W-9 submitted", slog.String("consultant_id", w9.ConsultantID))
	c.JSON(http.StatusCreated, w9)
}

// listPendingW9 godoc
// @Summary W-9s awaiting review
// @Tags tax
// @Produce  json
// @Success 200 {array} domain.W9Information
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Security BearerAuth
// @Router /tax/w9/pending [get]
func (h *taxHandler) listPendingW9(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	pending, err := h.taxService.ListPendingW9(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err, "list pending W-9s")
		return
	}
	c.JSON(http.StatusOK, pending)
}

// approveW9 godoc
// @Summary Approve a W-9
// @Tags tax
// @Produce  json
// @Param   id path string true "W-9 ID"
// @Success 200 {object} domain.W9Information
// @Failure 422 {object} map[string]string "Not pending"
// @Security BearerAuth
// @Router /tax/w9/{id}/approve [post]
func (h *taxHandler) approveW9(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	w9, err := h.taxService.ApproveW9(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "approve W-9")
		return
	}
	c.JSON(http.StatusOK, w9)
}

// rejectW9 godoc
// @Summary Reject a W-9
// @Tags tax
// @Accept  json
// @Produce  json
// @Param   id path string true "W-9 ID"
// @Param   body body dto.RejectW9Request true "Reason"
// @Success 200 {object} domain.W9Information
// @Failure 400 {object} map[string]string "Reason required"
// @Failure 422 {object} map[string]string "Not pending"
// @Security BearerAuth
// @Router /tax/w9/{id}/reject [post]
func (h *taxHandler) rejectW9(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.RejectW9Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	w9, err := h.taxService.RejectW9(c.Request.Context(), c.Param("id"), req.Reason, actorID)
	if err != nil {
		respondError(c, err, "reject W-9")
		return
	}
	c.JSON(http.StatusOK, w9)
}

// getW9 godoc
// @Summary Get a consultant's W-9
// @Tags tax
// @Produce  json
// @Param   consultantID path string true "Consultant ID"
// @Success 200 {object} domain.W9Information
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "No W-9 on file"
// @Security BearerAuth
// @Router /tax/consultants/{consultantID}/w9 [get]
func (h *taxHandler) getW9(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	w9, err := h.taxService.GetW9(c.Request.Context(), c.Param("consultantID"), actorID)
	if err != nil {
		respondError(c, err, "retrieve W-9")
		return
	}
	c.JSON(http.StatusOK, w9)
}

// generate1099 godoc
// @Summary Generate a 1099-NEC
// @Description Sums the consultant's paid payouts for the tax year. Requires an approved W-9 and a non-exempt entity type.
// @Tags tax
// @Accept  json
// @Produce  json
// @Param   body body dto.Generate1099Request true "Consultant and tax year"
// @Success 201 {object} domain.TaxDocument
// @Failure 409 {object} map[string]string "Already generated"
// @Failure 422 {object} map[string]string "Below threshold, exempt, or W-9 not approved"
// @Security BearerAuth
// @Router /tax/documents/1099-nec [post]
func (h *taxHandler) generate1099(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.Generate1099Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	doc, err := h.taxService.Generate1099NEC(c.Request.Context(), req.ConsultantID, req.TaxYear, actorID)
	if err != nil {
		respondError(c, err, "generate 1099-NEC")
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// listDocuments godoc
// @Summary List tax documents
// @Tags tax
// @Produce  json
// @Param   consultantID query string false "Filter by consultant"
// @Param   taxYear query int false "Filter by year"
// @Success 200 {array} domain.TaxDocument
// @Failure 400 {object} map[string]string "Invalid year"
// @Security BearerAuth
// @Router /tax/documents [get]
func (h *taxHandler) listDocuments(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	year, ok := optionalIntQuery(c, "taxYear")
	if !ok {
		return
	}
	docs, err := h.taxService.ListTaxDocuments(c.Request.Context(), optionalQuery(c, "consultantID"), year)
	if err != nil {
		respondError(c, err, "list tax documents")
		return
	}
	c.JSON(http.StatusOK, docs)
}

// markSent godoc
// @Summary Mark a tax document sent to the consultant
// @Tags tax
// @Produce  json
// @Param   id path string true "Document ID"
// @Success 200 {object} domain.TaxDocument
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /tax/documents/{id}/sent [post]
func (h *taxHandler) markSent(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	doc, err := h.taxService.MarkTaxDocumentSent(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "mark tax document sent")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// markFiled godoc
// @Summary Mark a tax document filed with the IRS
// @Tags tax
// @Produce  json
// @Param   id path string true "Document ID"
// @Success 200 {object} domain.TaxDocument
// @Failure 422 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /tax/documents/{id}/filed [post]
func (h *taxHandler) markFiled(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	doc, err := h.taxService.MarkTaxDocumentFiled(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err, "mark tax document filed")
		return
	}
	c.JSON(http.StatusOK, doc)
}
