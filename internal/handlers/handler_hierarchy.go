package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type hierarchyHandler struct {
	hierarchyService portssvc.HierarchySvcFacade
}

func newHierarchyHandler(hs portssvc.HierarchySvcFacade) *hierarchyHandler {
	return &hierarchyHandler{hierarchyService: hs}
}

// RegisterHierarchyRoutes registers reporting-line routes.
func RegisterHierarchyRoutes(rg *gin.RouterGroup, hierarchyService portssvc.HierarchySvcFacade) {
	h := newHierarchyHandler(hierarchyService)

	hierarchy := rg.Group("/hierarchy")
	{
		hierarchy.POST("/lines", h.assignManager)
		hierarchy.POST("/lines/change", h.changeManager)
		hierarchy.POST("/lines/:lineID/deactivate", h.deactivateLine)
		hierarchy.GET("/managers/:managerID/team", h.listTeam)
		hierarchy.GET("/consultants/:consultantID/manager", h.getManager)
		hierarchy.GET("/consultants/:consultantID/history", h.listManagerHistory)
	}
}

// assignManager godoc
// @Summary Assign a manager
// @Description Opens the first active reporting line for a consultant. Admin or director only.
// @Tags hierarchy
// @Accept  json
// @Produce  json
// @Param   line body dto.AssignManagerRequest true "Reporting line"
// @Success 201 {object} domain.ReportingLine
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Consultant already has an active manager"
// @Failure 422 {object} map[string]string "Business rule violation"
// @Security BearerAuth
// @Router /hierarchy/lines [post]
func (h *hierarchyHandler) assignManager(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	line, err := h.hierarchyService.AssignManager(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "assign manager")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Manager assigned",
		slog.String("consultant_id", line.ConsultantID), slog.String("manager_id", line.ManagerID))
	c.JSON(http.StatusCreated, line)
}

// changeManager godoc
// @Summary Change a consultant's manager
// @Description Ends the current line the day before the effective date and opens a new one.
// @Tags hierarchy
// @Accept  json
// @Produce  json
// @Param   line body dto.ChangeManagerRequest true "New manager"
// @Success 201 {object} domain.ReportingLine
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "No active line"
// @Failure 422 {object} map[string]string "Cycle or business rule violation"
// @Security BearerAuth
// @Router /hierarchy/lines/change [post]
func (h *hierarchyHandler) changeManager(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ChangeManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	line, err := h.hierarchyService.ChangeManager(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "change manager")
		return
	}
	c.JSON(http.StatusCreated, line)
}

// deactivateLine godoc
// @Summary End a reporting line
// @Tags hierarchy
// @Accept  json
// @Produce  json
// @Param   lineID path string true "Reporting line ID"
// @Param   body body dto.DeactivateLineRequest false "End date, defaults to today"
// @Success 200 {object} domain.ReportingLine
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 422 {object} map[string]string "Line already inactive"
// @Security BearerAuth
// @Router /hierarchy/lines/{lineID}/deactivate [post]
func (h *hierarchyHandler) deactivateLine(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.DeactivateLineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	line, err := h.hierarchyService.DeactivateLine(c.Request.Context(), c.Param("lineID"), req, actorID)
	if err != nil {
		respondError(c, err, "deactivate reporting line")
		return
	}
	c.JSON(http.StatusOK, line)
}

// listTeam godoc
// @Summary List a manager's direct reports
// @Tags hierarchy
// @Produce  json
// @Param   managerID path string true "Manager user ID"
// @Param   date query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {array} domain.ReportingLine
// @Failure 400 {object} map[string]string "Invalid date"
// @Security BearerAuth
// @Router /hierarchy/managers/{managerID}/team [get]
func (h *hierarchyHandler) listTeam(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}

	lines, err := h.hierarchyService.ListTeam(c.Request.Context(), c.Param("managerID"), date)
	if err != nil {
		respondError(c, err, "list team")
		return
	}
	c.JSON(http.StatusOK, lines)
}

// getManager godoc
// @Summary Resolve a consultant's manager on a date
// @Tags hierarchy
// @Produce  json
// @Param   consultantID path string true "Consultant user ID"
// @Param   date query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} domain.ReportingLine
// @Failure 404 {object} map[string]string "No manager on that date"
// @Security BearerAuth
// @Router /hierarchy/consultants/{consultantID}/manager [get]
func (h *hierarchyHandler) getManager(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}

	line, err := h.hierarchyService.ManagerAt(c.Request.Context(), nil, c.Param("consultantID"), date)
	if err != nil {
		respondError(c, err, "resolve manager")
		return
	}
	if line == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No manager on that date"})
		return
	}
	c.JSON(http.StatusOK, line)
}

// listManagerHistory godoc
// @Summary List every reporting line of a consultant
// @Tags hierarchy
// @Produce  json
// @Param   consultantID path string true "Consultant user ID"
// @Success 200 {array} domain.ReportingLine
// @Security BearerAuth
// @Router /hierarchy/consultants/{consultantID}/history [get]
func (h *hierarchyHandler) listManagerHistory(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	lines, err := h.hierarchyService.ListManagerHistory(c.Request.Context(), c.Param("consultantID"))
	if err != nil {
		respondError(c, err, "list manager history")
		return
	}
	c.JSON(http.StatusOK, lines)
}
