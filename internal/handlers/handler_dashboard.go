package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

type dashboardHandler struct {
	dashboards portssvc.DashboardSvc
}

// RegisterDashboardRoutes registers the read-only dashboard routes.
func RegisterDashboardRoutes(rg *gin.RouterGroup, dashboards portssvc.DashboardSvc) {
	h := &dashboardHandler{dashboards: dashboards}

	d := rg.Group("/dashboards")
	{
		d.GET("/me", h.myDashboard)
		d.GET("/consultants/:consultantID", h.consultantDashboard)
		d.GET("/finance", h.financeDashboard)
	}
}

// myDashboard godoc
// @Summary The caller's commission dashboard
// @Tags dashboards
// @Produce  json
// @Success 200 {object} domain.ConsultantDashboard
// @Security BearerAuth
// @Router /dashboards/me [get]
func (h *dashboardHandler) myDashboard(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	h.respondConsultant(c, actorID, actorID)
}

// consultantDashboard godoc
// @Summary A consultant's commission dashboard
// @Description Owners may read their own. Finance and admin may read anyone's.
// @Tags dashboards
// @Produce  json
// @Param   consultantID path string true "Consultant ID"
// @Success 200 {object} domain.ConsultantDashboard
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /dashboards/consultants/{consultantID} [get]
func (h *dashboardHandler) consultantDashboard(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	h.respondConsultant(c, c.Param("consultantID"), actorID)
}

func (h *dashboardHandler) respondConsultant(c *gin.Context, consultantID, actorID string) {
	dash, err := h.dashboards.ConsultantDashboard(c.Request.Context(), consultantID, actorID)
	if err != nil {
		respondError(c, err, "build consultant dashboard")
		return
	}
	c.JSON(http.StatusOK, dash)
}

// financeDashboard godoc
// @Summary Finance dashboard
// @Tags dashboards
// @Produce  json
// @Success 200 {object} domain.FinanceDashboard
// @Failure 403 {object} map[string]string "Finance or admin only"
// @Security BearerAuth
// @Router /dashboards/finance [get]
func (h *dashboardHandler) financeDashboard(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	dash, err := h.dashboards.FinanceDashboard(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err, "build finance dashboard")
		return
	}
	c.JSON(http.StatusOK, dash)
}
