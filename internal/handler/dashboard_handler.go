package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaDodda/purchase-kandhari/internal/middleware"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
	"github.com/AdityaDodda/purchase-kandhari/pkg/response"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/stats", middleware.RequireAuth(), h.Stats)
}

// Stats returns request counts and approved spend for the dashboard
// @Summary      Dashboard statistics
// @Description  Admins see portal-wide totals; everyone else sees their own numbers
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardStats}
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, role := middleware.Principal(c)

	scope := uint(0)
	if role != model.RoleAdmin {
		scope = userID
	}

	stats, err := h.dashboardService.Stats(c.Request.Context(), scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
