package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaDodda/purchase-kandhari/internal/middleware"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
	"github.com/AdityaDodda/purchase-kandhari/pkg/response"
)

// MasterHandler exposes the admin CRUD registry for master-data tables.
// The :type segment selects the table; unknown types get a 400.
type MasterHandler struct {
	masterService service.MasterService
}

func NewMasterHandler(masterService service.MasterService) *MasterHandler {
	return &MasterHandler{masterService: masterService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *MasterHandler) RegisterRoutes(router *gin.RouterGroup) {
	masters := router.Group("/admin/masters", middleware.RequireRole(model.RoleAdmin))
	{
		masters.GET("", h.Types)
		masters.GET("/:type", h.List)
		masters.POST("/:type", h.Create)
		masters.PUT("/:type/:id", h.Update)
		masters.DELETE("/:type/:id", h.Delete)
	}
}

// Types lists the registered master-data types
// @Summary      List master-data types
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /admin/masters [get]
func (h *MasterHandler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.MasterTypes()))
}

// List returns all rows of one master-data table
// @Summary      List master-data records
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        type  path      string  true  "Master type tag"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Router       /admin/masters/{type} [get]
func (h *MasterHandler) List(c *gin.Context) {
	rows, err := h.masterService.List(c.Request.Context(), c.Param("type"))
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// Create inserts a master-data record
// @Summary      Create a master-data record
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type  path      string  true  "Master type tag"
// @Success      201   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Router       /admin/masters/{type} [post]
func (h *MasterHandler) Create(c *gin.Context) {
	record, err := h.masterService.Create(c.Request.Context(), c.Param("type"), func(dst interface{}) error {
		return c.ShouldBindJSON(dst)
	})
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

// Update edits a master-data record
// @Summary      Update a master-data record
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type  path      string  true  "Master type tag"
// @Param        id    path      int     true  "Record ID"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /admin/masters/{type}/{id} [put]
func (h *MasterHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	record, err := h.masterService.Update(c.Request.Context(), c.Param("type"), id, func(dst interface{}) error {
		return c.ShouldBindJSON(dst)
	})
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// Delete removes a master-data record
// @Summary      Delete a master-data record
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        type  path      string  true  "Master type tag"
// @Param        id    path      int     true  "Record ID"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /admin/masters/{type}/{id} [delete]
func (h *MasterHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.masterService.Delete(c.Request.Context(), c.Param("type"), id); err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Record deleted"}))
}
