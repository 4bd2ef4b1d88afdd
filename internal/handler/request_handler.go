package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AdityaDodda/purchase-kandhari/internal/middleware"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
	"github.com/AdityaDodda/purchase-kandhari/pkg/pagination"
	"github.com/AdityaDodda/purchase-kandhari/pkg/response"
)

type RequestHandler struct {
	requestService    service.RequestService
	attachmentService service.AttachmentService
}

// NewRequestHandler sets up the routing dependencies for purchase request endpoints
func NewRequestHandler(requestService service.RequestService, attachmentService service.AttachmentService) *RequestHandler {
	return &RequestHandler{requestService: requestService, attachmentService: attachmentService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/purchase-requests", middleware.RequireAuth())
	{
		requests.POST("", h.Create)
		requests.GET("", h.List)
		requests.GET("/:id", h.GetByID)
		requests.GET("/:id/details", h.GetDetails)
		requests.PUT("/:id", h.Update)

		approvers := middleware.RequireRole(model.RoleApprover, model.RoleAdmin)
		requests.POST("/:id/approve", approvers, h.Approve)
		requests.POST("/:id/reject", approvers, h.Reject)
		requests.POST("/:id/return", approvers, h.Return)
		requests.POST("/:id/cancel", h.Cancel)

		requests.POST("/:id/line-items", h.AddLineItem)
		requests.GET("/:id/line-items", h.ListLineItems)
		requests.PUT("/:id/line-items/:itemId", h.UpdateLineItem)
		requests.DELETE("/:id/line-items/:itemId", h.DeleteLineItem)

		requests.POST("/:id/attachments", h.UploadAttachments)
		requests.GET("/:id/attachments", h.ListAttachments)
	}

	attachments := router.Group("/attachments", middleware.RequireAuth())
	{
		attachments.GET("/:id/download", h.DownloadAttachment)
		attachments.DELETE("/:id", h.DeleteAttachment)
	}
}

type actionPayload struct {
	Comments string `json:"comments"`
}

// Create submits a new purchase request
// @Summary      Create a purchase request
// @Description  Creates a request with a generated requisition number, optionally with line items
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Request Payload"
// @Success      201      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      400      {object}  response.Response
// @Router       /purchase-requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := middleware.Principal(c)
	created, err := h.requestService.Create(c.Request.Context(), userID, req)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// List returns purchase requests visible to the caller
// @Summary      List purchase requests
// @Description  Admins see all requests; everyone else sees their own
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "Filter by status"
// @Param        department  query     string  false  "Filter by department"
// @Param        search      query     string  false  "Match title or requisition number"
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Page size"
// @Success      200         {object}  response.ListResponse{data=[]model.PurchaseRequest}
// @Router       /purchase-requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	userID, role := middleware.Principal(c)
	params := pagination.Parse(c)

	filter := service.RequestFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
		Page:       params.Page,
		Limit:      params.Limit,
	}
	if role != model.RoleAdmin {
		filter.RequesterID = userID
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, requests, total, params.Page, params.Limit))
}

// GetByID returns a single purchase request
// @Summary      Get a purchase request
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.PurchaseRequest}
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id} [get]
func (h *RequestHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.requestService.GetByID(c.Request.Context(), id)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	if !h.canView(c, request) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "You do not have access to this request"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// GetDetails returns a request with line items, attachments and history
// @Summary      Get purchase request details
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.PurchaseRequest}
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id}/details [get]
func (h *RequestHandler) GetDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.requestService.GetDetails(c.Request.Context(), id)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	if !h.canView(c, request) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "You do not have access to this request"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Update edits a submitted or returned request; updating a returned request resubmits it
// @Summary      Update a purchase request
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                       true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, role := middleware.Principal(c)
	updated, err := h.requestService.Update(c.Request.Context(), id, userID, role, req)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// Approve advances the request one approval level
// @Summary      Approve a purchase request
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int            true   "Request ID"
// @Param        payload  body      actionPayload  false  "Optional comments"
// @Success      200      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	h.applyAction(c, h.requestService.Approve)
}

// Reject declines the request permanently
// @Summary      Reject a purchase request
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int            true   "Request ID"
// @Param        payload  body      actionPayload  false  "Optional comments"
// @Success      200      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	h.applyAction(c, h.requestService.Reject)
}

// Return sends the request back to the requester for changes
// @Summary      Return a purchase request
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int            true   "Request ID"
// @Param        payload  body      actionPayload  false  "Optional comments"
// @Success      200      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/return [post]
func (h *RequestHandler) Return(c *gin.Context) {
	h.applyAction(c, h.requestService.Return)
}

// Cancel withdraws the request; only the requester or an admin may cancel
// @Summary      Cancel a purchase request
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int            true   "Request ID"
// @Param        payload  body      actionPayload  false  "Optional comments"
// @Success      200      {object}  response.Response{data=model.PurchaseRequest}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var payload actionPayload
	_ = c.ShouldBindJSON(&payload)

	userID, role := middleware.Principal(c)
	updated, err := h.requestService.Cancel(c.Request.Context(), id, userID, role, payload.Comments)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// AddLineItem appends a line item and recomputes the request total
// @Summary      Add a line item
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Request ID"
// @Param        payload  body      service.LineItemDTO  true  "Line Item Payload"
// @Success      201      {object}  response.Response{data=model.LineItem}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/line-items [post]
func (h *RequestHandler) AddLineItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var item service.LineItemDTO
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.requestService.AddLineItem(c.Request.Context(), id, item)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListLineItems returns the line items of a request
// @Summary      List line items
// @Tags         line-items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]model.LineItem}
// @Router       /purchase-requests/{id}/line-items [get]
func (h *RequestHandler) ListLineItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.requestService.ListLineItems(c.Request.Context(), id)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// UpdateLineItem edits a line item and recomputes the request total
// @Summary      Update a line item
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Request ID"
// @Param        itemId   path      int                  true  "Line Item ID"
// @Param        payload  body      service.LineItemDTO  true  "Line Item Payload"
// @Success      200      {object}  response.Response{data=model.LineItem}
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/line-items/{itemId} [put]
func (h *RequestHandler) UpdateLineItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	var item service.LineItemDTO
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	updated, err := h.requestService.UpdateLineItem(c.Request.Context(), id, itemID, item)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// DeleteLineItem removes a line item and recomputes the request total
// @Summary      Delete a line item
// @Tags         line-items
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int  true  "Request ID"
// @Param        itemId  path      int  true  "Line Item ID"
// @Success      200     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Router       /purchase-requests/{id}/line-items/{itemId} [delete]
func (h *RequestHandler) DeleteLineItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	if err := h.requestService.DeleteLineItem(c.Request.Context(), id, itemID); err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Line item deleted"}))
}

// UploadAttachments stores uploaded files against a request
// @Summary      Upload attachments
// @Description  Accepts up to 10 files of at most 10 MB each under the "files" field
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int   true  "Request ID"
// @Param        files  formData  file  true  "Files to upload"
// @Success      201    {object}  response.Response{data=[]model.Attachment}
// @Failure      400    {object}  response.Response
// @Router       /purchase-requests/{id}/attachments [post]
func (h *RequestHandler) UploadAttachments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid multipart form: "+err.Error()))
		return
	}

	attachments, err := h.attachmentService.Upload(c.Request.Context(), id, form.File["files"])
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, attachments))
}

// ListAttachments returns attachment metadata for a request
// @Summary      List attachments
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]model.Attachment}
// @Router       /purchase-requests/{id}/attachments [get]
func (h *RequestHandler) ListAttachments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	attachments, err := h.attachmentService.List(c.Request.Context(), id)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, attachments))
}

// DownloadAttachment streams a stored file with its original name
// @Summary      Download an attachment
// @Tags         attachments
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id   path  int  true  "Attachment ID"
// @Success      200  {file}  file
// @Failure      404  {object}  response.Response
// @Router       /attachments/{id}/download [get]
func (h *RequestHandler) DownloadAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	att, err := h.attachmentService.Get(c.Request.Context(), id)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}

	path, err := h.attachmentService.Resolve(att)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}

	c.Header("Content-Type", att.MimeType)
	c.FileAttachment(path, att.OriginalName)
}

// DeleteAttachment removes a stored file and its metadata
// @Summary      Delete an attachment
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Attachment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /attachments/{id} [delete]
func (h *RequestHandler) DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), id); err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Attachment deleted"}))
}

// --- Helpers ---

func (h *RequestHandler) applyAction(c *gin.Context, action func(ctx context.Context, id, actorID uint, comments string) (*model.PurchaseRequest, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var payload actionPayload
	_ = c.ShouldBindJSON(&payload)

	userID, _ := middleware.Principal(c)
	updated, err := action(c.Request.Context(), id, userID, payload.Comments)
	if err != nil {
		status, msg := statusFromError(err)
		c.JSON(status, response.Error(status, msg))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// pathID parses a numeric path parameter, replying 400 itself on failure
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+" parameter"))
		return 0, false
	}
	return uint(id), true
}

// canView allows the requester who owns the request, approvers and admins
func (h *RequestHandler) canView(c *gin.Context, request *model.PurchaseRequest) bool {
	userID, role := middleware.Principal(c)
	if role == model.RoleAdmin || role == model.RoleApprover {
		return true
	}
	return request.RequesterID == userID
}
