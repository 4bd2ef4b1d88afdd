package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/websocket"
	"github.com/AdityaDodda/purchase-kandhari/pkg/pagination"
)

// --- DTOs ---

type LineItemDTO struct {
	ItemName          string          `json:"item_name" binding:"required"`
	RequiredQuantity  int             `json:"required_quantity" binding:"required,min=1"`
	UnitOfMeasure     string          `json:"unit_of_measure" binding:"required"`
	UnitCost          decimal.Decimal `json:"unit_cost" binding:"required"`
	RequiredByDate    time.Time       `json:"required_by_date" binding:"required"`
	DeliveryLocation  string          `json:"delivery_location" binding:"required"`
	ItemJustification string          `json:"item_justification"`
	StockAvailable    int             `json:"stock_available"`
	StockLocation     string          `json:"stock_location"`
}

type CreateRequestDTO struct {
	Title                        string        `json:"title" binding:"required"`
	RequestDate                  time.Time     `json:"request_date" binding:"required"`
	Department                   string        `json:"department" binding:"required"`
	Location                     string        `json:"location" binding:"required"`
	BusinessJustificationCode    string        `json:"business_justification_code" binding:"required"`
	BusinessJustificationDetails string        `json:"business_justification_details" binding:"required"`
	LineItems                    []LineItemDTO `json:"line_items" binding:"omitempty,dive"`
}

type UpdateRequestDTO struct {
	Title                        string     `json:"title"`
	RequestDate                  *time.Time `json:"request_date"`
	Department                   string     `json:"department"`
	Location                     string     `json:"location"`
	BusinessJustificationCode    string     `json:"business_justification_code"`
	BusinessJustificationDetails string     `json:"business_justification_details"`
}

type RequestFilter struct {
	Status      string
	Department  string
	Search      string // matches title or requisition number
	RequesterID uint   // 0 means all requesters
	Page        int
	Limit       int
}

// --- Interface ---

// RequestService drives the purchase-request lifecycle:
// submitted -> {approved | rejected | returned | cancelled}, with returned
// re-entering the flow through edit + resubmit.
type RequestService interface {
	Create(ctx context.Context, requesterID uint, req CreateRequestDTO) (*model.PurchaseRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.PurchaseRequest, int64, error)
	GetByID(ctx context.Context, id uint) (*model.PurchaseRequest, error)
	GetDetails(ctx context.Context, id uint) (*model.PurchaseRequest, error)
	Update(ctx context.Context, id, actorID uint, actorRole string, req UpdateRequestDTO) (*model.PurchaseRequest, error)

	Approve(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error)
	Reject(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error)
	Return(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error)
	Cancel(ctx context.Context, id, actorID uint, actorRole, comments string) (*model.PurchaseRequest, error)

	AddLineItem(ctx context.Context, requestID uint, item LineItemDTO) (*model.LineItem, error)
	ListLineItems(ctx context.Context, requestID uint) ([]model.LineItem, error)
	UpdateLineItem(ctx context.Context, requestID, itemID uint, item LineItemDTO) (*model.LineItem, error)
	DeleteLineItem(ctx context.Context, requestID, itemID uint) error
}

type requestService struct {
	db  *gorm.DB
	hub *websocket.Hub
}

// NewRequestService returns a RequestService; hub may be nil in tests
func NewRequestService(db *gorm.DB, hub *websocket.Hub) RequestService {
	return &requestService{db: db, hub: hub}
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, requesterID uint, req CreateRequestDTO) (*model.PurchaseRequest, error) {
	var request model.PurchaseRequest
	var notif model.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requisitionNumber, err := s.generateRequisitionNumber(tx, req.Department)
		if err != nil {
			return fmt.Errorf("failed to generate requisition number: %w", err)
		}

		request = model.PurchaseRequest{
			RequisitionNumber:            requisitionNumber,
			Title:                        req.Title,
			RequestDate:                  req.RequestDate,
			Department:                   req.Department,
			Location:                     req.Location,
			BusinessJustificationCode:    req.BusinessJustificationCode,
			BusinessJustificationDetails: req.BusinessJustificationDetails,
			Status:                       model.StatusSubmitted,
			CurrentApprovalLevel:         1,
			TotalEstimatedCost:           decimal.Zero,
			RequesterID:                  requesterID,
		}
		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("failed to create purchase request: %w", err)
		}

		for _, dto := range req.LineItems {
			item := lineItemFromDTO(request.ID, dto)
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
		}
		if len(req.LineItems) > 0 {
			if err := s.recomputeTotal(tx, request.ID); err != nil {
				return err
			}
		}

		notif = model.Notification{
			UserID:            requesterID,
			PurchaseRequestID: &request.ID,
			Title:             "Purchase Request Submitted",
			Message:           fmt.Sprintf("Your purchase request %s has been submitted successfully.", requisitionNumber),
			Type:              model.NotificationSuccess,
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.push(notif)

	if loadErr := s.db.WithContext(ctx).Preload("LineItems").First(&request, request.ID).Error; loadErr != nil {
		return nil, fmt.Errorf("failed to reload purchase request: %w", loadErr)
	}
	return &request, nil
}

func (s *requestService) List(ctx context.Context, filter RequestFilter) ([]model.PurchaseRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.PurchaseRequest{})
	query = applyRequestFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchase requests: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = pagination.DefaultPage
	}
	if filter.Limit <= 0 {
		filter.Limit = pagination.DefaultLimit
	}
	window := pagination.Params{
		Page:   filter.Page,
		Limit:  filter.Limit,
		Offset: (filter.Page - 1) * filter.Limit,
	}

	var requests []model.PurchaseRequest
	fetch := applyRequestFilter(s.db.WithContext(ctx).Preload("Requester"), filter)
	if err := fetch.
		Order("created_at DESC").
		Scopes(window.Scope()).
		Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchase requests: %w", err)
	}

	return requests, total, nil
}

func applyRequestFilter(query *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.RequesterID != 0 {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR requisition_number LIKE ?", pattern, pattern)
	}
	return query
}

func (s *requestService) GetByID(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	var request model.PurchaseRequest
	if err := s.db.WithContext(ctx).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (s *requestService) GetDetails(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	var request model.PurchaseRequest
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Preload("CurrentApprover").
		Preload("LineItems").
		Preload("Attachments").
		Preload("ApprovalHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("action_date DESC")
		}).
		Preload("ApprovalHistory.Approver").
		First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// Update edits a request owned by actorID (admins may edit any). Only
// submitted and returned requests are editable; updating a returned request
// resubmits it.
func (s *requestService) Update(ctx context.Context, id, actorID uint, actorRole string, req UpdateRequestDTO) (*model.PurchaseRequest, error) {
	var request model.PurchaseRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if request.RequesterID != actorID && actorRole != model.RoleAdmin {
			return ErrForbidden
		}
		if request.Status != model.StatusSubmitted && request.Status != model.StatusReturned {
			return ErrNotEditable
		}

		resubmitted := request.Status == model.StatusReturned

		if req.Title != "" {
			request.Title = req.Title
		}
		if req.RequestDate != nil {
			request.RequestDate = *req.RequestDate
		}
		if req.Department != "" {
			request.Department = req.Department
		}
		if req.Location != "" {
			request.Location = req.Location
		}
		if req.BusinessJustificationCode != "" {
			request.BusinessJustificationCode = req.BusinessJustificationCode
		}
		if req.BusinessJustificationDetails != "" {
			request.BusinessJustificationDetails = req.BusinessJustificationDetails
		}
		if resubmitted {
			request.Status = model.StatusSubmitted
		}

		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to update purchase request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// transition describes the status mutation one approval action performs
type transition struct {
	action     string
	nextStatus string
	notifTitle string
	notifType  string
	notifBody  func(r model.PurchaseRequest, comments string) string
	mutate     func(r *model.PurchaseRequest)
}

func (s *requestService) Approve(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error) {
	return s.applyTransition(ctx, id, approverID, comments, transition{
		action:     model.ActionApprove,
		nextStatus: model.StatusApproved,
		notifTitle: "Purchase Request Approved",
		notifType:  model.NotificationSuccess,
		notifBody: func(r model.PurchaseRequest, _ string) string {
			return fmt.Sprintf("Your purchase request %s has been approved.", r.RequisitionNumber)
		},
		mutate: func(r *model.PurchaseRequest) {
			r.CurrentApprovalLevel++
		},
	})
}

func (s *requestService) Reject(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error) {
	return s.applyTransition(ctx, id, approverID, comments, transition{
		action:     model.ActionReject,
		nextStatus: model.StatusRejected,
		notifTitle: "Purchase Request Rejected",
		notifType:  model.NotificationError,
		notifBody: func(r model.PurchaseRequest, comments string) string {
			msg := fmt.Sprintf("Your purchase request %s has been rejected.", r.RequisitionNumber)
			if comments != "" {
				msg += " " + comments
			}
			return msg
		},
	})
}

// Return puts the request back in the requester's hands; the approval level
// resets to 1 so the resubmitted request restarts the chain.
func (s *requestService) Return(ctx context.Context, id, approverID uint, comments string) (*model.PurchaseRequest, error) {
	return s.applyTransition(ctx, id, approverID, comments, transition{
		action:     model.ActionReturn,
		nextStatus: model.StatusReturned,
		notifTitle: "Purchase Request Returned",
		notifType:  model.NotificationWarning,
		notifBody: func(r model.PurchaseRequest, comments string) string {
			msg := fmt.Sprintf("Your purchase request %s has been returned for changes.", r.RequisitionNumber)
			if comments != "" {
				msg += " " + comments
			}
			return msg
		},
		mutate: func(r *model.PurchaseRequest) {
			r.CurrentApprovalLevel = 1
		},
	})
}

func (s *requestService) Cancel(ctx context.Context, id, actorID uint, actorRole, comments string) (*model.PurchaseRequest, error) {
	// Ownership check outside the middleware: only the requester or an admin
	// may cancel.
	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != actorID && actorRole != model.RoleAdmin {
		return nil, ErrForbidden
	}

	return s.applyTransition(ctx, id, actorID, comments, transition{
		action:     model.ActionCancel,
		nextStatus: model.StatusCancelled,
		notifTitle: "Purchase Request Cancelled",
		notifType:  model.NotificationInfo,
		notifBody: func(r model.PurchaseRequest, _ string) string {
			return fmt.Sprintf("Purchase request %s has been cancelled.", r.RequisitionNumber)
		},
	})
}

// applyTransition runs one approval action as a single transaction: history
// row at the pre-action level, status mutation, requester notification.
func (s *requestService) applyTransition(ctx context.Context, id, actorID uint, comments string, t transition) (*model.PurchaseRequest, error) {
	var request model.PurchaseRequest
	var notif model.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load purchase request: %w", err)
		}

		if model.IsTerminalStatus(request.Status) {
			return ErrTerminalStatus
		}

		history := model.ApprovalHistory{
			PurchaseRequestID: request.ID,
			ApproverID:        actorID,
			Action:            t.action,
			Comments:          comments,
			ApprovalLevel:     request.CurrentApprovalLevel,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to write approval history: %w", err)
		}

		request.Status = t.nextStatus
		if t.mutate != nil {
			t.mutate(&request)
		}
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to update purchase request: %w", err)
		}

		notif = model.Notification{
			UserID:            request.RequesterID,
			PurchaseRequestID: &request.ID,
			Title:             t.notifTitle,
			Message:           t.notifBody(request, comments),
			Type:              t.notifType,
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.push(notif)
	return &request, nil
}

// --- Line items ---

func (s *requestService) AddLineItem(ctx context.Context, requestID uint, dto LineItemDTO) (*model.LineItem, error) {
	var item model.LineItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guardEditable(tx, requestID); err != nil {
			return err
		}

		item = lineItemFromDTO(requestID, dto)
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create line item: %w", err)
		}

		return s.recomputeTotal(tx, requestID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *requestService) ListLineItems(ctx context.Context, requestID uint) ([]model.LineItem, error) {
	var items []model.LineItem
	if err := s.db.WithContext(ctx).
		Where("purchase_request_id = ?", requestID).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}
	return items, nil
}

func (s *requestService) UpdateLineItem(ctx context.Context, requestID, itemID uint, dto LineItemDTO) (*model.LineItem, error) {
	var item model.LineItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guardEditable(tx, requestID); err != nil {
			return err
		}

		if err := tx.First(&item, "id = ? AND purchase_request_id = ?", itemID, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		item.ItemName = dto.ItemName
		item.RequiredQuantity = dto.RequiredQuantity
		item.UnitOfMeasure = dto.UnitOfMeasure
		item.UnitCost = dto.UnitCost
		item.RequiredByDate = dto.RequiredByDate
		item.DeliveryLocation = dto.DeliveryLocation
		item.ItemJustification = dto.ItemJustification
		item.StockAvailable = dto.StockAvailable
		item.StockLocation = dto.StockLocation

		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("failed to update line item: %w", err)
		}

		return s.recomputeTotal(tx, requestID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *requestService) DeleteLineItem(ctx context.Context, requestID, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guardEditable(tx, requestID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND purchase_request_id = ?", itemID, requestID).Delete(&model.LineItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete line item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return s.recomputeTotal(tx, requestID)
	})
}

// guardEditable locks the request row and checks it still accepts line-item edits
func (s *requestService) guardEditable(tx *gorm.DB, requestID uint) error {
	var request model.PurchaseRequest
	if err := s.forUpdate(tx).First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if request.Status != model.StatusSubmitted && request.Status != model.StatusReturned {
		return ErrNotEditable
	}
	return nil
}

// recomputeTotal rewrites total_estimated_cost as the sum over line items of
// quantity x unit cost, inside the caller's transaction.
func (s *requestService) recomputeTotal(tx *gorm.DB, requestID uint) error {
	var items []model.LineItem
	if err := tx.Where("purchase_request_id = ?", requestID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to fetch line items for rollup: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Cost())
	}

	if err := tx.Model(&model.PurchaseRequest{}).
		Where("id = ?", requestID).
		Update("total_estimated_cost", total).Error; err != nil {
		return fmt.Errorf("failed to update total estimated cost: %w", err)
	}
	return nil
}

// generateRequisitionNumber issues PR-<DEPT4>-<YYYYMM>-<seq3>, a running count
// per department per month. An advisory lock serializes concurrent submitters
// on the same prefix.
func (s *requestService) generateRequisitionNumber(tx *gorm.DB, department string) (string, error) {
	deptCode := strings.ToUpper(department)
	if len(deptCode) > 4 {
		deptCode = deptCode[:4]
	}
	prefix := fmt.Sprintf("PR-%s-%s-", deptCode, time.Now().Format("200601"))

	if tx.Dialector.Name() == "postgres" {
		tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)
	}

	var count int64
	if err := tx.Model(&model.PurchaseRequest{}).
		Where("requisition_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// forUpdate adds a row lock on dialects that support it
func (s *requestService) forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *requestService) push(n model.Notification) {
	if s.hub != nil {
		s.hub.SendToUser(n.UserID, n)
	}
}

func lineItemFromDTO(requestID uint, dto LineItemDTO) model.LineItem {
	return model.LineItem{
		PurchaseRequestID: requestID,
		ItemName:          dto.ItemName,
		RequiredQuantity:  dto.RequiredQuantity,
		UnitOfMeasure:     dto.UnitOfMeasure,
		UnitCost:          dto.UnitCost,
		RequiredByDate:    dto.RequiredByDate,
		DeliveryLocation:  dto.DeliveryLocation,
		ItemJustification: dto.ItemJustification,
		StockAvailable:    dto.StockAvailable,
		StockLocation:     dto.StockLocation,
	}
}
