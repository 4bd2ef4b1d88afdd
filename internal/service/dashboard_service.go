package service

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
)

// DashboardStats summarizes request volumes. ApprovedValue sums the total
// estimated cost of approved requests only.
type DashboardStats struct {
	TotalRequests int64           `json:"total_requests"`
	Pending       int64           `json:"pending"`
	Approved      int64           `json:"approved"`
	Rejected      int64           `json:"rejected"`
	Returned      int64           `json:"returned"`
	Cancelled     int64           `json:"cancelled"`
	ApprovedValue decimal.Decimal `json:"approved_value"`
}

type DashboardService interface {
	// Stats scopes counts to the given requester; requesterID 0 means all
	// requests (the admin view).
	Stats(ctx context.Context, requesterID uint) (*DashboardStats, error)
}

type dashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

func (s *dashboardService) Stats(ctx context.Context, requesterID uint) (*DashboardStats, error) {
	stats := &DashboardStats{ApprovedValue: decimal.Zero}

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.PurchaseRequest{})
		if requesterID != 0 {
			q = q.Where("requester_id = ?", requesterID)
		}
		return q
	}

	if err := base().Count(&stats.TotalRequests).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		N      int64
	}
	var counts []statusCount
	if err := base().Select("status, count(*) as n").Group("status").Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.Status {
		case model.StatusSubmitted, model.StatusPending:
			stats.Pending += c.N
		case model.StatusApproved:
			stats.Approved = c.N
		case model.StatusRejected:
			stats.Rejected = c.N
		case model.StatusReturned:
			stats.Returned = c.N
		case model.StatusCancelled:
			stats.Cancelled = c.N
		}
	}

	var approved []model.PurchaseRequest
	if err := base().Select("total_estimated_cost").
		Where("status = ?", model.StatusApproved).
		Find(&approved).Error; err != nil {
		return nil, err
	}
	for _, r := range approved {
		stats.ApprovedValue = stats.ApprovedValue.Add(r.TotalEstimatedCost)
	}

	return stats, nil
}
