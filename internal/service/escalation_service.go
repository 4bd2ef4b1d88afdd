package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
)

// EscalationService sweeps requests that have sat at an approval level past
// the configured escalation window and notifies the designated escalation
// contact. Run from a cron schedule.
type EscalationService interface {
	Sweep(ctx context.Context) (int, error)
}

type escalationService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewEscalationService(db *gorm.DB, notifications NotificationService) EscalationService {
	return &escalationService{db: db, notifications: notifications}
}

func (s *escalationService) Sweep(ctx context.Context) (int, error) {
	var rules []model.EscalationMatrix
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return 0, fmt.Errorf("failed to load escalation rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	escalated := 0
	now := time.Now()
	for _, rule := range rules {
		cutoff := now.AddDate(0, 0, -rule.EscalationDays)

		var stale []model.PurchaseRequest
		err := s.db.WithContext(ctx).
			Where("department = ? AND location = ? AND current_approval_level = ?",
				rule.Department, rule.Location, rule.ApprovalLevel).
			Where("status IN ?", []string{model.StatusSubmitted, model.StatusPending}).
			Where("updated_at < ?", cutoff).
			Find(&stale).Error
		if err != nil {
			return escalated, fmt.Errorf("failed to scan stale requests: %w", err)
		}

		for _, r := range stale {
			// One warning per request per day at most; skip if we already
			// notified since the last update.
			var dup int64
			s.db.WithContext(ctx).Model(&model.Notification{}).
				Where("user_id = ? AND purchase_request_id = ? AND type = ? AND created_at > ?",
					rule.EscalateToID, r.ID, model.NotificationWarning, now.AddDate(0, 0, -1)).
				Count(&dup)
			if dup > 0 {
				continue
			}

			requestID := r.ID
			err := s.notifications.Notify(ctx, &model.Notification{
				UserID:            rule.EscalateToID,
				PurchaseRequestID: &requestID,
				Title:             "Request pending beyond escalation window",
				Message: fmt.Sprintf("Request %s has been awaiting action at level %d for more than %d days",
					r.RequisitionNumber, rule.ApprovalLevel, rule.EscalationDays),
				Type: model.NotificationWarning,
			})
			if err != nil {
				log.WithError(err).WithField("request", r.RequisitionNumber).Warn("failed to send escalation notification")
				continue
			}
			escalated++
		}
	}

	if escalated > 0 {
		log.WithField("count", escalated).Info("escalation sweep notified stale requests")
	}
	return escalated, nil
}
