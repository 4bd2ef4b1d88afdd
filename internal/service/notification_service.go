package service

import (
	"context"
	"fmt"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/repository"
	"github.com/AdityaDodda/purchase-kandhari/internal/websocket"
)

// NotificationService exposes per-user notification reads and creation with
// websocket push.
type NotificationService interface {
	Notify(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uint) error
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	hub  *websocket.Hub
}

// NewNotificationService returns a NotificationService; hub may be nil in tests
func NewNotificationService(repo repository.NotificationRepository, hub *websocket.Hub) NotificationService {
	return &notificationService{repo: repo, hub: hub}
}

func (s *notificationService) Notify(ctx context.Context, n *model.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if s.hub != nil {
		s.hub.SendToUser(n.UserID, n)
	}
	return nil
}

func (s *notificationService) ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.Notification, int64, error) {
	return s.repo.ListByUser(ctx, userID, page, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *notificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
