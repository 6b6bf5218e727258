package service

import (
	"context"
	"fmt"
	"strings"

	"campusfind/internal/domain/notification/model"
	"campusfind/internal/domain/notification/repository"
	"campusfind/internal/pkg/worker"
	"campusfind/pkg/errs"
	"campusfind/pkg/metrics"
	basemodel "campusfind/pkg/model"

	"go.uber.org/zap"
)

// Emitter 其他模块用来产生通知的入口
type Emitter interface {
	// Emit 写入一条未读通知并投递设备推送
	Emit(ctx context.Context, userID string, typ model.Type, content, link string) (*model.Notification, error)
	// Notify 与 Emit 相同，但失败只记录日志，不影响调用方的主流程
	Notify(ctx context.Context, userID string, typ model.Type, content, link string)
}

// NotificationService 通知服务
type NotificationService interface {
	Emitter
	List(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

// Dispatcher 异步推送队列
type Dispatcher interface {
	AddTask(task worker.PushTask) bool
}

type notificationService struct {
	repo    repository.NotificationRepository
	push    Dispatcher // 可为 nil
	log     *zap.Logger
	metrics *metrics.Collector
	clock   basemodel.Clock
}

// NewNotificationService 创建通知服务；push 为 nil 时只写站内通知
func NewNotificationService(repo repository.NotificationRepository, push Dispatcher, log *zap.Logger, m *metrics.Collector, clock basemodel.Clock) NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &notificationService{repo: repo, push: push, log: log, metrics: m, clock: clock}
}

func (s *notificationService) Emit(ctx context.Context, userID string, typ model.Type, content, link string) (*model.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Validation("notification recipient is required")
	}

	n := &model.Notification{
		ID:         basemodel.NewID(),
		UserID:     userID,
		Type:       typ,
		Content:    content,
		Link:       link,
		ReadStatus: false,
		CreatedAt:  s.clock.Now(),
	}
	err := s.repo.Create(ctx, n)
	s.metrics.Notification(string(typ), err)
	if err != nil {
		return nil, fmt.Errorf("emit %s notification: %w", typ, err)
	}

	if s.push != nil {
		s.push.AddTask(worker.PushTask{
			AccountID: userID,
			Title:     "CampusFind",
			Body:      content,
			Ext:       map[string]string{"link": link, "type": string(typ), "notificationId": n.ID},
		})
	}
	return n, nil
}

func (s *notificationService) Notify(ctx context.Context, userID string, typ model.Type, content, link string) {
	if _, err := s.Emit(ctx, userID, typ, content, link); err != nil {
		s.log.Warn("notification dropped",
			zap.String("user_id", userID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

func (s *notificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
