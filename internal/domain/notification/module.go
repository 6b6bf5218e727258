package notification

import (
	"context"
	"errors"
	"fmt"

	"campusfind/internal/domain/notification/handler"
	"campusfind/internal/domain/notification/repository"
	"campusfind/internal/domain/notification/service"
	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/push"
	"campusfind/internal/pkg/registry"
	"campusfind/internal/pkg/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationModule 通知模块，需先于 user/post/chat 初始化
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	return 1
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}

	var dispatcher service.Dispatcher
	if pool := newPushPool(ctx); pool != nil {
		pool.Start()
		ctx.OnShutdown(pool.Stop)
		dispatcher = pool
	}

	svc := service.NewNotificationService(repo, dispatcher, ctx.Logger, ctx.Metrics, ctx.Clock)
	ctx.Provide(registry.ServiceNotifier, service.Emitter(svc))

	setupRoutes(ctx.Router, handler.NewNotificationHandler(svc))
	return nil
}

func newRepository(ctx *registry.ModuleContext) (repository.NotificationRepository, error) {
	switch ctx.Driver {
	case config.DriverPostgres:
		return repository.NewNotificationRepository(ctx.DB), nil
	case config.DriverFirestore:
		return repository.NewFirestoreRepository(ctx.Firestore), nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(ctx.Memory), nil
	}
	return nil, fmt.Errorf("notification: unsupported store driver %q", ctx.Driver)
}

// newPushPool 未配置推送时返回 nil，只保留站内通知
func newPushPool(ctx *registry.ModuleContext) *worker.WorkerPool {
	if ctx.Config == nil {
		return nil
	}
	log := ctx.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cfg := ctx.Config.Push
	client, err := push.NewAliyunPushService(cfg)
	if err != nil {
		if !errors.Is(err, push.ErrNotConfigured) {
			log.Warn("push disabled", zap.Error(err))
		}
		return nil
	}

	return worker.NewWorkerPool(func(_ context.Context, task worker.PushTask) error {
		err := client.PushToAccount(task.AccountID, task.Title, task.Body, task.Ext)
		ctx.Metrics.Push(err)
		return err
	}, cfg.Workers, cfg.QueueSize, log)
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	g := r.Group("/notifications")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.List)
		g.GET("/unread-count", h.UnreadCount)
		g.PUT("/read-all", h.MarkAllRead)
		g.PUT("/:id/read", h.MarkRead)
	}
}
