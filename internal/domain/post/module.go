package post

import (
	"fmt"
	"time"

	notifyservice "campusfind/internal/domain/notification/service"
	"campusfind/internal/domain/post/handler"
	"campusfind/internal/domain/post/repository"
	"campusfind/internal/domain/post/service"
	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PostModule 失物招领帖模块
type PostModule struct{}

func init() {
	registry.Register(&PostModule{})
}

func (m *PostModule) Name() string {
	return "post"
}

func (m *PostModule) Priority() int {
	return 3
}

func (m *PostModule) Init(ctx *registry.ModuleContext) error {
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}
	notifier, err := registry.Lookup[notifyservice.Emitter](ctx, registry.ServiceNotifier)
	if err != nil {
		return err
	}
	approval, err := registry.Lookup[middleware.ApprovalChecker](ctx, registry.ServiceUsers)
	if err != nil {
		return err
	}

	opts := service.Options{
		Notifier: notifier,
		Logger:   ctx.Logger,
		Metrics:  ctx.Metrics,
		Clock:    ctx.Clock,
	}
	if ctx.Config != nil && ctx.Config.App.PostTTLDays > 0 {
		opts.TTL = time.Duration(ctx.Config.App.PostTTLDays) * 24 * time.Hour
	}

	postService := service.NewPostService(repo, opts)
	ctx.Provide(registry.ServicePosts, postService)

	setupRoutes(ctx.Router, handler.NewPostHandler(postService), approval)
	return nil
}

func newRepository(ctx *registry.ModuleContext) (repository.PostRepository, error) {
	switch ctx.Driver {
	case config.DriverPostgres:
		return repository.NewPostRepository(ctx.DB), nil
	case config.DriverFirestore:
		return repository.NewFirestoreRepository(ctx.Firestore), nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(ctx.Memory), nil
	}
	return nil, fmt.Errorf("post: unsupported store driver %q", ctx.Driver)
}

func setupRoutes(r *gin.Engine, h *handler.PostHandler, approval middleware.ApprovalChecker) {
	g := r.Group("/posts")
	g.Use(middleware.AuthMiddleware())
	{
		// 删除只要求登录，管理员与帖主均可
		g.DELETE("/:id", h.Delete)

		approved := g.Group("")
		approved.Use(middleware.ApprovedMiddleware(approval))
		{
			approved.GET("", h.List)
			approved.POST("", h.Create)
			approved.GET("/:id", h.Get)
			approved.POST("/:id/replies", h.Reply)
			approved.PUT("/:id/resolve", h.Resolve)
		}
	}
}
