package user

import (
	"fmt"

	notifyservice "campusfind/internal/domain/notification/service"
	"campusfind/internal/domain/user/handler"
	"campusfind/internal/domain/user/repository"
	"campusfind/internal/domain/user/service"
	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"
	"campusfind/internal/pkg/verifier"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// post/chat 依赖用户服务做审核校验
	return 2
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}
	notifier, err := registry.Lookup[notifyservice.Emitter](ctx, registry.ServiceNotifier)
	if err != nil {
		return err
	}

	opts := service.Options{
		Notifier: notifier,
		Logger:   ctx.Logger,
		Metrics:  ctx.Metrics,
		Clock:    ctx.Clock,
	}
	rl := config.RateLimitConfig{QPS: 5, Burst: 20}
	if ctx.Config != nil {
		opts.AdminKey = ctx.Config.App.AdminKey
		if ctx.Config.Verifier.APIKey != "" {
			opts.Verifier = verifier.New(ctx.Config.Verifier)
		}
		rl = ctx.Config.RateLimit
	}

	userService := service.NewUserService(repo, opts)
	if ctx.Cache != nil {
		userService = service.NewCachedUserService(userService, ctx.Cache, ctx.Logger)
	}
	ctx.Provide(registry.ServiceUsers, userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, handler.NewUserHandler(userService), middleware.NewIPRateLimiter(rate.Limit(rl.QPS), rl.Burst))
	return nil
}

func newRepository(ctx *registry.ModuleContext) (repository.UserRepository, error) {
	switch ctx.Driver {
	case config.DriverPostgres:
		return repository.NewUserRepository(ctx.DB), nil
	case config.DriverFirestore:
		return repository.NewFirestoreRepository(ctx.Firestore), nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(ctx.Memory), nil
	}
	return nil, fmt.Errorf("user: unsupported store driver %q", ctx.Driver)
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler, limiter *middleware.IPRateLimiter) {
	// 公开路由，按 IP 限流
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(limiter))
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/admin", h.AdminLogin)
	}

	// 登录即可访问（待审核用户也需要查看自己的资料）
	me := r.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("", h.Me)
		me.PUT("", h.UpdateProfile)
	}

	// 管理员
	admin := r.Group("/admin/users")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("", h.ListUsers)
		admin.PUT("/:id/status", h.SetStatus)
		admin.POST("/:id/verify-id", h.VerifyID)
	}
}
