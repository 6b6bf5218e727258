package chat

import (
	"fmt"

	"campusfind/internal/domain/chat/handler"
	"campusfind/internal/domain/chat/repository"
	"campusfind/internal/domain/chat/service"
	notifyservice "campusfind/internal/domain/notification/service"
	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// ChatModule 帖子私信模块
type ChatModule struct{}

func init() {
	registry.Register(&ChatModule{})
}

func (m *ChatModule) Name() string {
	return "chat"
}

func (m *ChatModule) Priority() int {
	return 4
}

func (m *ChatModule) Init(ctx *registry.ModuleContext) error {
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}
	notifier, err := registry.Lookup[notifyservice.Emitter](ctx, registry.ServiceNotifier)
	if err != nil {
		return err
	}
	posts, err := registry.Lookup[service.PostLookup](ctx, registry.ServicePosts)
	if err != nil {
		return err
	}
	approval, err := registry.Lookup[middleware.ApprovalChecker](ctx, registry.ServiceUsers)
	if err != nil {
		return err
	}

	chatService := service.NewChatService(repo, service.Options{
		Posts:    posts,
		Notifier: notifier,
		Logger:   ctx.Logger,
		Metrics:  ctx.Metrics,
		Clock:    ctx.Clock,
	})

	setupRoutes(ctx.Router, handler.NewChatHandler(chatService), approval)
	return nil
}

func newRepository(ctx *registry.ModuleContext) (repository.ChatRepository, error) {
	switch ctx.Driver {
	case config.DriverPostgres:
		return repository.NewChatRepository(ctx.DB), nil
	case config.DriverFirestore:
		return repository.NewFirestoreRepository(ctx.Firestore), nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(ctx.Memory), nil
	}
	return nil, fmt.Errorf("chat: unsupported store driver %q", ctx.Driver)
}

func setupRoutes(r *gin.Engine, h *handler.ChatHandler, approval middleware.ApprovalChecker) {
	approved := []gin.HandlerFunc{middleware.AuthMiddleware(), middleware.ApprovedMiddleware(approval)}

	r.POST("/posts/:id/chat", append(approved, h.Open)...)

	g := r.Group("/chats")
	g.Use(approved...)
	{
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/messages", h.Send)
	}
}
