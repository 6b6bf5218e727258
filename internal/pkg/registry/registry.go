package registry

import (
	"fmt"
	"sort"

	"campusfind/internal/pkg/config"
	"campusfind/pkg/cache"
	"campusfind/pkg/memdb"
	"campusfind/pkg/metrics"
	basemodel "campusfind/pkg/model"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 模块之间共享的服务名
const (
	ServiceNotifier = "notification.emitter"
	ServiceUsers    = "user.service"
	ServicePosts    = "post.service"
)

// ModuleContext 模块初始化所需的上下文。
// 先初始化的模块通过 Provide 发布服务，后面的模块用 Lookup 取用。
type ModuleContext struct {
	Config    *config.Config
	Clock     basemodel.Clock // nil 表示系统时间
	Driver    string
	DB        *gorm.DB
	Firestore *firestore.Client
	Memory    *memdb.DB
	Cache     cache.CacheService // 可为 nil
	Router    *gin.Engine
	Logger    *zap.Logger
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer // /metrics 数据源，可为 nil

	services map[string]interface{}
	closers  []func()
}

// OnShutdown 注册退出时需要执行的清理函数，按注册的逆序执行
func (c *ModuleContext) OnShutdown(fn func()) {
	c.closers = append(c.closers, fn)
}

// Shutdown 执行全部清理函数
func (c *ModuleContext) Shutdown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Provide 发布一个服务供后续模块使用
func (c *ModuleContext) Provide(name string, svc interface{}) {
	if c.services == nil {
		c.services = make(map[string]interface{})
	}
	c.services[name] = svc
}

// Lookup 按名字和类型获取已发布的服务
func Lookup[T any](c *ModuleContext, name string) (T, error) {
	var zero T
	svc, ok := c.services[name]
	if !ok {
		return zero, fmt.Errorf("registry: service %q not provided", name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("registry: service %q has type %T", name, svc)
	}
	return typed, nil
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	// notification 需要先于 user/post/chat 初始化
	Priority() int
}

// moduleRegistry 全局模块注册表
var moduleRegistry = make(map[string]Module)

// Register 注册模块
func Register(module Module) {
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	return moduleRegistry
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}

	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Priority() == modules[j].Priority() {
			return modules[i].Name() < modules[j].Name()
		}
		return modules[i].Priority() < modules[j].Priority()
	})

	for _, module := range modules {
		if err := module.Init(ctx); err != nil {
			return fmt.Errorf("init module %s: %w", module.Name(), err)
		}
		if ctx.Logger != nil {
			ctx.Logger.Info("module initialized", zap.String("module", module.Name()), zap.Int("priority", module.Priority()))
		}
	}

	return nil
}
