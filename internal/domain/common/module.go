package common

import (
	"net/http"

	"campusfind/internal/pkg/common"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"
	"campusfind/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	var up uploader.Uploader
	if ctx.Config != nil {
		u, err := uploader.NewAliyunOSSUploader(ctx.Config.OSS)
		if err != nil {
			if ctx.Logger != nil {
				ctx.Logger.Warn("upload disabled", zap.Error(err))
			}
		} else {
			up = u
		}
	}

	setupRoutes(ctx, common.NewUploadHandler(up))
	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *common.UploadHandler) {
	r := ctx.Router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": ctx.Driver})
	})

	if ctx.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ctx.Gatherer, promhttp.HandlerOpts{})))
	}

	// 生产环境不暴露接口文档
	if ctx.Config == nil || ctx.Config.App.Env != "prod" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 文件上传接口
	r.POST("/upload", middleware.AuthMiddleware(), h.UploadFile)
}
