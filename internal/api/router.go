package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/adventure-server/internal/config"
	"github.com/wfunc/adventure-server/internal/game"
	"github.com/wfunc/adventure-server/internal/middleware"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	gameHandler    *GameHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, gameEngine *game.Engine, log *zap.Logger) *Router {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
	)

	router := &Router{
		engine:         engine,
		db:             db,
		gameHandler:    NewGameHandler(gameEngine, jwtManager, log),
		wsHandler:      NewWebSocketHandler(gameEngine, log),
		authMiddleware: middleware.NewAuthMiddleware(jwtManager),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.gameHandler.Login)
		}

		// 游戏相关路由（需要认证）
		gameGroup := v1.Group("/game")
		gameGroup.Use(r.authMiddleware.RequireAuth())
		{
			gameGroup.POST("/restore", r.gameHandler.Restore)
			gameGroup.POST("/command", r.gameHandler.Command)
		}
	}

	// WebSocket路由
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("/game", r.wsHandler.GameWebSocket)
	}

	// Swagger文档（仅在 -tags swagger 时启用）
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试和自定义http.Server）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
