package server

import (
	"context"
	"net/http"

	"note-sync/app/config"
	"note-sync/app/handler"
	"note-sync/app/logger"
	"note-sync/app/middleware"
	"note-sync/app/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server 远端历史记录/文件夹存储的 HTTP 服务
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server
	db     *gorm.DB
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config: cfg,
		Logger: log,
		db:     db,
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Handler 返回路由，测试时可直接挂到 httptest
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	historyService := service.NewHistoryService(s.db, s.Logger)
	folderService := service.NewFolderService(s.db, s.Logger)

	historyHandler := handler.NewHistoryHandler(historyService, s.Logger)
	folderHandler := handler.NewFolderHandler(folderService, s.Logger)
	generationHandler := handler.NewGenerationHandler(historyService, s.Logger)

	api := s.gin.Group("/api")
	api.Use(middleware.JWTAuth(s.Config.JWT))
	{
		// 历史记录
		api.GET("/get_all_history", historyHandler.GetAllHistory)
		api.GET("/get_history/:task_id", historyHandler.GetHistory)
		api.DELETE("/delete_history/:task_id", historyHandler.DeleteHistory)
		api.POST("/upsert_history", historyHandler.UpsertHistory)
		api.POST("/import_history", historyHandler.ImportHistory)

		// 文件夹
		folders := api.Group("/folders")
		{
			folders.GET("", folderHandler.GetFolders)
			folders.POST("", folderHandler.CreateFolder)
			folders.PUT("/:id", folderHandler.UpdateFolder)
			folders.DELETE("/:id", folderHandler.DeleteFolder)
			folders.POST("/move-history", folderHandler.MoveHistory)
		}

		// 生成任务
		api.POST("/generate_note", generationHandler.GenerateNote)
		api.POST("/delete_task", generationHandler.DeleteTask)
	}
}
