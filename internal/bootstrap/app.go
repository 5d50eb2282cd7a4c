package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"code-collaboration-studio/internal/execution"
	"code-collaboration-studio/internal/feed"
	httpHandler "code-collaboration-studio/internal/handler/http"
	wsHandler "code-collaboration-studio/internal/handler/websocket"
	"code-collaboration-studio/internal/hub"
	redisfeed "code-collaboration-studio/internal/infra/feed/redis"
	gormpersistence "code-collaboration-studio/internal/infra/persistence/gorm"
	"code-collaboration-studio/internal/infra/setup"
	redisstate "code-collaboration-studio/internal/infra/state/redis"
	"code-collaboration-studio/internal/identity"
	"code-collaboration-studio/internal/middleware"
	"code-collaboration-studio/internal/service"
	"code-collaboration-studio/internal/session"
	"code-collaboration-studio/internal/tasks"
	"code-collaboration-studio/internal/worker"
)

// 周期任务的调度表达式
const (
	presenceSweepSchedule = "@every 30s"
	checkpointSchedule    = "@every 1m"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqServer    *worker.WorkerServer
	Scheduler      *asynq.Scheduler
	Hub            *hub.Hub
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
}

// Handlers 是路由需要的全部 HTTP 处理器
type Handlers struct {
	Auth      *httpHandler.AuthHandler
	Room      *httpHandler.RoomHandler
	Execute   *httpHandler.ExecuteHandler
	WebSocket *wsHandler.WebSocketHandler
}

// NewLogger 按环境和级别创建 Logger
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	// 包级别的 logrus 调用与 App 的 logger 保持一致
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel().String())

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	broker := feed.NewBroker(redisfeed.NewRedisTransport(redisClient), cfg.KeyPrefix, log)
	log.Info("Infrastructure initialized successfully")

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	memberRepo := gormpersistence.NewGormMemberRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)
	boardRepo := gormpersistence.NewGormWhiteboardRepository(db)
	checkpointRepo := gormpersistence.NewGormCheckpointRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)

	// 5. 初始化 Services
	tokens, err := identity.NewTokens(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	resolver := identity.NewResolver(userRepo)
	authService := service.NewAuthService(userRepo, tokens, resolver)
	memberService := service.NewMemberService(memberRepo, userRepo, broker)
	roomService := service.NewRoomService(roomRepo, memberService)
	chatService := service.NewChatService(chatRepo, broker)
	collabService := service.NewCollaborationService(roomRepo, boardRepo, stateRepo, broker)
	checkpointService := service.NewCheckpointService(roomRepo, checkpointRepo, stateRepo, cfg.CheckpointKeep)
	presenceService := service.NewPresenceService(stateRepo, memberService, cfg.PresenceExpiry)
	runner := execution.NewClient(execution.Config{
		BaseURL:    cfg.Judge0URL,
		APIKey:     cfg.Judge0APIKey,
		LanguageID: cfg.Judge0LanguageID,
		Timeout:    cfg.ExecutionTimeout,
	}, log)
	log.Info("Services initialized")

	// 6. 初始化 Hub
	hubInstance := hub.NewHub(tasks.NewOfflineScheduler(asynqClient))

	// 7. 初始化 Handlers
	handlers := Handlers{
		Auth:    httpHandler.NewAuthHandler(authService),
		Room:    httpHandler.NewRoomHandler(roomService, chatService, checkpointService),
		Execute: httpHandler.NewExecuteHandler(runner),
		WebSocket: wsHandler.NewWebSocketHandler(hubInstance, resolver, session.Deps{
			Rooms:      roomService,
			Members:    memberService,
			Documents:  collabService,
			Chat:       chatService,
			Board:      collabService,
			Heartbeats: presenceService,
			Feed:       broker,
			Runner:     runner,
			Lifecycle:  hubInstance,
		}, wsHandler.Options{
			Session: session.Config{
				Debounce:          cfg.DocumentDebounce,
				HeartbeatInterval: cfg.HeartbeatInterval,
				PresenceExpiry:    cfg.PresenceExpiry,
			},
			Limits:         hub.DefaultLimits,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			NewID:          service.UUIDGenerator,
		}),
	}

	// 8. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, worker.Handlers{
		MemberOffline: worker.NewMemberOfflineHandler(presenceService, hubInstance),
		PresenceSweep: worker.NewPresenceSweepHandler(presenceService),
		Checkpoint:    worker.NewCheckpointHandler(checkpointService),
	}, log)

	// 9. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(cfg, log, handlers, tokens, stateRepo)

	// 10. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app := &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// NewRouter 注册中间件和全部路由
func NewRouter(cfg *Config, log *logrus.Logger, h Handlers, tokens middleware.TokenVerifier, limiter middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigins))

	auth := middleware.Auth(tokens)
	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
	}
	api.GET("/me", auth, h.Auth.Me)
	roomRoutes := api.Group("/rooms", auth)
	{
		roomRoutes.POST("", h.Room.CreateRoom)
		roomRoutes.POST("/join", h.Room.JoinRoom)
		roomRoutes.GET("/:code", h.Room.GetRoom)
		roomRoutes.GET("/:code/messages", h.Room.ListMessages)
		roomRoutes.PATCH("/:code/messages/:id", h.Room.EditMessage)
		roomRoutes.DELETE("/:code/messages/:id", h.Room.DeleteMessage)
		roomRoutes.GET("/:code/checkpoints", h.Room.ListCheckpoints)
	}
	api.POST("/execute", auth, h.Execute.Execute)

	router.GET("/ws", auth, h.WebSocket.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{
		Logger: a.Log.WithField("component", "scheduler"),
	})

	periodic := []struct {
		schedule string
		task     *asynq.Task
	}{
		{presenceSweepSchedule, tasks.NewPresenceSweepTask()},
		{checkpointSchedule, tasks.NewDocumentCheckpointTask()},
	}
	for _, p := range periodic {
		entryID, err := scheduler.Register(p.schedule, p.task, asynq.Queue("low"))
		if err != nil {
			a.Log.Errorf("Could not register periodic task %s: %v", p.task.Type(), err)
			continue
		}
		a.Log.Infof("Periodic task %s registered with schedule '%s' (EntryID: %s)", p.task.Type(), p.schedule, entryID)
	}
	// Start 不阻塞，关闭由 Shutdown 负责
	if err := scheduler.Start(); err != nil {
		a.Log.Errorf("Asynq scheduler failed to start: %v", err)
		return
	}
	a.Scheduler = scheduler
	a.Log.Info("Asynq scheduler started")
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 先停 HTTP 服务器，不再接受新连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 关闭所有 WebSocket 连接，会话退出房间并调度离线任务
	if a.Hub != nil {
		a.Hub.Stop()
	}

	// 3. 停止 Scheduler 和 Worker
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	// 4. 关闭 Asynq Client
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	// 5. 关闭 Redis 连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	// 6. 关闭数据库连接池
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// CORSMiddleware 按配置的来源列表设置跨域响应头
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.ToLower(o)] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || allowed[strings.ToLower(origin)]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		// 查询参数可能带 token，不写入日志
		if q := c.Request.URL.Query(); len(q) > 0 && q.Get("token") == "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
