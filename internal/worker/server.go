package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/tasks"
)

// Handlers 是 Worker 需要注册的任务处理器
type Handlers struct {
	MemberOffline *MemberOfflineHandler
	PresenceSweep *PresenceSweepHandler
	Checkpoint    *CheckpointHandler
}

// NewServeMux 按任务类型注册处理器
func NewServeMux(h Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if h.MemberOffline != nil {
		mux.HandleFunc(tasks.TypeMemberOffline, h.MemberOffline.ProcessTask)
	}
	if h.PresenceSweep != nil {
		mux.HandleFunc(tasks.TypePresenceSweep, h.PresenceSweep.ProcessTask)
	}
	if h.Checkpoint != nil {
		mux.HandleFunc(tasks.TypeDocumentCheckpoint, h.Checkpoint.ProcessTask)
	}
	return mux
}

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
func NewWorkerServer(redisOpt asynq.RedisConnOpt, handlers Handlers, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: logEntry,
		},
	)

	return &WorkerServer{
		server: server,
		mux:    NewServeMux(handlers),
		log:    logEntry,
	}
}

// Start 运行 Worker Server，它应该在一个单独的 goroutine 中调用
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
