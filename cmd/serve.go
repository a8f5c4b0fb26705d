package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"purbeurre_v2_202610/internal/middleware"
	"purbeurre_v2_202610/internal/router"
	"purbeurre_v2_202610/internal/task"
)

func newServeCmd(envFile *string) *cobra.Command {
	var importNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the scheduled import when IMPORT_SCHEDULE is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := initDependencies(*envFile)
			if err != nil {
				return err
			}
			defer deps.Close()

			// 定时任务
			tm := task.NewTaskManager(deps.Services.Import, task.TaskManagerConfig{
				ImportEnabled:  deps.Config.Import.Schedule != "" || importNow,
				ImportSchedule: deps.Config.Import.Schedule,
			}, deps.Logger)
			if err := tm.Start(); err != nil {
				return err
			}
			defer tm.Stop()

			if importNow {
				go triggerStartupImport(tm, deps.Logger)
			}

			return startServer(deps, setupRouter(deps, tm))
		},
	}

	cmd.Flags().BoolVar(&importNow, "import-now", false, "run one catalog import in the background right after startup")
	return cmd
}

// triggerStartupImport 启动后立即导入一次，不阻塞 HTTP 服务
func triggerStartupImport(tm *task.TaskManager, log *zap.Logger) {
	report, err := tm.TriggerImport(context.Background())
	if err != nil {
		log.Error("[Server] 启动导入失败", zap.Error(err))
		return
	}
	log.Info("[Server] 启动导入完成", zap.String("report", report.String()))
}

// setupRouter 创建 gin 引擎并注册路由
func setupRouter(deps *Dependencies, tasks router.TaskStatus) *gin.Engine {
	gin.SetMode(deps.Config.Server.GinMode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))
	router.InitRoutes(r, deps.Controllers.Product, deps.Controllers.Favorite, tasks)
	return r
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(deps *Dependencies, r *gin.Engine) error {
	log := deps.Logger
	port := deps.Config.Server.Port

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("[Server] 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("[Server] 服务启动失败", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("[Server] 正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("[Server] 服务强制关闭", zap.Error(err))
		return err
	}

	log.Info("[Server] 服务已退出")
	return nil
}
