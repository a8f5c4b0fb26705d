package task

import (
	"context"

	"go.uber.org/zap"

	"purbeurre_v2_202610/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
// 目前只有目录导入
type TaskManager struct {
	importTask *ImportTask
	logger     *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	ImportEnabled  bool
	ImportSchedule string
}

// NewTaskManager 创建任务管理器
func NewTaskManager(importer Importer, cfg TaskManagerConfig, logger *zap.Logger) *TaskManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger}
	if cfg.ImportEnabled && importer != nil {
		tm.importTask = NewImportTask(importer, cfg.ImportSchedule, logger)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("[TaskManager] 正在启动后台任务...")

	if tm.importTask != nil {
		if err := tm.importTask.Start(); err != nil {
			return err
		}
	}

	tm.logger.Info("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	tm.logger.Info("[TaskManager] 正在停止后台任务...")

	if tm.importTask != nil {
		tm.importTask.Stop()
	}

	tm.logger.Info("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerImport 立即执行一次导入
func (tm *TaskManager) TriggerImport(ctx context.Context) (*service.ImportReport, error) {
	if tm.importTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.importTask.RunNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"import":         tm.importTask != nil,
		"import_running": tm.importTask != nil && tm.importTask.Running(),
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled  TaskError = "task is disabled"
	ErrImportRunning TaskError = "import is already running"
)
