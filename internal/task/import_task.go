package task

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"purbeurre_v2_202610/internal/service"
)

// Importer 执行一次全量导入
type Importer interface {
	RunImport(ctx context.Context) (*service.ImportReport, error)
}

// ==================== ImportTask 目录导入任务 ====================

// ImportTask 定时目录导入
// 同一进程内同时只允许一次导入
type ImportTask struct {
	importer Importer
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger

	running atomic.Bool
}

// NewImportTask 创建导入任务
// schedule 支持 5 段或 6 段 (带秒) cron 表达式，以及 @daily 等描述符
func NewImportTask(importer Importer, schedule string, logger *zap.Logger) *ImportTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &ImportTask{
		importer: importer,
		schedule: schedule,
		timeout:  2 * time.Hour,
		cron:     cron.New(cron.WithParser(parser)),
		logger:   logger,
	}
}

// SetTimeout 单次导入超时
func (t *ImportTask) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

// Start 注册并启动定时任务，schedule 为空时不启动
func (t *ImportTask) Start() error {
	if t.schedule == "" {
		t.logger.Info("[ImportTask] 未配置导入计划，跳过")
		return nil
	}

	_, err := t.cron.AddFunc(t.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if _, err := t.RunNow(ctx); err != nil {
			t.logger.Warn("[ImportTask] 定时导入未完成", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("导入计划 %q 无效: %w", t.schedule, err)
	}

	t.cron.Start()
	t.logger.Info("[ImportTask] 定时导入已启动", zap.String("schedule", t.schedule))
	return nil
}

// Stop 停止调度并等待正在执行的导入结束
func (t *ImportTask) Stop() {
	<-t.cron.Stop().Done()
	t.logger.Info("[ImportTask] 已停止")
}

// RunNow 立即执行一次导入，已有导入在跑时返回 ErrImportRunning
func (t *ImportTask) RunNow(ctx context.Context) (*service.ImportReport, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, ErrImportRunning
	}
	defer t.running.Store(false)

	t.logger.Info("[ImportTask] 开始导入")
	report, err := t.importer.RunImport(ctx)
	if err != nil {
		return report, err
	}
	t.logger.Info("[ImportTask] 导入完成", zap.String("report", report.String()))
	return report, nil
}

// Running 是否有导入在执行
func (t *ImportTask) Running() bool {
	return t.running.Load()
}
