package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
	"purbeurre_v2_202610/pkg/metrics"
	"purbeurre_v2_202610/pkg/openfoodfacts"
)

// ErrValidationFailed 上游记录不满足入库条件
var ErrValidationFailed = errors.New("record validation failed")

// maxEnergy100g 能量字段可入库的上限
const maxEnergy100g = math.MaxInt32

// ==================== 导入结果 ====================

// UpsertOutcome 单条商品的处理结果
type UpsertOutcome int

const (
	OutcomeCreated UpsertOutcome = iota
	OutcomeUpdated
	OutcomeUnchanged
	OutcomeSkipped
	OutcomeFailed
	OutcomeDeleted
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeDeleted:
		return "deleted"
	}
	return "unknown"
}

// Letter 进度输出字符
func (o UpsertOutcome) Letter() byte {
	switch o {
	case OutcomeCreated:
		return '.'
	case OutcomeUpdated:
		return 'u'
	case OutcomeUnchanged:
		return '='
	case OutcomeSkipped:
		return 'S'
	case OutcomeDeleted:
		return 'D'
	}
	return 'F'
}

// ImportReport 一次导入的统计
type ImportReport struct {
	CategoriesSelected int
	CategoriesFailed   int

	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Deleted   int

	Duration time.Duration

	mu sync.Mutex
}

func (r *ImportReport) record(o UpsertOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeDeleted:
		r.Deleted++
	default:
		r.Failed++
	}
}

func (r *ImportReport) categoryFailed() {
	r.mu.Lock()
	r.CategoriesFailed++
	r.mu.Unlock()
}

func (r *ImportReport) String() string {
	return fmt.Sprintf(
		"categories: %d selected, %d failed | products: %d created, %d updated, %d unchanged, %d skipped, %d failed, %d deleted | %s",
		r.CategoriesSelected, r.CategoriesFailed,
		r.Created, r.Updated, r.Unchanged, r.Skipped, r.Failed, r.Deleted,
		r.Duration.Round(time.Millisecond),
	)
}

// ==================== 服务 ====================

// ProductSource 上游商品数据源，生产环境为 openfoodfacts.Client
type ProductSource interface {
	FetchCategories(ctx context.Context) ([]openfoodfacts.CategoryTag, error)
	FetchProductsForCategory(ctx context.Context, categoryName string) ([]openfoodfacts.RawProduct, error)
}

// ImportOptions 导入参数
type ImportOptions struct {
	PopularityThreshold int  // 分类商品数阈值
	Concurrency         int  // 并发拉取分类数，<=1 为顺序执行
	DeleteOnConflict    bool // 更新撞唯一约束时删除该商品
}

// ImportService 目录导入服务
type ImportService struct {
	uow      *repository.CatalogUnitOfWork
	source   ProductSource
	opts     ImportOptions
	logger   *zap.Logger
	progress io.Writer

	progressMu sync.Mutex
	nameLocks  sync.Map // product name -> *sync.Mutex
}

// NewImportService 创建导入服务
func NewImportService(uow *repository.CatalogUnitOfWork, source ProductSource, opts ImportOptions, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &ImportService{
		uow:      uow,
		source:   source,
		opts:     opts,
		logger:   logger,
		progress: io.Discard,
	}
}

// SetProgress 设置进度输出 (命令行传 os.Stdout)
func (s *ImportService) SetProgress(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.progress = w
}

// ==================== 校验 ====================

// ValidateRecord 记录是否可以入库
func ValidateRecord(raw openfoodfacts.RawProduct) bool {
	return validateRecord(raw) == nil
}

func validateRecord(raw openfoodfacts.RawProduct) error {
	if raw.Malformed {
		return fmt.Errorf("%w: 记录无法解析: %s", ErrValidationFailed, raw.DecodeErr)
	}
	if strings.TrimSpace(raw.NutritionGradeFr) == "" {
		return fmt.Errorf("%w: 缺少营养等级", ErrValidationFailed)
	}
	if _, ok := model.ParseNutritionGrade(raw.NutritionGradeFr); !ok {
		return fmt.Errorf("%w: 营养等级无效 %q", ErrValidationFailed, raw.NutritionGradeFr)
	}
	if !raw.Nutriments.Fiber100g.Present || raw.Nutriments.Fiber100g.Value == 0 {
		return fmt.Errorf("%w: 缺少纤维含量", ErrValidationFailed)
	}
	if strings.TrimSpace(raw.ProductName) == "" {
		return fmt.Errorf("%w: 缺少商品名称", ErrValidationFailed)
	}
	if e := raw.Nutriments.Energy(); e < 0 || e > maxEnergy100g {
		return fmt.Errorf("%w: 能量值超出范围 %g", ErrValidationFailed, e)
	}
	return nil
}

// toProduct 映射上游字段，调用前需通过校验
func toProduct(raw openfoodfacts.RawProduct) *model.Product {
	grade, _ := model.ParseNutritionGrade(raw.NutritionGradeFr)
	n := raw.Nutriments

	p := &model.Product{
		Name:              strings.TrimSpace(raw.ProductName),
		NutritionGrade:    grade,
		ImageURL:          strings.TrimSpace(raw.ImageFrontURL),
		Energy100g:        int(math.Round(n.Energy())),
		EnergyUnit:        n.EnergyUnit,
		Carbohydrates100g: n.Carbohydrates100g.Value,
		Sugars100g:        n.Sugars100g.Value,
		Fat100g:           n.Fat100g.Value,
		SaturatedFat100g:  n.SaturatedFat100g.Value,
		Salt100g:          n.Salt100g.Value,
		Sodium100g:        n.Sodium100g.Value,
		Fiber100g:         n.Fiber100g.Value,
		Proteins100g:      n.Proteins100g.Value,
	}
	if u := strings.TrimSpace(raw.URL); u != "" {
		p.URL = &u
	}
	return p
}

// ==================== 单条写入 ====================

// lockName 同名商品的写入串行化
func (s *ImportService) lockName(name string) func() {
	actual, _ := s.nameLocks.LoadOrStore(name, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// UpsertProduct 按名称新建或覆盖商品，并合并分类关联
// 每条商品一个事务，失败只影响自身
func (s *ImportService) UpsertProduct(ctx context.Context, raw openfoodfacts.RawProduct) (UpsertOutcome, error) {
	if err := validateRecord(raw); err != nil {
		return OutcomeSkipped, err
	}

	incoming := toProduct(raw)
	categoryNames := raw.CategoryNames()

	unlock := s.lockName(incoming.Name)
	defer unlock()

	var (
		outcome    UpsertOutcome
		existingID int64
		updating   bool
	)

	err := s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		existing, err := tx.Products.GetByName(ctx, incoming.Name)
		if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
			return err
		}

		categoryIDs, err := s.resolveCategories(ctx, tx, categoryNames)
		if err != nil {
			return err
		}

		// 新建
		if existing == nil {
			if err := tx.Products.Create(ctx, incoming); err != nil {
				return err
			}
			if err := tx.Products.AddCategories(ctx, incoming.ID, categoryIDs); err != nil {
				return err
			}
			outcome = OutcomeCreated
			return nil
		}

		// 更新
		existingID = existing.ID
		linked := make(map[int64]struct{}, len(existing.Categories))
		for _, c := range existing.Categories {
			linked[c.ID] = struct{}{}
		}
		missing := make([]int64, 0, len(categoryIDs))
		for _, id := range categoryIDs {
			if _, ok := linked[id]; !ok {
				missing = append(missing, id)
			}
		}

		sameFields := existing.SameFields(incoming)
		if sameFields && len(missing) == 0 {
			outcome = OutcomeUnchanged
			return nil
		}

		updating = true
		if !sameFields {
			existing.CopyFieldsFrom(incoming)
			if err := tx.Products.Update(ctx, existing); err != nil {
				return err
			}
		}
		if err := tx.Products.AddCategories(ctx, existing.ID, missing); err != nil {
			return err
		}
		outcome = OutcomeUpdated
		return nil
	})
	if err == nil {
		return outcome, nil
	}

	if updating && s.opts.DeleteOnConflict && repository.IsIntegrityViolation(err) {
		if delErr := s.deleteProduct(ctx, existingID); delErr != nil {
			return OutcomeFailed, fmt.Errorf("更新失败且删除失败: %v: %w", err, delErr)
		}
		s.logger.Warn("[Import] 更新冲突，已删除商品",
			zap.String("name", incoming.Name),
			zap.Int64("product_id", existingID),
			zap.Error(err),
		)
		return OutcomeDeleted, nil
	}

	return OutcomeFailed, fmt.Errorf("写入商品 %q 失败: %w", incoming.Name, err)
}

// resolveCategories get-or-create 分类，按名称排序加锁顺序一致
func (s *ImportService) resolveCategories(ctx context.Context, tx *repository.CatalogUnitOfWork, names []string) ([]int64, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	ids := make([]int64, 0, len(sorted))
	for _, name := range sorted {
		c, err := tx.Categories.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("创建分类 %q 失败: %w", name, err)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// deleteProduct 删除商品及引用它的收藏
func (s *ImportService) deleteProduct(ctx context.Context, productID int64) error {
	return s.uow.Transaction(ctx, func(tx *repository.CatalogUnitOfWork) error {
		if err := tx.Favorites.DeleteByProduct(ctx, productID); err != nil {
			return err
		}
		return tx.Products.Delete(ctx, productID)
	})
}

// ==================== 全量导入 ====================

// fetchedCategory 一个分类的拉取结果
type fetchedCategory struct {
	name    string
	records []openfoodfacts.RawProduct
	err     error
}

// runState 单次导入内同名商品以首条记录为准
type runState struct {
	mu      sync.Mutex
	applied map[string]*model.Product
}

func newRunState() *runState {
	return &runState{applied: make(map[string]*model.Product)}
}

// claim 首次出现的名称占位；之后只接受字段完全一致的记录 (可补充分类)
func (r *runState) claim(p *model.Product) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	first, ok := r.applied[p.Name]
	if !ok {
		r.applied[p.Name] = p
		return true
	}
	return first.SameFields(p)
}

// RunImport 拉取热门分类并逐条写入商品
// 分类列表获取失败则中止；单个分类失败只记录并跳过
// 分类并发拉取，写入按分类顺序串行进行
func (s *ImportService) RunImport(ctx context.Context) (*ImportReport, error) {
	start := time.Now()
	report := &ImportReport{}

	tags, err := s.source.FetchCategories(ctx)
	if err != nil {
		metrics.ImportRuns.WithLabelValues("aborted").Inc()
		s.logger.Error("[Import] 获取分类列表失败，中止导入", zap.Error(err))
		return nil, fmt.Errorf("获取分类列表失败: %w", err)
	}

	selected := openfoodfacts.SelectCategories(tags, s.opts.PopularityThreshold)
	report.CategoriesSelected = len(selected)
	metrics.ImportCategories.WithLabelValues("selected").Add(float64(len(selected)))
	s.logger.Info("[Import] 分类筛选完成",
		zap.Int("total", len(tags)),
		zap.Int("selected", len(selected)),
		zap.Int("threshold", s.opts.PopularityThreshold),
	)

	// 被选中的分类本身先入库，失败的分类不再拉取商品
	persisted := make([]string, 0, len(selected))
	for _, tag := range selected {
		if _, err := s.uow.Categories.GetOrCreate(ctx, tag.Name); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.finish(report, start, ctxErr)
			}
			report.categoryFailed()
			metrics.ImportCategories.WithLabelValues("failed").Inc()
			s.logger.Warn("[Import] 保存分类失败，跳过", zap.String("category", tag.Name), zap.Error(err))
			s.writeProgress(fmt.Sprintf("%s: F (save failed)\n", tag.Name))
			continue
		}
		persisted = append(persisted, tag.Name)
	}

	fetched, err := s.fetchAll(ctx, persisted)
	if err != nil {
		return s.finish(report, start, err)
	}

	run := newRunState()
	for _, fc := range fetched {
		if err := s.importCategory(ctx, fc, run, report); err != nil {
			return s.finish(report, start, err)
		}
	}
	return s.finish(report, start, nil)
}

func (s *ImportService) finish(report *ImportReport, start time.Time, err error) (*ImportReport, error) {
	report.Duration = time.Since(start)
	metrics.ImportDuration.Observe(report.Duration.Seconds())

	if err != nil {
		metrics.ImportRuns.WithLabelValues("aborted").Inc()
		s.logger.Warn("[Import] 导入被中断", zap.Error(err), zap.String("report", report.String()))
		return report, err
	}

	metrics.ImportRuns.WithLabelValues("success").Inc()
	s.logger.Info("[Import] 导入完成", zap.String("report", report.String()))
	return report, nil
}

// fetchAll 并发拉取各分类商品，结果保持输入顺序
// 只在 ctx 取消时返回错误
func (s *ImportService) fetchAll(ctx context.Context, names []string) ([]fetchedCategory, error) {
	results := make([]fetchedCategory, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := s.source.FetchProductsForCategory(gctx, name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
			}
			results[i] = fetchedCategory{name: name, records: records, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// importCategory 写入一个分类的商品，只在 ctx 取消时返回错误
func (s *ImportService) importCategory(ctx context.Context, fc fetchedCategory, run *runState, report *ImportReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if fc.err != nil {
		report.categoryFailed()
		metrics.ImportCategories.WithLabelValues("failed").Inc()
		s.logger.Warn("[Import] 拉取分类商品失败，跳过", zap.String("category", fc.name), zap.Error(fc.err))
		s.writeProgress(fmt.Sprintf("%s: F (fetch failed)\n", fc.name))
		return nil
	}

	var line strings.Builder
	line.WriteString(fc.name)
	line.WriteString(": ")

	for _, raw := range fc.records {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := s.upsertInRun(ctx, raw, run)
		report.record(outcome)
		metrics.ImportProducts.WithLabelValues(outcome.String()).Inc()
		line.WriteByte(outcome.Letter())

		if err != nil && outcome == OutcomeFailed {
			s.logger.Warn("[Import] 商品写入失败",
				zap.String("category", fc.name),
				zap.String("product", raw.ProductName),
				zap.Error(err),
			)
		}
	}

	line.WriteByte('\n')
	s.writeProgress(line.String())
	s.logger.Debug("[Import] 分类处理完成", zap.String("category", fc.name), zap.Int("records", len(fc.records)))
	return nil
}

// upsertInRun 同名但字段不同的后续记录跳过，避免互相覆盖
func (s *ImportService) upsertInRun(ctx context.Context, raw openfoodfacts.RawProduct, run *runState) (UpsertOutcome, error) {
	if err := validateRecord(raw); err != nil {
		return OutcomeSkipped, err
	}
	if !run.claim(toProduct(raw)) {
		s.logger.Debug("[Import] 同名商品已由前一条记录写入，跳过", zap.String("name", strings.TrimSpace(raw.ProductName)))
		return OutcomeSkipped, nil
	}
	return s.UpsertProduct(ctx, raw)
}

func (s *ImportService) writeProgress(text string) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	_, _ = io.WriteString(s.progress, text)
}

// ResetCatalog 清空目录 (关联、收藏、商品、分类)
func (s *ImportService) ResetCatalog(ctx context.Context) error {
	if err := s.uow.ResetCatalog(ctx); err != nil {
		return fmt.Errorf("清空目录失败: %w", err)
	}
	s.logger.Info("[Import] 目录已清空")
	return nil
}
