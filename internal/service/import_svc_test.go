package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
	"purbeurre_v2_202610/pkg/openfoodfacts"
)

// ==================== 测试数据源 ====================

type fakeSource struct {
	mu            sync.Mutex
	tags          []openfoodfacts.CategoryTag
	tagsErr       error
	products      map[string][]openfoodfacts.RawProduct
	failing       map[string]bool
	fetchedByName []string
}

func (f *fakeSource) FetchCategories(ctx context.Context) ([]openfoodfacts.CategoryTag, error) {
	return f.tags, f.tagsErr
}

func (f *fakeSource) FetchProductsForCategory(ctx context.Context, name string) ([]openfoodfacts.RawProduct, error) {
	f.mu.Lock()
	f.fetchedByName = append(f.fetchedByName, name)
	f.mu.Unlock()
	if f.failing[name] {
		return nil, fmt.Errorf("%w: 503", openfoodfacts.ErrUpstreamUnavailable)
	}
	return f.products[name], nil
}

func raw(name, grade string, fiber float64, categories string) openfoodfacts.RawProduct {
	return openfoodfacts.RawProduct{
		ProductName:      name,
		NutritionGradeFr: grade,
		URL:              "https://fr.openfoodfacts.org/produit/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Categories:       categories,
		Nutriments: openfoodfacts.Nutriments{
			EnergyValue: openfoodfacts.Float(1000),
			EnergyUnit:  "kJ",
			Fiber100g:   openfoodfacts.Float(fiber),
			Sugars100g:  openfoodfacts.Float(12.5),
		},
	}
}

func newTestImportService(t *testing.T, source ProductSource, opts ImportOptions) (*ImportService, *repository.CatalogUnitOfWork) {
	uow := newTestUoW(t)
	return NewImportService(uow, source, opts, nil), uow
}

// ==================== 校验 ====================

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  openfoodfacts.RawProduct
		want bool
	}{
		{"合法记录", raw("Nutella", "e", 3.4, "a"), true},
		{"等级大写也合法", raw("Nutella", " E ", 3.4, "a"), true},
		{"缺少等级", raw("Nutella", "", 3.4, "a"), false},
		{"等级只有空白", raw("Nutella", "   ", 3.4, "a"), false},
		{"等级无效", raw("Nutella", "z", 3.4, "a"), false},
		{"纤维为 0", raw("Nutella", "e", 0, "a"), false},
		{"缺少名称", raw("  ", "e", 3.4, "a"), false},
		{"无法解析的记录", openfoodfacts.RawProduct{Malformed: true, DecodeErr: "cannot unmarshal array"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateRecord(tt.rec))
		})
	}

	t.Run("能量超出范围", func(t *testing.T) {
		rec := raw("Nutella", "e", 3.4, "a")
		rec.Nutriments.EnergyValue = openfoodfacts.Float(1e30)
		assert.ErrorIs(t, validateRecord(rec), ErrValidationFailed)

		rec.Nutriments.EnergyValue = openfoodfacts.Float(-1)
		assert.False(t, ValidateRecord(rec))
	})

	t.Run("纤维缺失", func(t *testing.T) {
		rec := raw("Nutella", "e", 1, "a")
		rec.Nutriments.Fiber100g = openfoodfacts.FlexFloat{}
		assert.False(t, ValidateRecord(rec))
		assert.ErrorIs(t, validateRecord(rec), ErrValidationFailed)
	})
}

// ==================== 单条写入 ====================

func TestImportService_UpsertProduct_Create(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	rec := raw("Nutella", "E", 3.4, "Petit-déjeuners, Pâtes à tartiner,,")
	outcome, err := svc.UpsertProduct(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	p, err := uow.Products.GetByName(ctx, "Nutella")
	require.NoError(t, err)
	assert.Equal(t, model.NutritionGradeE, p.NutritionGrade)
	assert.Equal(t, 1000, p.Energy100g)
	assert.Equal(t, "kJ", p.EnergyUnit)
	assert.Equal(t, 3.4, p.Fiber100g)
	assert.Equal(t, 12.5, p.Sugars100g)
	require.NotNil(t, p.URL)
	assert.Equal(t, "https://fr.openfoodfacts.org/produit/nutella", *p.URL)
	assert.Equal(t, []string{"Petit-déjeuners", "Pâtes à tartiner"}, p.CategoryNames())
}

func TestImportService_UpsertProduct_Skipped(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	outcome, err := svc.UpsertProduct(ctx, raw("Nutella", "", 3.4, "x"))
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.ErrorIs(t, err, ErrValidationFailed)

	count, err := uow.Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportService_UpsertProduct_UpdateInPlace(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, raw("Nutella", "a", 3.4, "X"))
	require.NoError(t, err)
	before, err := uow.Products.GetByName(ctx, "Nutella")
	require.NoError(t, err)

	outcome, err := svc.UpsertProduct(ctx, raw("Nutella", "b", 3.4, "Y"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	after, err := uow.Products.GetByName(ctx, "Nutella")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, model.NutritionGradeB, after.NutritionGrade)
	// 分类只增不减
	assert.Equal(t, []string{"X", "Y"}, after.CategoryNames())

	count, err := uow.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestImportService_UpsertProduct_Unchanged(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	rec := raw("Nutella", "e", 3.4, "X, Y")
	_, err := svc.UpsertProduct(ctx, rec)
	require.NoError(t, err)
	before, err := uow.Products.GetByName(ctx, "Nutella")
	require.NoError(t, err)

	outcome, err := svc.UpsertProduct(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	after, err := uow.Products.GetByName(ctx, "Nutella")
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	// 只新增分类也算更新
	outcome, err = svc.UpsertProduct(ctx, raw("Nutella", "e", 3.4, "X, Y, Z"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
}

func TestImportService_UpsertProduct_NonFiniteNutrientsIdempotent(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	var rec openfoodfacts.RawProduct
	require.NoError(t, json.Unmarshal([]byte(`{
		"product_name": "Compote",
		"nutrition_grade_fr": "a",
		"categories": "Desserts",
		"nutriments": {"fiber_100g": "1.1", "sugars_100g": "NaN", "fat_100g": "Inf", "energy_value": "280"}
	}`), &rec))

	outcome, err := svc.UpsertProduct(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	outcome, err = svc.UpsertProduct(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	p, err := uow.Products.GetByName(ctx, "Compote")
	require.NoError(t, err)
	assert.Zero(t, p.Sugars100g)
	assert.Zero(t, p.Fat100g)
	assert.Equal(t, 280, p.Energy100g)
}

func TestImportService_UpsertProduct_CategoriesCreatedInNameOrder(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, raw("Muesli", "a", 7, "Petit-déjeuners, Céréales, Aliments"))
	require.NoError(t, err)

	categories, err := uow.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	// List 按名称排序，id 也应递增
	for i := 1; i < len(categories); i++ {
		assert.Less(t, categories[i-1].ID, categories[i].ID, categories[i].Name)
	}
}

func TestImportService_UpsertProduct_CreateConflictFails(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	first := raw("Nutella", "e", 3.4, "X")
	_, err := svc.UpsertProduct(ctx, first)
	require.NoError(t, err)

	dup := raw("Nutella 2", "e", 3.4, "X")
	dup.URL = first.URL
	outcome, err := svc.UpsertProduct(ctx, dup)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, repository.ErrIntegrityViolation)

	_, err = uow.Products.GetByName(ctx, "Nutella 2")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestImportService_UpsertProduct_UpdateConflict(t *testing.T) {
	seed := func(t *testing.T, svc *ImportService) openfoodfacts.RawProduct {
		ctx := context.Background()
		a := raw("A", "c", 2, "X")
		b := raw("B", "c", 2, "X")
		_, err := svc.UpsertProduct(ctx, a)
		require.NoError(t, err)
		_, err = svc.UpsertProduct(ctx, b)
		require.NoError(t, err)

		// A 的新 url 与 B 冲突
		conflicting := raw("A", "b", 2, "X")
		conflicting.URL = b.URL
		return conflicting
	}

	t.Run("默认回滚并报告失败", func(t *testing.T) {
		svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
		ctx := context.Background()
		rec := seed(t, svc)

		outcome, err := svc.UpsertProduct(ctx, rec)
		assert.Equal(t, OutcomeFailed, outcome)
		assert.ErrorIs(t, err, repository.ErrIntegrityViolation)

		a, err := uow.Products.GetByName(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, model.NutritionGradeC, a.NutritionGrade)
	})

	t.Run("开启后删除冲突商品", func(t *testing.T) {
		svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{DeleteOnConflict: true})
		ctx := context.Background()
		rec := seed(t, svc)

		a, err := uow.Products.GetByName(ctx, "A")
		require.NoError(t, err)
		b, err := uow.Products.GetByName(ctx, "B")
		require.NoError(t, err)
		_, err = uow.Favorites.GetOrCreate(ctx, &model.SavedSubstitution{CustomerID: 1, ProductID: a.ID, SubstituteID: b.ID})
		require.NoError(t, err)

		outcome, err := svc.UpsertProduct(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeleted, outcome)

		_, err = uow.Products.GetByName(ctx, "A")
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		_, err = uow.Products.GetByName(ctx, "B")
		assert.NoError(t, err)

		favs, err := uow.Favorites.ListByCustomer(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, favs)
	})
}

// ==================== 全量导入 ====================

func TestImportService_RunImport(t *testing.T) {
	source := &fakeSource{
		tags: []openfoodfacts.CategoryTag{
			{Name: "pate-a-tartiner", Products: 5002},
			{Name: "Fruits", Products: 4999},
		},
		products: map[string][]openfoodfacts.RawProduct{
			"pate-a-tartiner": {
				raw("Nutella", "e", 3.4, "pate-a-tartiner, Petit-déjeuners"),
				raw("Sans fibre", "d", 0, "pate-a-tartiner"),
				raw("Pâte bio", "c", 6, "pate-a-tartiner"),
			},
			"Fruits": {raw("Pomme", "a", 2, "Fruits")},
		},
	}
	svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 5000})
	var progress bytes.Buffer
	svc.SetProgress(&progress)
	ctx := context.Background()

	report, err := svc.RunImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CategoriesSelected)
	assert.Equal(t, 0, report.CategoriesFailed)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"pate-a-tartiner"}, source.fetchedByName)
	assert.Equal(t, "pate-a-tartiner: .S.\n", progress.String())

	_, err = uow.Categories.GetByName(ctx, "Fruits")
	assert.ErrorIs(t, err, repository.ErrCategoryNotFound)
	_, err = uow.Products.GetByName(ctx, "Pomme")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	t.Run("重复导入结果不变", func(t *testing.T) {
		before := snapshotCatalog(t, uow)

		again, err := svc.RunImport(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Created)
		assert.Equal(t, 0, again.Updated)
		assert.Equal(t, 2, again.Unchanged)

		assert.Equal(t, before, snapshotCatalog(t, uow))
	})
}

func TestImportService_RunImport_DuplicateNamesIdempotent(t *testing.T) {
	first := raw("Compote", "a", 1.5, "Desserts")
	second := raw("Compote", "b", 2, "Desserts, Fruits")
	second.URL = "https://fr.openfoodfacts.org/produit/compote-2"
	// 与首条字段相同，只多一个分类
	same := raw("Compote", "a", 1.5, "Desserts, Purées")

	source := &fakeSource{
		tags: []openfoodfacts.CategoryTag{
			{Name: "Desserts", Products: 8000},
			{Name: "Fruits", Products: 7000},
		},
		products: map[string][]openfoodfacts.RawProduct{
			"Desserts": {first, second},
			"Fruits":   {second, same},
		},
	}

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 5000, Concurrency: concurrency})
			var progress bytes.Buffer
			svc.SetProgress(&progress)
			ctx := context.Background()

			report, err := svc.RunImport(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Created)
			assert.Equal(t, 1, report.Updated)
			assert.Equal(t, 2, report.Skipped)
			assert.Equal(t, "Desserts: .S\nFruits: Su\n", progress.String())

			p, err := uow.Products.GetByName(ctx, "Compote")
			require.NoError(t, err)
			assert.Equal(t, model.NutritionGradeA, p.NutritionGrade)
			assert.Equal(t, []string{"Desserts", "Purées"}, p.CategoryNames())

			before := snapshotCatalog(t, uow)
			again, err := svc.RunImport(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, again.Created)
			assert.Equal(t, 0, again.Updated)
			assert.Equal(t, 2, again.Unchanged)
			assert.Equal(t, 2, again.Skipped)
			assert.Equal(t, before, snapshotCatalog(t, uow))
		})
	}
}

func TestImportService_RunImport_MalformedRecordSkipped(t *testing.T) {
	source := &fakeSource{
		tags: []openfoodfacts.CategoryTag{{Name: "Desserts", Products: 8000}},
		products: map[string][]openfoodfacts.RawProduct{
			"Desserts": {
				raw("Compote", "a", 1.5, "Desserts"),
				{Malformed: true, DecodeErr: "cannot unmarshal array into Go struct field"},
				raw("Yaourt", "b", 1, "Desserts"),
			},
		},
	}
	svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 5000})
	var progress bytes.Buffer
	svc.SetProgress(&progress)
	ctx := context.Background()

	report, err := svc.RunImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.CategoriesFailed)
	assert.Equal(t, "Desserts: .S.\n", progress.String())

	count, err := uow.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImportService_RunImport_CategorySaveFailureIsSkipped(t *testing.T) {
	db := setupServiceTestDB(t)
	require.NoError(t, db.Exec(`CREATE TRIGGER reject_category BEFORE INSERT ON categories
		WHEN NEW.name = 'broken'
		BEGIN SELECT RAISE(ABORT, 'category rejected'); END`).Error)
	uow := repository.NewCatalogUnitOfWork(db)

	source := &fakeSource{
		tags: []openfoodfacts.CategoryTag{
			{Name: "broken", Products: 6000},
			{Name: "ok", Products: 6000},
		},
		products: map[string][]openfoodfacts.RawProduct{
			"broken": {raw("Jamais", "a", 1, "broken")},
			"ok":     {raw("Yaourt", "a", 1, "ok")},
		},
	}
	svc := NewImportService(uow, source, ImportOptions{PopularityThreshold: 5000}, nil)
	var progress bytes.Buffer
	svc.SetProgress(&progress)
	ctx := context.Background()

	report, err := svc.RunImport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CategoriesSelected)
	assert.Equal(t, 1, report.CategoriesFailed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"ok"}, source.fetchedByName)
	assert.Equal(t, "broken: F (save failed)\nok: .\n", progress.String())

	_, err = uow.Products.GetByName(ctx, "Yaourt")
	assert.NoError(t, err)
}

func TestImportService_RunImport_SelectedCategoryPersisted(t *testing.T) {
	source := &fakeSource{
		tags:     []openfoodfacts.CategoryTag{{Name: "Boissons", Products: 9000}},
		products: map[string][]openfoodfacts.RawProduct{},
	}
	svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 5000})
	ctx := context.Background()

	_, err := svc.RunImport(ctx)
	require.NoError(t, err)

	c, err := uow.Categories.GetByName(ctx, "Boissons")
	require.NoError(t, err)
	assert.Equal(t, "Boissons", c.Name)
}

func TestImportService_RunImport_FailingCategoryIsSkipped(t *testing.T) {
	source := &fakeSource{
		tags: []openfoodfacts.CategoryTag{
			{Name: "broken", Products: 6000},
			{Name: "ok", Products: 6000},
		},
		products: map[string][]openfoodfacts.RawProduct{
			"ok": {raw("Yaourt", "a", 1, "ok")},
		},
		failing: map[string]bool{"broken": true},
	}

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 5000, Concurrency: concurrency})
			ctx := context.Background()

			report, err := svc.RunImport(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, report.CategoriesSelected)
			assert.Equal(t, 1, report.CategoriesFailed)
			assert.Equal(t, 1, report.Created)

			_, err = uow.Products.GetByName(ctx, "Yaourt")
			assert.NoError(t, err)
		})
	}
}

func TestImportService_RunImport_CategoriesUnavailable(t *testing.T) {
	source := &fakeSource{tagsErr: fmt.Errorf("%w: 502", openfoodfacts.ErrUpstreamUnavailable)}
	svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 1})
	ctx := context.Background()

	report, err := svc.RunImport(ctx)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, openfoodfacts.ErrUpstreamUnavailable))

	count, err := uow.Categories.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportService_RunImport_Canceled(t *testing.T) {
	source := &fakeSource{
		tags:     []openfoodfacts.CategoryTag{{Name: "x", Products: 10}},
		products: map[string][]openfoodfacts.RawProduct{"x": {raw("p", "a", 1, "x")}},
	}
	svc, uow := newTestImportService(t, source, ImportOptions{PopularityThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunImport(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	count, err := uow.Products.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportService_ResetCatalog(t *testing.T) {
	svc, uow := newTestImportService(t, &fakeSource{}, ImportOptions{})
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, raw("A", "a", 1, "X, Y"))
	require.NoError(t, err)
	require.NoError(t, svc.ResetCatalog(ctx))

	assert.Equal(t, catalogSnapshot{}, snapshotCatalog(t, uow))
}

func TestImportReport_String(t *testing.T) {
	r := &ImportReport{CategoriesSelected: 3, CategoriesFailed: 1, Created: 10, Skipped: 2}
	s := r.String()
	assert.Contains(t, s, "3 selected, 1 failed")
	assert.Contains(t, s, "10 created")
	assert.Contains(t, s, "2 skipped")
}

// ==================== 辅助 ====================

type catalogSnapshot struct {
	Products   []string
	Categories []string
	Links      int64
}

// snapshotCatalog 商品 (含 updated_at)、分类与关联行数
func snapshotCatalog(t *testing.T, uow *repository.CatalogUnitOfWork) catalogSnapshot {
	t.Helper()
	ctx := context.Background()
	snap := catalogSnapshot{}

	products, _, err := uow.Products.Search(ctx, repository.ProductFilter{Page: 1, PageSize: 1000})
	require.NoError(t, err)
	for _, p := range products {
		full, err := uow.Products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		snap.Products = append(snap.Products, fmt.Sprintf("%d|%s|%s|%d|%s|%v",
			full.ID, full.Name, full.NutritionGrade, full.Energy100g, full.UpdatedAt.UTC(), full.CategoryNames()))
	}

	categories, err := uow.Categories.List(ctx)
	require.NoError(t, err)
	for _, c := range categories {
		snap.Categories = append(snap.Categories, fmt.Sprintf("%d|%s", c.ID, c.Name))
	}

	snap.Links, err = uow.Products.CountLinks(ctx)
	require.NoError(t, err)
	return snap
}
