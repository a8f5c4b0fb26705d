package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purbeurre_v2_202610/internal/model"
	"purbeurre_v2_202610/internal/repository"
)

func TestCatalogService_Search(t *testing.T) {
	uow := newTestUoW(t)
	svc := NewCatalogService(uow.Products)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		require.NoError(t, uow.Products.Create(ctx, &model.Product{
			Name:           fmt.Sprintf("Biscuit %02d", i),
			NutritionGrade: model.NutritionGradeD,
		}))
	}
	require.NoError(t, uow.Products.Create(ctx, &model.Product{Name: "Jus d'orange", NutritionGrade: "b"}))

	res, err := svc.Search(ctx, "biscuit", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, DefaultSearchPageSize, res.PageSize)
	require.Len(t, res.Products, 6)
	assert.Equal(t, "Biscuit 01", res.Products[0].Name)

	res, err = svc.Search(ctx, "BISCUIT", 2, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Biscuit 07", "Biscuit 08"}, names(res.Products))

	res, err = svc.Search(ctx, "", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxSearchPageSize, res.PageSize)
	assert.Len(t, res.Products, 9)
}

func TestCatalogService_Details(t *testing.T) {
	uow := newTestUoW(t)
	svc := NewCatalogService(uow.Products)
	ctx := context.Background()

	p := seedCatalogProduct(t, uow, "Nutella", model.NutritionGradeE, 2252, "Pâtes à tartiner")

	got, err := svc.Details(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pâtes à tartiner"}, got.CategoryNames())

	_, err = svc.Details(ctx, p.ID+100)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}
