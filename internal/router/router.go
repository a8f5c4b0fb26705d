package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"purbeurre_v2_202610/internal/controller"
	"purbeurre_v2_202610/internal/middleware"
)

// TaskStatus 后台任务状态，由 task.TaskManager 实现
type TaskStatus interface {
	Status() map[string]bool
}

// InitRoutes 注册所有路由，tasks 可为 nil
func InitRoutes(r *gin.Engine,
	productCtl *controller.ProductController,
	favoriteCtl *controller.FavoriteController,
	tasks TaskStatus) {
	// 1. 运维
	r.GET("/healthz", func(c *gin.Context) {
		resp := gin.H{"code": 0, "message": "ok"}
		if tasks != nil {
			resp["data"] = gin.H{"tasks": tasks.Status()}
		}
		c.JSON(http.StatusOK, resp)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 2. 公开查询
	public := r.Group("/", middleware.OptionalAuth())
	{
		// GET /search?q=nutella&page=1
		public.GET("/search", productCtl.Search)
		public.GET("/substitute/:id", productCtl.Substitute)
		public.GET("/details/:id", productCtl.Details)
	}

	// 3. 收藏，需要登录
	account := r.Group("/", middleware.LoginRequired())
	{
		account.GET("/favorites", favoriteCtl.List)
		account.POST("/save", favoriteCtl.Save)
		account.POST("/delete/:id", favoriteCtl.Delete)
	}
}
