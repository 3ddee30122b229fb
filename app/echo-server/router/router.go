package router

import (
	"marketReco/internal/middleware"
	"marketReco/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler) {
	reco := api.Group("/recommendations", middleware.AuthMiddleware())
	reco.GET("", handler.GetMyRecommendations)
}

func SetRecommendationAdminRoutes(api *echo.Group, handler *rest.RecommendationHandler) {
	admin := api.Group("/admin/recommendations", middleware.AuthMiddleware(), middleware.AdminOnly())

	admin.POST("/run", handler.TriggerRun)
	admin.GET("/status", handler.GetStatus)
}
