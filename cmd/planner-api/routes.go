package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/handler"
	"github.com/noah-isme/curriculum-planner-api/internal/middleware"
	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/service"
	"github.com/noah-isme/curriculum-planner-api/pkg/config"
	"github.com/noah-isme/curriculum-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/curriculum-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/curriculum-planner-api/pkg/middleware/requestid"
)

type routeDeps struct {
	metrics     *service.MetricsService
	tokens      middleware.TokenValidator
	auth        *handler.AuthHandler
	catalog     *handler.CatalogHandler
	history     *handler.HistoryHandler
	curriculum  *handler.CurriculumHandler
	projections *handler.ProjectionHandler
	assignments *handler.AssignmentHandler
	probes      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.probes.Health)
	r.GET("/ready", deps.probes.Ready)
	r.GET("/metrics", deps.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", deps.auth.Login)

	api.GET("/catalog/:program/:catalog", deps.catalog.Sync)
	api.POST("/catalog/:program/:catalog/sync", deps.catalog.EnqueueSync)
	api.GET("/courses", deps.catalog.Courses)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))

	self := middleware.RBAC("SELF", string(models.RoleAdmin))
	secured.GET("/history/:studentId/:program", self, deps.history.History)

	students := secured.Group("/students/:studentId", self)
	students.GET("/curriculum", deps.curriculum.View)
	students.POST("/curriculum", deps.curriculum.ViewWithApproved)
	students.GET("/projections", deps.projections.List)
	students.POST("/projections", middleware.Audit(logr, "projection.create"), deps.projections.Create)
	students.GET("/projections/compare", deps.projections.Compare)

	projections := secured.Group("/projections/:id")
	projections.GET("", deps.projections.Get)
	projections.PATCH("", middleware.Audit(logr, "projection.update"), deps.projections.Update)
	projections.DELETE("", middleware.Audit(logr, "projection.delete"), deps.projections.Delete)
	projections.POST("/clone", middleware.Audit(logr, "projection.clone"), deps.projections.Clone)
	projections.GET("/export", deps.projections.Export)
	projections.POST("/courses", middleware.Audit(logr, "course.add"), deps.assignments.Add)
	projections.PATCH("/courses/:code", middleware.Audit(logr, "course.move"), deps.assignments.Move)
	projections.DELETE("/courses/:code", middleware.Audit(logr, "course.remove"), deps.assignments.Remove)
	projections.POST("/auto", middleware.Audit(logr, "projection.auto_schedule"), deps.assignments.AutoSchedule)

	return r
}
