package routes

import (
	"example.com/rfidscan/api/handlers"
	"example.com/rfidscan/api/middleware"
	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, keys middleware.KeyStore, log *logrus.Logger) {
	scannerHandler := handlers.NewScannerHandler(svc, log)

	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/api/v1")
	api.GET("/version", scannerHandler.Version)

	viewer := middleware.APIKeyAuth(keys, log, models.ViewerAuthLevel)
	writer := middleware.APIKeyAuth(keys, log, models.WriterAuthLevel)
	sudo := middleware.APIKeyAuth(keys, log, models.SudoAuthLevel)

	scanners := api.Group("/scanners")
	{
		scanners.POST("", sudo, scannerHandler.CreateScanner)
		scanners.GET("", viewer, scannerHandler.ListScanners)
		scanners.GET("/:account", viewer, scannerHandler.GetScanner)
		scanners.POST("/:account/scans", writer, scannerHandler.SubmitScan)
		scanners.POST("/:account/reset", writer, scannerHandler.ResetScanner)
		scanners.GET("/:account/scans/search", viewer, scannerHandler.SearchScans)
	}
}
