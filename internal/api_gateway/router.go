package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/edocument-exchange/internal/api_gateway/handler"
	"github.com/edocument-exchange/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers served by the gateway
type Handlers struct {
	Records     *handler.RecordHandler
	Submissions *handler.SubmissionHandler
	Documents   *handler.DocumentHandler
	Flows       *handler.FlowHandler
	Companies   *handler.CompanyHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h Handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		records := v1.Group("/records")
		{
			records.PUT("/:id", h.Records.Save)
			records.GET("/:id", h.Records.GetByID)
			records.PUT("/:id/correction", h.Records.Correct)
			records.GET("/:id/notes", h.Records.Notes)
			records.GET("/:id/qr", h.Records.QRCodes)
			records.GET("/:id/documents", h.Documents.GetByRecordID)
			records.POST("/:id/submissions", h.Submissions.SubmitRecord)
		}

		flows := v1.Group("/flows")
		{
			flows.GET("", h.Flows.List)
			flows.GET("/:id", h.Flows.GetByID)
			flows.GET("/:id/documents", h.Documents.GetByFlowID)
			flows.POST("/:id/submissions", h.Submissions.SubmitFlow)
		}

		documents := v1.Group("/documents")
		{
			documents.GET("/:id", h.Documents.GetByID)
			documents.GET("/:id/attachments", h.Documents.Attachments)
		}

		v1.GET("/attachments/:id", h.Documents.Download)

		companies := v1.Group("/companies")
		{
			companies.GET("/:id/settings", h.Companies.GetSettings)
			companies.PUT("/:id/settings", h.Companies.SaveSettings)
			companies.POST("/:id/flows/sync", h.Flows.Synchronize)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
