package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/finrag/models"
	"github/itish2003/finrag/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RAGController handles the HTTP requests for the report endpoints. It depends
// on the RAGService to perform the actual business logic.
type RAGController struct {
	ragService     services.RAGService
	maxUploadBytes int64
}

// NewRAGController is called from main.go to inject the service dependency.
func NewRAGController(service services.RAGService, maxUploadBytes int64) *RAGController {
	return &RAGController{
		ragService:     service,
		maxUploadBytes: maxUploadBytes,
	}
}

func (c *RAGController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.ragService.Status(ctx.Request.Context()))
}

// Upload is the handler for POST /upload. The report arrives as the multipart
// field "file".
func (c *RAGController) Upload(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		if ctx.Request.ContentLength > c.maxUploadBytes {
			badRequest(ctx, fmt.Sprintf("file too large, limit is %d bytes", c.maxUploadBytes))
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(ctx, fmt.Sprintf("file too large, limit is %d bytes", c.maxUploadBytes))
			return
		}
		badRequest(ctx, "a PDF must be sent in the 'file' form field")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(ctx, "could not read uploaded file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(ctx, "could not read uploaded file")
		return
	}

	chunks, err := c.ragService.Ingest(ctx.Request.Context(), services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(ctx, err, "Failed to index report")
		return
	}
	ctx.JSON(http.StatusOK, models.UploadResponse{Detail: "Report indexed successfully", Chunks: chunks})
}

// Ask is the handler for POST /ask.
func (c *RAGController) Ask(ctx *gin.Context) {
	var req models.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid request body: "+err.Error())
		return
	}
	response, err := c.ragService.Ask(ctx.Request.Context(), req.Question)
	if err != nil {
		respondError(ctx, err, "Failed to generate answer")
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// serve adapts a service call without input to a handler.
func serve[T any](call func(*gin.Context) (T, error), generic string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		v, err := call(ctx)
		if err != nil {
			respondError(ctx, err, generic)
			return
		}
		ctx.JSON(http.StatusOK, v)
	}
}

func (c *RAGController) Metrics() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) ([]models.Metric, error) {
		return c.ragService.Metrics(ctx.Request.Context())
	}, "Failed to extract metrics")
}

func (c *RAGController) TimeSeries() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) (models.TimeSeries, error) {
		return c.ragService.TimeSeries(ctx.Request.Context())
	}, "Failed to extract time series")
}

func (c *RAGController) Segments() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) ([]models.Segment, error) {
		return c.ragService.Segments(ctx.Request.Context())
	}, "Failed to extract segments")
}

func (c *RAGController) KeyMetrics() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) (models.KeyMetrics, error) {
		return c.ragService.KeyMetrics(ctx.Request.Context())
	}, "Failed to extract key metrics")
}

func (c *RAGController) FinancialMetrics() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) (models.FinancialMetrics, error) {
		return c.ragService.FinancialMetrics(ctx.Request.Context())
	}, "Failed to extract financial metrics")
}

func (c *RAGController) RevenueBreakdown() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) ([]models.RevenueSegment, error) {
		return c.ragService.RevenueBreakdown(ctx.Request.Context())
	}, "Failed to extract revenue breakdown")
}

func (c *RAGController) QuarterlyData() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) ([]models.QuarterlyPoint, error) {
		return c.ragService.QuarterlyData(ctx.Request.Context())
	}, "Failed to extract quarterly data")
}

func (c *RAGController) Recommendations() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) ([]models.Recommendation, error) {
		return c.ragService.Recommendations(ctx.Request.Context())
	}, "Failed to generate recommendations")
}

func (c *RAGController) Insights() gin.HandlerFunc {
	return serve(func(ctx *gin.Context) (*models.InsightsResponse, error) {
		return c.ragService.Insights(ctx.Request.Context())
	}, "Failed to generate insights")
}

// ExportInsights is the handler for GET /insights/export.
func (c *RAGController) ExportInsights(ctx *gin.Context) {
	data, err := c.ragService.ExportInsights(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to export insights")
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="insights.xlsx"`)
	ctx.Data(http.StatusOK, xlsxContentType, data)
}
