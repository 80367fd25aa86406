package controller

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	RAG         *RAGController
	Quiz        *QuizController
	CORSOrigins []string
	ServiceName string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	// credentials cannot be combined with a wildcard origin
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// SetupRouter registers every endpoint on a new engine.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(RequestLogger())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": cfg.ServiceName,
		})
	})
	router.GET("/status", cfg.RAG.Status)

	router.POST("/upload", cfg.RAG.Upload)
	router.POST("/ask", cfg.RAG.Ask)

	router.GET("/metrics", cfg.RAG.Metrics())
	router.GET("/timeseries", cfg.RAG.TimeSeries())
	router.GET("/segments", cfg.RAG.Segments())
	router.GET("/key-metrics", cfg.RAG.KeyMetrics())
	router.GET("/financial-metrics", cfg.RAG.FinancialMetrics())
	router.GET("/revenue-breakdown", cfg.RAG.RevenueBreakdown())
	router.GET("/quarterly-data", cfg.RAG.QuarterlyData())
	router.GET("/recommendations", cfg.RAG.Recommendations())
	router.GET("/insights", cfg.RAG.Insights())
	router.GET("/insights/export", cfg.RAG.ExportInsights)

	router.POST("/generate-quiz", cfg.Quiz.GenerateQuiz)
	router.POST("/check-answer", cfg.Quiz.CheckAnswer)

	return router
}
