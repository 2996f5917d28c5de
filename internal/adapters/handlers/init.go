package handlers

import (
	"net/http"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	bus     interfaces.EventBus
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, eventBus interfaces.EventBus, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		bus:     eventBus,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.Default()

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		connection := v1.Group("/connection")
		{
			connection.POST("", h.Connect)
			connection.DELETE("", h.Disconnect)
			connection.GET("", h.CheckConnection)
		}

		parameters := v1.Group("/parameters")
		{
			parameters.GET("", h.ListParameters)
			parameters.GET("/:name", h.GetParameter)
			parameters.PUT("/:name", h.SetParameter)
			parameters.POST("/:name", h.DoAction)
		}

		scan := v1.Group("/scan")
		{
			scan.POST("/start", h.StartScan)
			scan.POST("/pause", h.PauseScan)
			scan.POST("/resume", h.ResumeScan)
			scan.POST("/stop", h.StopScan)
			scan.GET("/status", h.ScanStatus)
			scan.GET("/runs", h.ListRuns)
		}

		v1.POST("/intermod", h.CalculateIntermod)
	}

	// Поток событий шины для дисплея
	router.GET("/ws", h.StreamEvents)

	return router
}
