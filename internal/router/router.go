// Package router assembles the gin engine: middleware chain, route table
// and the services behind each handler.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"treasury/internal/handlers"
	"treasury/internal/middleware"
	"treasury/internal/services"
)

// Services are the dependencies of the HTTP handlers.
type Services struct {
	Ledger       services.LedgerServicer
	CashFlows    services.CashFlowServicer
	Templates    services.RecurringTemplateServicer
	Forecast     services.ForecastServicer
	RecurringJob services.RecurringJobServicer
}

// NewServices wires the service layer over db.
func NewServices(db *gorm.DB, forecastMaxDays int) Services {
	ledger := services.NewLedgerService(db)
	categories := services.NewCategoryService(db)
	budgets := services.NewBudgetTracker()

	return Services{
		Ledger:       ledger,
		CashFlows:    services.NewCashFlowService(db, ledger, categories, budgets),
		Templates:    services.NewRecurringTemplateService(db, ledger, categories),
		Forecast:     services.NewForecastService(db, ledger, forecastMaxDays),
		RecurringJob: services.NewRecurringJobService(db, ledger, budgets),
	}
}

// New builds the engine. jobKeyHash is the bcrypt hash guarding the job
// trigger; empty disables it.
func New(svc Services, jobKeyHash string) *gin.Engine {
	accountHandler := handlers.NewAccountHandler(svc.Ledger)
	cashFlowHandler := handlers.NewCashFlowHandler(svc.CashFlows)
	templateHandler := handlers.NewRecurringTemplateHandler(svc.Templates)
	forecastHandler := handlers.NewForecastHandler(svc.Forecast)
	jobHandler := handlers.NewJobHandler(svc.RecurringJob)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Job trigger, authenticated by API key rather than JWT
	jobs := v1.Group("/jobs")
	jobs.Use(middleware.JobAuthMiddleware(jobKeyHash))
	jobs.POST("/recurring-generation", jobHandler.RunRecurringGeneration)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	accounts := protected.Group("/accounts")
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)

	cashFlows := protected.Group("/cash-flows")
	cashFlows.POST("", cashFlowHandler.CreateCashFlow)
	cashFlows.GET("", cashFlowHandler.GetCashFlows)
	cashFlows.GET("/pending", cashFlowHandler.GetPendingCashFlows)
	cashFlows.GET("/unreconciled", cashFlowHandler.GetUnreconciledCashFlows)
	cashFlows.GET("/export", cashFlowHandler.ExportCashFlows)
	cashFlows.POST("/transfer", cashFlowHandler.CreateTransfer)
	cashFlows.POST("/reconcile-batch", cashFlowHandler.ReconcileCashFlowsBatch)
	cashFlows.GET("/:id", cashFlowHandler.GetCashFlow)
	cashFlows.PUT("/:id", cashFlowHandler.UpdateCashFlow)
	cashFlows.DELETE("/:id", cashFlowHandler.DeleteCashFlow)
	cashFlows.POST("/:id/submit", cashFlowHandler.SubmitCashFlow)
	cashFlows.POST("/:id/approve", cashFlowHandler.ApproveCashFlow)
	cashFlows.POST("/:id/reject", cashFlowHandler.RejectCashFlow)
	cashFlows.POST("/:id/reconcile", cashFlowHandler.ReconcileCashFlow)
	cashFlows.POST("/:id/reverse", cashFlowHandler.ReverseCashFlow)

	templates := protected.Group("/recurring-templates")
	templates.POST("", templateHandler.CreateRecurringTemplate)
	templates.GET("", templateHandler.GetRecurringTemplates)
	templates.GET("/:id", templateHandler.GetRecurringTemplate)
	templates.PUT("/:id", templateHandler.UpdateRecurringTemplate)
	templates.POST("/:id/toggle", templateHandler.ToggleRecurringTemplate)

	protected.GET("/forecast", forecastHandler.GetCashFlowForecast)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.JobKeyHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
