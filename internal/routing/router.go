package routing

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/credentials"
	"github.com/torao/kazzla/internal/handlers"
	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/metrics"
	"github.com/torao/kazzla/internal/middleware"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/services"
	"github.com/torao/kazzla/internal/utils"
)

const apiName = "Kazzla"

// Options tune the router. Zero values select the defaults.
type Options struct {
	Metrics       *metrics.Metrics
	TokenMgr      managers.TokenMgr
	Credentials   *credentials.Store
	TokenTTL      time.Duration
	PublicBaseURL string
	AllowOrigins  []string
	CookieSecure  bool
	ApiVersion    string
}

func (o *Options) applyDefaults() {
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.TokenMgr == nil {
		o.TokenMgr = managers.NewTokenManager(o.Metrics)
	}
	if o.Credentials == nil {
		o.Credentials = credentials.NewStore(string(credentials.SchemeSHA256))
	}
	if len(o.AllowOrigins) == 0 {
		o.AllowOrigins = []string{"http://localhost:5173"}
	}
	if o.ApiVersion == "" {
		o.ApiVersion = "main:latest"
	}
}

func InitRouter(databaseMgr managers.DatabaseMgr, mailMgr managers.MailMgr, jwtMgr managers.JWTMgr, catalog *refdata.Catalog, opts Options) *gin.Engine {
	opts.applyDefaults()

	// Initialize router with logging and recovery middleware
	router := gin.New()
	// Initialize middleware
	setupCommonMiddleware(router, jwtMgr, opts)
	// Setup routes
	deps := services.Dependencies{
		DatabaseMgr: databaseMgr,
		TokenMgr:    opts.TokenMgr,
		MailMgr:     mailMgr,
		Credentials: opts.Credentials,
		Catalog:     catalog,
		Metrics:     opts.Metrics,
		TokenTTL:    opts.TokenTTL,
	}
	setupRoutes(router, databaseMgr, deps, opts)

	return router
}

func setupCommonMiddleware(router *gin.Engine, jwtMgr managers.JWTMgr, opts Options) {
	router.Use(middleware.InjectTrace())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowOrigins,
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
	})
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
	router.Use(middleware.AttachSession(jwtMgr, opts.CookieSecure))
}

func setupRoutes(router *gin.Engine, databaseMgr managers.DatabaseMgr, deps services.Dependencies, opts Options) {
	// Set up version route
	router.GET("/", func(c *gin.Context) {
		metadata := &schemas.MetadataDTO{
			ApiVersion: opts.ApiVersion,
			ApiName:    apiName,
		}
		utils.WriteAndLogResponse(c, metadata, http.StatusOK)
	})

	// Set up health route
	router.GET("/health", func(c *gin.Context) {
		if err := databaseMgr.Healthy(c.Request.Context()); err != nil {
			utils.LogMessageWithFieldsAndError(c, "error", "Database not responding", err)
			c.String(http.StatusInternalServerError, "Database not responding")
			return
		}
		c.Status(http.StatusOK)
	})

	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	// Set up API routes
	apiRouter := router.Group("/api")
	{
		accountHdl := handlers.NewAccountHandler(services.NewAccountService(deps), deps.Catalog, opts.PublicBaseURL)
		contactHdl := handlers.NewContactHandler(services.NewContactService(deps), opts.PublicBaseURL)

		authRouter := apiRouter.Group("/auth")
		authRoutes(authRouter, accountHdl)

		settingsRouter := apiRouter.Group("/settings")
		settingsRoutes(settingsRouter, accountHdl, contactHdl)

		notificationRouter := apiRouter.Group("/notifications")
		notificationRoutes(notificationRouter, handlers.NewNotificationHandler(services.NewNotificationService(deps)))

		codeHdl := handlers.NewCodeHandler(deps.Catalog)
		apiRouter.GET("/codes/languages", codeHdl.GetLanguages)
		apiRouter.GET("/codes/timezones", codeHdl.GetTimezones)

		adminHdl := handlers.NewAdminHandler(services.NewAdminService(deps))
		apiRouter.GET("/admin/eventlogs", adminHdl.GetEventLogs)
	}
}

func authRoutes(authRouter *gin.RouterGroup, accountHdl handlers.AccountHdl) {
	authRouter.POST("/signup", middleware.ValidateAndSanitizeStruct(&schemas.SignUpRequest{}), accountHdl.SignUp)
	authRouter.POST("/signin", middleware.ValidateAndSanitizeStruct(&schemas.SignInRequest{}), accountHdl.SignIn)
	authRouter.GET("/signin", accountHdl.RedeemTicket)
	authRouter.POST("/signout", accountHdl.SignOut)
	authRouter.POST("/reset_password", middleware.ValidateAndSanitizeStruct(&schemas.ResetPasswordRequest{}), accountHdl.ResetPassword)
	authRouter.POST("/change_password", middleware.ValidateAndSanitizeStruct(&schemas.ChangePasswordRequest{}), accountHdl.ChangePassword)
	authRouter.POST("/withdraw", middleware.ValidateAndSanitizeStruct(&schemas.WithdrawRequest{}), accountHdl.Withdraw)
}

func settingsRoutes(settingsRouter *gin.RouterGroup, accountHdl handlers.AccountHdl, contactHdl handlers.ContactHdl) {
	settingsRouter.GET("/account", accountHdl.GetAccount)
	settingsRouter.PUT("/account", middleware.ValidateAndSanitizeStruct(&schemas.UpdateSettingsRequest{}), accountHdl.UpdateSettings)
	settingsRouter.POST("/password", middleware.ValidateAndSanitizeStruct(&schemas.UpdatePasswordRequest{}), accountHdl.UpdatePassword)
	settingsRouter.POST("/contacts", middleware.ValidateAndSanitizeStruct(&schemas.AddContactRequest{}), contactHdl.AddContact)
	settingsRouter.DELETE("/contacts/:"+utils.ContactIdKey, contactHdl.RemoveContact)
	settingsRouter.POST("/contacts/:"+utils.ContactIdKey+"/confirm", contactHdl.RequestConfirmation)
	settingsRouter.GET("/confirm_contact", contactHdl.ConfirmContact)
}

func notificationRoutes(notificationRouter *gin.RouterGroup, notificationHdl handlers.NotificationHdl) {
	notificationRouter.GET("", notificationHdl.GetNotifications)
	notificationRouter.GET("/unread", notificationHdl.GetUnreadCount)
	notificationRouter.POST("/read", middleware.ValidateAndSanitizeStruct(&schemas.MarkReadRequest{}), notificationHdl.MarkRead)
}
