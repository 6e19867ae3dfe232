package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ctv-portal/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	sessionSvc *service.SessionService,
	authH *AuthHandler,
	profileH *ProfileHandler,
	settingsH *SettingsHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/oauth", authH.OAuthLogin)
	auth.POST("/new-verification", authH.NewVerification)
	auth.POST("/forgot-password-custom", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.GET("/check-verify-status", authH.CheckVerifyStatus)
	auth.POST("/session/refresh", authH.RefreshSession)
	auth.POST("/logout", authH.Logout)

	pages := r.Group("/pages")
	pages.GET("/settings", settingsH.GetSettings)
	pages.POST("/settings", settingsH.UpdateSetting)

	profile := pages.Group("/profile", SessionAuthMiddleware(sessionSvc))
	profile.POST("/update", profileH.UpdateProfile)
	profile.POST("/change-password", profileH.ChangePassword)
	profile.GET("/recent-device", profileH.RecentDevices)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
