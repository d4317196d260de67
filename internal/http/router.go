package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/identitysvc/internal/http/handlers"
	"github.com/you/identitysvc/internal/http/middleware"
)

func BuildRouter(h *handlers.IdentityHandlers, authmw *middleware.AuthMW, metricsHandler http.Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/otp/verify", h.VerifyOTP)
	auth.POST("/otp/resend", h.ResendOTP)
	auth.POST("/login", h.Login)
	auth.POST("/login/face", h.FaceLogin)
	auth.POST("/password/forgot", h.ForgotPassword)
	auth.POST("/password/reset", h.ResetPassword)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	v := r.Group("/auth").Use(authmw.WithSession())
	v.POST("/otp/send", h.SendOTP)
	v.GET("/me", h.Me)
	v.POST("/face/enroll", h.EnrollFace)

	return r
}
