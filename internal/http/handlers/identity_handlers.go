package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/identitysvc/domain"
)

// PrincipalKey is the context key the access middleware stores the verified principal under
const PrincipalKey = "principal"

// IdentityHandlers handles identity HTTP requests
type IdentityHandlers struct {
	svc        domain.IdentityService
	production bool
	logger     *slog.Logger
}

// NewIdentityHandlers creates new identity handlers
func NewIdentityHandlers(svc domain.IdentityService, production bool, logger *slog.Logger) *IdentityHandlers {
	return &IdentityHandlers{
		svc:        svc,
		production: production,
		logger:     logger.With("component", "http"),
	}
}

// SignupRequest represents a registration request
type SignupRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Channel     string `json:"channel"`
}

// VerifyOTPRequest represents a code submission
type VerifyOTPRequest struct {
	OTPRef string `json:"otp_ref" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// ResendOTPRequest asks for a fresh code
type ResendOTPRequest struct {
	OTPRef string `json:"otp_ref" binding:"required"`
}

// SendOTPRequest asks for a code for the authenticated account
type SendOTPRequest struct {
	Channel string `json:"channel" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// LoginRequest represents password credentials
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"device_id"`
	Platform   string `json:"platform"`
}

// FaceRequest carries a base64-encoded biometric template
type FaceRequest struct {
	Template []byte `json:"template" binding:"required"`
	DeviceID string `json:"device_id"`
	Platform string `json:"platform"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *IdentityHandlers) fail(c *gin.Context, err error) {
	if domain.IsKind(err, domain.KindInternal) {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	RenderError(c, err, h.production)
}

// bind decodes the JSON body into req, rendering a 400 on failure
func (h *IdentityHandlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, bindError(err))
		return false
	}
	return true
}

// Signup handles account registration
func (h *IdentityHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.Signup(c.Request.Context(), domain.SignupRequest{
		Identifier:  req.Identifier,
		Secret:      req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Channel:     domain.Channel(req.Channel),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"account": accountView(res.Account),
			"otp_ref": res.OTPRef,
		},
	})
}

// VerifyOTP handles code verification
func (h *IdentityHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.VerifyOTP(c.Request.Context(), domain.VerifyOTPRequest{OTPRef: req.OTPRef, Code: req.Code})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"account": accountView(res.Account),
			"purpose": res.Purpose,
		},
	})
}

// ResendOTP handles code resend
func (h *IdentityHandlers) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if !h.bind(c, &req) {
		return
	}

	ref, err := h.svc.ResendOTP(c.Request.Context(), req.OTPRef)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"otp_ref": ref}})
}

// SendOTP issues a code to the authenticated account (requires authentication)
func (h *IdentityHandlers) SendOTP(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req SendOTPRequest
	if !h.bind(c, &req) {
		return
	}

	ref, err := h.svc.IssueOTP(c.Request.Context(), domain.IssueOTPRequest{
		AccountID: principal.Account.ID,
		Channel:   domain.Channel(req.Channel),
		Purpose:   domain.Purpose(req.Purpose),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"otp_ref": ref}})
}

// Login handles password sign-in
func (h *IdentityHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.SignIn(c.Request.Context(), domain.SignInRequest{
		Identifier: req.Identifier,
		Secret:     req.Password,
		Device:     deviceInfo(c, req.DeviceID, req.Platform),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": authView(res)})
}

// FaceLogin handles biometric sign-in
func (h *IdentityHandlers) FaceLogin(c *gin.Context) {
	var req FaceRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.FaceLogin(c.Request.Context(), domain.FaceLoginRequest{
		Template: req.Template,
		Device:   deviceInfo(c, req.DeviceID, req.Platform),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": authView(res)})
}

// EnrollFace stores a template for the authenticated account (requires authentication)
func (h *IdentityHandlers) EnrollFace(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req FaceRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.EnrollFace(c.Request.Context(), principal.Account.ID, req.Template); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Biometric template enrolled"}})
}

// ForgotPassword starts a password reset. The response never reveals whether
// the identifier is registered.
func (h *IdentityHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Identifier); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"message": "If the account exists, reset instructions have been sent"},
	})
}

// ResetPassword completes a password reset
func (h *IdentityHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.CompletePasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Password updated; sign in again"}})
}

// Refresh handles access credential refresh
func (h *IdentityHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": authView(res)})
}

// Logout ends the session bound to the presented bearer credential. An
// expired credential is accepted, so this route sits outside the access middleware.
func (h *IdentityHandlers) Logout(c *gin.Context) {
	token, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		h.fail(c, domain.ErrTokenMalformed.WithMessage("authorization header must be a bearer token"))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// Me returns the authenticated account (requires authentication)
func (h *IdentityHandlers) Me(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	account, err := h.svc.GetAccount(c.Request.Context(), principal.Account.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": accountView(account)})
}

func (h *IdentityHandlers) principal(c *gin.Context) (*domain.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	principal, ok := v.(*domain.Principal)
	if !exists || !ok || principal.Account == nil {
		h.fail(c, domain.ErrTokenMalformed)
		return nil, false
	}
	return principal, true
}

// BearerToken extracts the credential from an Authorization header
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deviceInfo(c *gin.Context, deviceID, platform string) domain.DeviceInfo {
	if deviceID == "" {
		deviceID = c.GetHeader("X-Device-ID")
	}
	return domain.DeviceInfo{
		DeviceID:  deviceID,
		Platform:  platform,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

// accountView is the public projection of an account; secrets never leave the service
func accountView(a *domain.Account) gin.H {
	if a == nil {
		return nil
	}
	view := gin.H{
		"id":             a.ID,
		"identifier":     a.Identifier,
		"email":          a.Email,
		"phone":          a.Phone,
		"display_name":   a.DisplayName,
		"status":         a.Status,
		"email_verified": a.EmailVerified,
		"phone_verified": a.PhoneVerified,
		"face_enrolled":  a.BiometricHash != "",
		"created_at":     a.CreatedAt,
	}
	if a.LastLoginAt != nil {
		view["last_login_at"] = a.LastLoginAt
	}
	return view
}

func authView(res *domain.AuthResult) gin.H {
	return gin.H{
		"access_token":       res.AccessToken,
		"refresh_token":      res.RefreshToken,
		"token_type":         "Bearer",
		"session_id":         res.SessionID,
		"expires_in":         int64(time.Until(res.AccessExpiresAt).Seconds()),
		"access_expires_at":  res.AccessExpiresAt,
		"refresh_expires_at": res.RefreshExpiresAt,
		"account":            accountView(res.Account),
	}
}
