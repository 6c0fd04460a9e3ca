package handlers

import (
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// AuthHandler exposes registration, login, e-mail verification and
// password reset.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Register creates an account and mails its activation code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login accepts a JSON body or an OAuth2 password form
// (username, password) and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, token)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req services.EmailVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.users.VerifyEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"email": req.Email, "verified": true})
}

// SendPasswordReset mails a new code to the address in the path.
func (h *AuthHandler) SendPasswordReset(c *gin.Context) {
	email := c.Param("email")
	if err := h.users.SendPasswordReset(c.Request.Context(), email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"email": email})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"email": req.Email})
}
