package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"triplog/internal/domain"
	"triplog/internal/middleware"
	"triplog/internal/repository"
	"triplog/internal/service"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	users repository.UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users repository.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRequest is the HTTP request body for registration.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		respondError(c, service.ErrInvalidEmail)
		return
	}
	if req.Password == "" {
		respondError(c, service.ErrInvalidPassword)
		return
	}

	_, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err == nil {
		respondError(c, service.ErrEmailTaken)
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), &domain.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toUserResponse(user))
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/users/login. The returned id is the identity the
// shell sends back on every call.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	// Accounts imported without credential material carry an empty password;
	// an empty submission must never match one.
	if req.Password == "" {
		respondError(c, service.ErrBadCredentials)
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, service.ErrBadCredentials)
			return
		}
		respondError(c, err)
		return
	}

	if user.Password != req.Password {
		respondError(c, service.ErrBadCredentials)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// ChangePasswordRequest is the HTTP request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /v1/users/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actorID := middleware.ActingUserID(c)
	if actorID == "" {
		respondError(c, service.ErrUnauthenticated)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.NewPassword == "" {
		respondError(c, service.ErrInvalidPassword)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.Password != req.CurrentPassword {
		respondError(c, service.ErrBadCredentials)
		return
	}

	if err := h.users.UpdatePassword(c.Request.Context(), actorID, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}
