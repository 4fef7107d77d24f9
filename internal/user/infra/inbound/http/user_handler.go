package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/userlab/internal/user/application"
	"github.com/davicafu/userlab/internal/user/domain"
)

// UserHandler encapsula los endpoints HTTP relacionados con User
type UserHandler struct {
	service *application.UserService
}

// NewUserHandler crea un nuevo UserHandler
func NewUserHandler(service *application.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateUser endpoint POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email"`
		Name      string `json:"name" binding:"required"`
		Phone     string `json:"phone"`
		Password  string `json:"password" binding:"required"`
		BirthDate string `json:"birth_date" binding:"required"` // ISO8601, ej: 2000-01-01
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid birth_date format, use YYYY-MM-DD"})
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req.Email, req.Name, req.Phone, req.Password, birthDate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser endpoint GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile endpoint PUT /users/:id
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Phone string `json:"phone"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), c.Param("id"), req.Name, req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// WithdrawUser endpoint DELETE /users/:id (baja lógica)
func (h *UserHandler) WithdrawUser(c *gin.Context) {
	// El actor llega en cabecera; a falta de él, la baja cuenta como propia.
	actor := c.GetHeader("X-User-Id")
	if actor == "" {
		actor = c.Param("id")
	}

	if err := h.service.WithdrawUser(c.Request.Context(), c.Param("id"), actor); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SuspendUser endpoint PATCH /users/:id/suspend
func (h *UserHandler) SuspendUser(c *gin.Context) {
	h.changeStatus(c, h.service.SuspendUser)
}

// ActivateUser endpoint PATCH /users/:id/activate
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.changeStatus(c, h.service.ActivateUser)
}

// DeactivateUser endpoint PATCH /users/:id/deactivate
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.changeStatus(c, h.service.DeactivateUser)
}

func (h *UserHandler) changeStatus(c *gin.Context, op func(ctx context.Context, id string) error) {
	if err := op(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckEmail endpoint GET /users/check-email?email=...
func (h *UserHandler) CheckEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query param required"})
		return
	}

	available, err := h.service.CheckEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "available": available})
}

// ListUsers endpoint GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var f domain.UserFilter

	// --- Filtros desde query params ---
	if id := c.Query("id"); id != "" {
		f.ID = &id
	}
	if email := c.Query("email"); email != "" {
		f.Email = &email
	}
	if name := c.Query("name"); name != "" {
		f.Name = &name
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.UserStatus(statusStr)
		f.Status = &status
	}
	if deletedStr := c.Query("deleted"); deletedStr != "" {
		deleted := deletedStr == "true"
		f.Deleted = &deleted
	}

	// --- Sort ---
	f.Sort = domain.Sort{Field: "created_at", Desc: true}
	if sortField := c.Query("sort_field"); sortField != "" {
		f.Sort.Field = sortField
		f.Sort.Desc = c.Query("sort_desc") == "true"
	}

	// --- Paginación ---
	f.Pagination.Limit = 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			f.Pagination.Limit = v
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			f.Pagination.Offset = v
		}
	}

	users, err := h.service.ListUsers(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// ---------------- Mapeo de errores ----------------

func writeError(c *gin.Context, err error) {
	var transitionErr *domain.InvalidTransitionError
	var authErr *domain.AuthError

	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, domain.ErrUserAlreadyDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "user already withdrawn"})
	case errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCannotModifyDeleted),
		errors.Is(err, domain.ErrCannotModifySuspended):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &authErr):
		// El saga ya compensó: reportamos el fallo del servicio remoto.
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity service failure: " + authErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
