package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ctv-portal/internal/service"
)

// ProfileHandler mantiene dependencias para endpoints de perfil autenticado.
type ProfileHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
}

func NewProfileHandler(logger *zap.Logger, authServ *service.AuthService) *ProfileHandler {
	return &ProfileHandler{
		logger:   logger,
		authServ: authServ,
	}
}

// UpdateProfile maneja POST /pages/profile/update.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone" binding:"required"`
		Address  string `json:"address"`
		TaxID    string `json:"taxId"`
		Province string `json:"province"`
		Ward     string `json:"ward"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}

	user, err := h.authServ.UpdateProfile(c.Request.Context(), claims.Email, service.ProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		Tax:      req.TaxID,
		Province: req.Province,
		Ward:     req.Ward,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("profile update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": user})
}

// ChangePassword maneja POST /pages/profile/change-password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	if err := h.authServ.ChangePassword(c.Request.Context(), claims.Email, req.Password); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("change password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// RecentDevices maneja GET /pages/profile/recent-device.
func (h *ProfileHandler) RecentDevices(c *gin.Context) {
	if _, ok := GetSessionClaims(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	logs, err := h.authServ.RecentDevices(c.Request.Context(), 10)
	if err != nil {
		h.logger.Error("recent devices failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list devices"})
		return
	}

	c.JSON(http.StatusOK, logs)
}
