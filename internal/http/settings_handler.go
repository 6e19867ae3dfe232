package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/repository"
	"ctv-portal/internal/service"
)

// SettingsHandler mantiene dependencias para los endpoints de configuracion.
type SettingsHandler struct {
	logger  *zap.Logger
	configs repository.ConfigRepository
	cache   *service.SettingsCache
}

func NewSettingsHandler(logger *zap.Logger, configs repository.ConfigRepository, cache *service.SettingsCache) *SettingsHandler {
	return &SettingsHandler{
		logger:  logger,
		configs: configs,
		cache:   cache,
	}
}

// GetSettings maneja GET /pages/settings. Acepta ?keys=A,B,C para filtrar;
// sin filtro devuelve toda la tabla. Lee directo del store, con coercion
// booleana aplicada.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	var (
		configs []domain.SystemConfig
		err     error
	)
	if keysParam := c.Query("keys"); keysParam != "" {
		keys := strings.Split(keysParam, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		configs, err = h.configs.ListByKeys(c.Request.Context(), keys)
	} else {
		configs, err = h.configs.List(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("settings fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	result := make(map[string]any, len(configs))
	for _, item := range configs {
		result[item.Key] = service.CoerceConfigValue(item.Value)
	}
	c.JSON(http.StatusOK, result)
}

// UpdateSetting maneja POST /pages/settings. Hace upsert por clave e
// invalida el cache para que la proxima lectura vea el valor nuevo.
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "key is required"})
		return
	}

	if !isKnownConfigKey(req.Key) {
		h.logger.Warn("updating non-standard config key", zap.String("key", req.Key))
	}

	updated, err := h.configs.Upsert(c.Request.Context(), domain.SystemConfig{
		ID:          uuid.NewString(),
		Key:         req.Key,
		Value:       req.Value,
		Description: "Configuracion para " + req.Key,
	})
	if err != nil {
		h.logger.Error("settings upsert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	if h.cache != nil {
		h.cache.Invalidate()
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

func isKnownConfigKey(key string) bool {
	for _, k := range domain.KnownConfigKeys() {
		if k == key {
			return true
		}
	}
	return false
}
