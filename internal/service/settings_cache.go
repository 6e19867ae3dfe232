package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/repository"
)

const settingsCacheTTL = time.Hour

// SettingsCache mantiene un snapshot en memoria de la configuracion del
// sistema con TTL fijo. Se construye una sola instancia en el arranque y se
// inyecta; los escritores deben llamar Invalidate tras mutar la tabla.
//
// El snapshot se reemplaza por referencia bajo lock, nunca se muta en sitio,
// para que lectores concurrentes no observen un mapa a medio poblar.
type SettingsCache struct {
	mu        sync.Mutex
	logger    *zap.Logger
	configs   repository.ConfigRepository
	ttl       time.Duration
	snapshot  map[string]any
	lastFetch time.Time
}

// NewSettingsCache crea el cache de settings. ttl <= 0 usa el TTL por defecto
// de una hora.
func NewSettingsCache(logger *zap.Logger, configs repository.ConfigRepository, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = settingsCacheTTL
	}
	return &SettingsCache{
		logger:  logger,
		configs: configs,
		ttl:     ttl,
	}
}

// GetAll devuelve el snapshot cacheado si sigue vigente; si no, consulta la
// tabla completa, coerce "true"/"false" a booleanos y guarda el resultado.
// Nunca propaga errores del store: ante fallo devuelve el ultimo snapshot
// bueno, o un mapa vacio si no hay ninguno.
func (c *SettingsCache) GetAll(ctx context.Context) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if c.snapshot != nil && now.Sub(c.lastFetch) < c.ttl {
		return c.snapshot
	}

	configs, err := c.configs.List(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("settings fetch failed, serving last snapshot", zap.Error(err))
		}
		if c.snapshot != nil {
			return c.snapshot
		}
		return map[string]any{}
	}

	fresh := make(map[string]any, len(configs))
	for _, item := range configs {
		fresh[item.Key] = CoerceConfigValue(item.Value)
	}
	c.snapshot = fresh
	c.lastFetch = now
	return fresh
}

// Get devuelve el valor de una clave o defaultValue si no existe.
func (c *SettingsCache) Get(ctx context.Context, key string, defaultValue any) any {
	settings := c.GetAll(ctx)
	if val, ok := settings[key]; ok {
		return val
	}
	return defaultValue
}

// IsVerifyEmailEnabled chequea el flag de verificacion de email.
func (c *SettingsCache) IsVerifyEmailEnabled(ctx context.Context) bool {
	val, _ := c.Get(ctx, domain.ConfigVerifyEmail, false).(bool)
	return val
}

// Invalidate descarta el snapshot; la proxima lectura consulta el store.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.lastFetch = time.Time{}
}

// CoerceConfigValue convierte los valores "true"/"false" a booleano.
// Cualquier otro valor se devuelve como texto tal cual.
func CoerceConfigValue(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
