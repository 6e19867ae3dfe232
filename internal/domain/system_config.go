package domain

import "time"

// SystemConfig es una entrada clave/valor de configuracion del sitio.
// El valor siempre se guarda como texto; "true"/"false" se coercen a
// booleano al leer via el cache de settings.
type SystemConfig struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Claves de configuracion conocidas por el sistema.
const (
	ConfigVerifyEmail     = "VERIFY_EMAIL"
	ConfigSiteTitle       = "SITE_TITLE"
	ConfigMaintenanceMode = "MAINTENANCE_MODE"
	ConfigDefaultLanguage = "DEFAULT_LANGUAGE"
	ConfigSiteName        = "SITE_NAME"
	ConfigCompanyAddress  = "COMPANY_ADDRESS"
	ConfigCompanyHotline  = "COMPANY_HOTLINE"
)

// KnownConfigKeys lista las claves estandar del proyecto.
func KnownConfigKeys() []string {
	return []string{
		ConfigVerifyEmail,
		ConfigSiteTitle,
		ConfigMaintenanceMode,
		ConfigDefaultLanguage,
		ConfigSiteName,
		ConfigCompanyAddress,
		ConfigCompanyHotline,
	}
}
