package domain

import "time"

// DeviceType clasifica el dispositivo detectado en el user agent.
type DeviceType string

const (
	DeviceDesktop DeviceType = "Desktop"
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceOther   DeviceType = "Other"
)

// LoginLog es una entrada append-only del historial de accesos.
type LoginLog struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	IPAddress    string     `json:"ip_address"`
	Browser      string     `json:"browser"`
	OS           string     `json:"os"`
	DeviceType   DeviceType `json:"device_type"`
	Location     string     `json:"location"`
	ActivityType string     `json:"activity_type"`
	LoginTime    time.Time  `json:"login_time"`
}

const ActivityLoginSuccess = "LOGIN_SUCCESS"
