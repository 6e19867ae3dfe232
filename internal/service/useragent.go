package service

import (
	"strings"

	"ctv-portal/internal/domain"
)

// ParsedUserAgent es el resultado de clasificar un header User-Agent.
type ParsedUserAgent struct {
	Browser    string
	OS         string
	DeviceType domain.DeviceType
}

// ParseUserAgent clasifica browser, sistema operativo y tipo de dispositivo
// por matching ordenado de substrings: gana la primera coincidencia, por eso
// Edge y Opera van antes que Chrome, y Chrome antes que Safari.
func ParseUserAgent(userAgent string) ParsedUserAgent {
	ua := strings.ToLower(userAgent)
	parsed := ParsedUserAgent{
		Browser:    "Unknown Browser",
		OS:         "Unknown OS",
		DeviceType: domain.DeviceDesktop,
	}

	switch {
	case strings.Contains(ua, "edg"):
		parsed.Browser = "Microsoft Edge"
	case strings.Contains(ua, "opr"), strings.Contains(ua, "opera"):
		parsed.Browser = "Opera"
	case strings.Contains(ua, "chrome"):
		parsed.Browser = "Chrome"
	case strings.Contains(ua, "safari"):
		parsed.Browser = "Safari"
	case strings.Contains(ua, "firefox"):
		parsed.Browser = "Firefox"
	case strings.Contains(ua, "msie"), strings.Contains(ua, "trident"):
		parsed.Browser = "Internet Explorer"
	}

	switch {
	case strings.Contains(ua, "windows"):
		parsed.OS = "Windows"
	case strings.Contains(ua, "android"):
		parsed.OS = "Android"
	case strings.Contains(ua, "ipad"):
		parsed.OS = "iPadOS"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ios"):
		parsed.OS = "iOS"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		parsed.OS = "macOS"
	case strings.Contains(ua, "linux"):
		parsed.OS = "Linux"
	case strings.Contains(ua, "x11"):
		parsed.OS = "Unix/Linux"
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		parsed.DeviceType = domain.DeviceTablet
	case strings.Contains(ua, "mobile"):
		parsed.DeviceType = domain.DeviceMobile
	case strings.Contains(ua, "tv"), strings.Contains(ua, "smarttv"):
		parsed.DeviceType = domain.DeviceOther
	}

	return parsed
}
