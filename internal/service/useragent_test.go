package service

import (
	"testing"

	"ctv-portal/internal/domain"
)

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		browser string
		os      string
		device  domain.DeviceType
	}{
		{
			name:    "edge on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0 Safari/537.36 Edg/120.0",
			browser: "Microsoft Edge",
			os:      "Windows",
			device:  domain.DeviceDesktop,
		},
		{
			name:    "opera wins over chrome",
			ua:      "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0 OPR/106.0",
			browser: "Opera",
			os:      "Linux",
			device:  domain.DeviceDesktop,
		},
		{
			name:    "chrome on android mobile",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) Chrome/120.0 Mobile Safari/537.36",
			browser: "Chrome",
			os:      "Android",
			device:  domain.DeviceMobile,
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1",
			browser: "Safari",
			os:      "iOS",
			device:  domain.DeviceMobile,
		},
		{
			name:    "ipad is tablet",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) Version/17.0 Safari/604.1",
			browser: "Safari",
			os:      "iPadOS",
			device:  domain.DeviceTablet,
		},
		{
			name:    "firefox on macos",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.0; rv:120.0) Gecko/20100101 Firefox/120.0",
			browser: "Firefox",
			os:      "macOS",
			device:  domain.DeviceDesktop,
		},
		{
			name:    "internet explorer",
			ua:      "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			browser: "Internet Explorer",
			os:      "Windows",
			device:  domain.DeviceDesktop,
		},
		{
			name:    "smart tv is other",
			ua:      "Mozilla/5.0 (SMART-TV; Linux; Tizen 6.0) Chrome/76.0 TV Safari/537.36",
			browser: "Chrome",
			os:      "Linux",
			device:  domain.DeviceOther,
		},
		{
			name:    "empty header",
			ua:      "",
			browser: "Unknown Browser",
			os:      "Unknown OS",
			device:  domain.DeviceDesktop,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseUserAgent(tc.ua)
			if got.Browser != tc.browser {
				t.Fatalf("browser: expected %q, got %q", tc.browser, got.Browser)
			}
			if got.OS != tc.os {
				t.Fatalf("os: expected %q, got %q", tc.os, got.OS)
			}
			if got.DeviceType != tc.device {
				t.Fatalf("device: expected %q, got %q", tc.device, got.DeviceType)
			}
		})
	}
}
