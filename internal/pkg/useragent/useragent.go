// Package useragent classifies user-agent strings into device type and
// browser family buckets using ordered, case-insensitive substring checks.
// The first matching pattern wins.
package useragent

import "strings"

// Device type buckets.
const (
	DeviceTablet  = "Tablet"
	DeviceIPhone  = "IPhone"
	DeviceAndroid = "Android"
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
	DeviceUnknown = "Unknown"
)

// Browser family buckets.
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserYandex  = "Yandex Browser"
	BrowserOther   = "Other"
	BrowserUnknown = "Unknown"
)

// DeviceType returns the device bucket for a raw user-agent string.
func DeviceType(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}

	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return DeviceTablet
	case strings.Contains(ua, "iphone"):
		return DeviceIPhone
	case strings.Contains(ua, "android"):
		return DeviceAndroid
	case strings.Contains(ua, "mobile"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// Browser returns the browser family bucket for a raw user-agent string.
// Chrome-based browsers embed "chrome" in their UA, so Edge and Opera are
// checked by their own markers before Chrome wins.
func Browser(userAgent string) string {
	if userAgent == "" {
		return BrowserUnknown
	}

	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg") && !strings.Contains(ua, "opr"):
		return BrowserChrome
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return BrowserSafari
	case strings.Contains(ua, "edg"):
		return BrowserEdge
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		return BrowserOpera
	case strings.Contains(ua, "yabrowser"):
		return BrowserYandex
	default:
		return BrowserOther
	}
}
