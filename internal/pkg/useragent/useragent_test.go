package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tgfunnel/internal/pkg/useragent"
)

func TestDeviceType(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"empty", "", useragent.DeviceUnknown},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", useragent.DeviceTablet},
		{"android tablet", "Mozilla/5.0 (Linux; Android 13; Tablet) Chrome/120.0", useragent.DeviceTablet},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", useragent.DeviceIPhone},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", useragent.DeviceAndroid},
		{"generic mobile", "SomeClient/1.0 Mobile", useragent.DeviceMobile},
		{"desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0", useragent.DeviceDesktop},
		{"case insensitive", "MOZILLA (IPAD)", useragent.DeviceTablet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, useragent.DeviceType(tt.userAgent))
		})
	}
}

func TestDeviceTypePriorityOrder(t *testing.T) {
	// A UA carrying both tablet and mobile markers lands in the tablet
	// bucket because tablet/iPad is checked first.
	ua := "Mozilla/5.0 (Linux; Android 13; SM-X700 Tablet) Mobile Safari/537.36"
	assert.Equal(t, useragent.DeviceTablet, useragent.DeviceType(ua))
}

func TestBrowser(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"empty", "", useragent.BrowserUnknown},
		{"chrome", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36", useragent.BrowserChrome},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", useragent.BrowserFirefox},
		{"safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_0) Version/17.0 Safari/605.1.15", useragent.BrowserSafari},
		{"edge", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36 Edg/120.0", useragent.BrowserEdge},
		{"opera", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36 OPR/106.0", useragent.BrowserOpera},
		{"yandex", "SomeShell/1.0 YaBrowser/24.1", useragent.BrowserYandex},
		{"other", "curl/8.4.0", useragent.BrowserOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, useragent.Browser(tt.userAgent))
		})
	}
}

func TestBrowserChromeExcludesForks(t *testing.T) {
	// Edge and Opera both embed "chrome" in their UA; they must not be
	// counted as Chrome.
	edge := "Mozilla/5.0 Chrome/120.0 Edg/120.0"
	opera := "Mozilla/5.0 Chrome/120.0 OPR/106.0"
	assert.NotEqual(t, useragent.BrowserChrome, useragent.Browser(edge))
	assert.NotEqual(t, useragent.BrowserChrome, useragent.Browser(opera))
}
