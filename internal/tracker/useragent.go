package tracker

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"

	unknown = "Unknown"
)

// Device 从 User-Agent 中解析出的粗粒度设备信息
type Device struct {
	Type    string
	Browser string
	OS      string
}

// ParseUserAgent 尽力解析，无法识别的字段取默认值，不返回错误
func ParseUserAgent(raw string) Device {
	d := Device{Type: DeviceDesktop, Browser: unknown, OS: unknown}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return d
	}

	ua := useragent.New(raw)
	if name, _ := ua.Browser(); name != "" {
		d.Browser = name
	}
	if os := ua.OSInfo().Name; os != "" {
		d.OS = os
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")):
		d.Type = DeviceTablet
	case ua.Mobile():
		d.Type = DeviceMobile
	}
	return d
}
