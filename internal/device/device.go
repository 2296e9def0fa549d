// Package device derives coarse device facts from a User-Agent header.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is what lead capture records about the submitting browser.
type Info struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
}

// Parse never fails; unknown agents yield empty fields.
func Parse(userAgent string) Info {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Info{}
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	browser := strings.TrimSpace(name)
	if browser != "" && version != "" {
		browser += " " + majorVersion(version)
	}
	return Info{
		Browser: browser,
		OS:      strings.TrimSpace(ua.OS()),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

// ParseUserAgent renders a short display name such as "Chrome 120 on Linux x86_64".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}
	info := Parse(userAgent)
	browser := info.Browser
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := info.OS
	if os == "" {
		os = "Unknown OS"
	}
	return strings.Join(strings.Fields(browser+" on "+os), " ")
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i > 0 {
		return v[:i]
	}
	return v
}
