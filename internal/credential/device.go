package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprint derives a stable device fingerprint from a User-Agent string:
// browser family, major version, OS and form factor. Minor browser updates
// between stages do not change it. Returns "" for an empty User-Agent.
func Fingerprint(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if major, _, _ := strings.Cut(version, "."); major != "" {
		majorVersion = major
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = normalize(browser)
	os := normalize(ua.OS())

	hash := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s", browser, majorVersion, os, platform))
	return hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
