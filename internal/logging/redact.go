package logging

import (
	"regexp"
	"strings"
)

var secretPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|api[_-]?secret|access[_-]?token|request[_-]?token|enctoken|authorization)(["']?\s*[=:]\s*["']?)([^\s"'&,}]+)`)

// MaskCredential keeps the first and last four characters of a credential.
func MaskCredential(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSecrets masks credential values embedded in free text such as URLs,
// request dumps and error messages.
func MaskSecrets(s string) string {
	return secretPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := secretPattern.FindStringSubmatch(match)
		return m[1] + m[2] + MaskCredential(m[3])
	})
}
