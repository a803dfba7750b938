package domain

import (
	"regexp"
	"strings"
)

var (
	defangedDotRe    = regexp.MustCompile(dotMarker)
	defangedSchemeRe = regexp.MustCompile(`(?i)^(hxxps|hxxp|ftxp)://`)
)

// NormalizeDefangedIP rewrites obfuscated dot markers back to literal dots:
// "192.168.1[.]1" becomes "192.168.1.1". Applying it to an already-canonical
// value is a no-op.
func NormalizeDefangedIP(value string) string {
	return defangedDotRe.ReplaceAllString(value, ".")
}

// NormalizeDefangedURL restores the scheme first (hxxp -> http, hxxps ->
// https, ftxp -> ftp), then de-fangs the dot markers in the remainder.
func NormalizeDefangedURL(value string) string {
	value = defangedSchemeRe.ReplaceAllStringFunc(value, func(m string) string {
		switch strings.ToLower(m) {
		case "hxxp://":
			return "http://"
		case "hxxps://":
			return "https://"
		case "ftxp://":
			return "ftp://"
		}
		return m
	})
	return defangedDotRe.ReplaceAllString(value, ".")
}

// normalize maps a matched value to its canonical form. Only the de-fanged
// detectors rewrite anything; every other type keeps the trimmed match
// verbatim.
func normalize(t IOCType, value string) string {
	switch t {
	case DefangedIP:
		return NormalizeDefangedIP(value)
	case DefangedURL:
		return NormalizeDefangedURL(value)
	default:
		return value
	}
}
