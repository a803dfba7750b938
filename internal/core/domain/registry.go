package domain

import (
	"regexp"
	"strings"
)

// Pattern fragments shared between detectors. All patterns are RE2, which
// matches in linear time regardless of input, so adversarial page text
// cannot trigger catastrophic backtracking.
const (
	ipv4Octet = `(?:25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])`

	// De-fanged dot marker: [.] (.) [dot] (dot), tolerating interior
	// whitespace like "[ . ]".
	dotMarker = `(?i:\[\s*(?:\.|dot)\s*\]|\(\s*(?:\.|dot)\s*\))`

	// Characters that terminate a URL.
	urlTailChar = "[^\\s<>\"{}|\\\\^`]"
	// Authority characters: as above, but a slash ends the host portion.
	urlHostChar = "[^\\s/<>\"{}|\\\\^`]"
)

var (
	ipv4Quad = ipv4Octet + `(?:\.` + ipv4Octet + `){3}`

	// Full and ::-compressed IPv6 forms.
	ipv6Addr = `(?:` +
		`(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}` +
		`|(?:[0-9a-fA-F]{1,4}:){1,7}:` +
		`|(?:[0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}` +
		`|(?:[0-9a-fA-F]{1,4}:){1,5}(?::[0-9a-fA-F]{1,4}){1,2}` +
		`|(?:[0-9a-fA-F]{1,4}:){1,4}(?::[0-9a-fA-F]{1,4}){1,3}` +
		`|(?:[0-9a-fA-F]{1,4}:){1,3}(?::[0-9a-fA-F]{1,4}){1,4}` +
		`|(?:[0-9a-fA-F]{1,4}:){1,2}(?::[0-9a-fA-F]{1,4}){1,5}` +
		`|[0-9a-fA-F]{1,4}:(?::[0-9a-fA-F]{1,4}){1,6}` +
		`|:(?::[0-9a-fA-F]{1,4}){1,7}` +
		`|::` +
		`)`

	cidrPattern = `(?:\b` + ipv4Quad + `/(?:3[0-2]|[12]?[0-9])\b` +
		`|` + ipv6Addr + `/(?:12[0-8]|1[01][0-9]|[1-9]?[0-9])\b)`

	// At least one separator must be an obfuscated marker; a dotted quad
	// with only plain dots belongs to the IPv4 detector.
	defangedIPPattern = `\b\d{1,3}(?:` +
		dotMarker + `\d{1,3}(?:(?:` + dotMarker + `|\.)\d{1,3}){2}` +
		`|\.\d{1,3}` + dotMarker + `\d{1,3}(?:` + dotMarker + `|\.)\d{1,3}` +
		`|\.\d{1,3}\.\d{1,3}` + dotMarker + `\d{1,3}` +
		`)\b`

	emailPattern = `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`

	// Either an obfuscated scheme, or a standard scheme with a dot marker
	// somewhere in the authority.
	defangedURLPattern = `\b(?:(?i:hxxps?|ftxp)://` + urlTailChar + `+` +
		`|(?i:https?|ftp)://` + urlHostChar + `*` + dotMarker + urlTailChar + `*)`

	urlPattern = `\b(?i:https?|ftp)://` + urlTailChar + `+`

	filenameBody    = `[A-Za-z0-9_][A-Za-z0-9_\-.]*`
	filenamePattern = `(?:^|[\s"'<>(),;:=\[\]])(` + filenameBody +
		`\.(?i:` + strings.Join(filenameExts, "|") + `))\b`
)

// filenameExts is the fixed allow-list of extensions the Filename detector
// recognizes: executables, archives, office documents, scripts, certificates
// and config/data files.
var filenameExts = []string{
	"exe", "dll", "sys", "drv", "ocx", "cpl", "scr", "com", "pif", "msi", "msp",
	"jar", "apk", "app", "deb", "rpm", "dmg", "iso", "img",
	"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "cab",
	"docx", "docm", "doc", "xlsx", "xlsm", "xls", "pptx", "pptm", "ppt",
	"pdf", "rtf", "odt", "ods", "odp",
	"ps1", "psm1", "vbs", "vbe", "js", "jse", "wsf", "hta", "bat", "cmd",
	"sh", "py", "rb", "pl", "php",
	"lnk", "chm", "reg", "inf",
	"crt", "cer", "pem", "der", "pfx", "p12", "key",
	"cfg", "conf", "ini", "dat", "bin", "sql",
}

// detector binds an IOC type to its scanning pattern. group selects the
// submatch that carries the indicator when the pattern needs leading-context
// guards (RE2 has no lookbehind); rejectSlashAfter drops matches immediately
// followed by '/' so a CIDR's address part is never re-captured (RE2 has no
// lookahead either).
type detector struct {
	Type             IOCType
	re               *regexp.Regexp
	group            int
	rejectSlashAfter bool
}

func mustScan(pattern string) *regexp.Regexp {
	re := regexp.MustCompile(pattern)
	// Leftmost-longest keeps alternations (IPv6 in particular) from
	// committing to a short branch and truncating the match.
	re.Longest()
	return re
}

// Registry is the priority-ordered detector list. Earlier entries win when
// spans overlap or values coincide; Detect consults it in order and the
// claimed set enforces the precedence.
var Registry = []detector{
	{Type: CIDR, re: mustScan(cidrPattern)},
	{Type: DefangedIP, re: mustScan(defangedIPPattern)},
	{Type: IPv4, re: mustScan(`\b` + ipv4Quad + `\b`), rejectSlashAfter: true},
	{Type: IPv6, re: mustScan(ipv6Addr), rejectSlashAfter: true},
	{Type: MD5, re: mustScan(`\b[a-fA-F0-9]{32}\b`)},
	{Type: SHA1, re: mustScan(`\b[a-fA-F0-9]{40}\b`)},
	{Type: SHA256, re: mustScan(`\b[a-fA-F0-9]{64}\b`)},
	{Type: SHA512, re: mustScan(`\b[a-fA-F0-9]{128}\b`)},
	{Type: Email, re: mustScan(emailPattern)},
	{Type: DefangedURL, re: mustScan(defangedURLPattern)},
	{Type: URL, re: mustScan(urlPattern)},
	{Type: Filename, re: mustScan(filenamePattern), group: 1},
}

// anchoredPatterns re-validate a value as a complete, standalone instance of
// a type. The de-fanged entries deliberately accept plain separators too, so
// that a record's canonical value still validates under its own type.
var anchoredPatterns = map[IOCType]*regexp.Regexp{
	CIDR:       regexp.MustCompile(`^` + cidrPattern + `$`),
	DefangedIP: regexp.MustCompile(`^\d{1,3}(?:(?:\.|` + dotMarker + `)\d{1,3}){3}$`),
	IPv4:       regexp.MustCompile(`^` + ipv4Quad + `$`),
	IPv6:       regexp.MustCompile(`^` + ipv6Addr + `$`),
	MD5:        regexp.MustCompile(`^[a-fA-F0-9]{32}$`),
	SHA1:       regexp.MustCompile(`^[a-fA-F0-9]{40}$`),
	SHA256:     regexp.MustCompile(`^[a-fA-F0-9]{64}$`),
	SHA512:     regexp.MustCompile(`^[a-fA-F0-9]{128}$`),
	Email:      regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
	DefangedURL: regexp.MustCompile(`^(?i:hxxps?|ftxp|https?|ftp)://` +
		urlTailChar + `+$`),
	URL:      regexp.MustCompile(`^(?i:https?|ftp)://` + urlTailChar + `+$`),
	Filename: regexp.MustCompile(`^` + filenameBody + `\.(?i:` + strings.Join(filenameExts, "|") + `)$`),
}

// Validate reports whether value is a complete, standalone instance of the
// given type. Unknown types validate to false rather than erroring; this is
// a defensive re-check for callers, not part of the scan loop.
func Validate(value string, t IOCType) bool {
	re, ok := anchoredPatterns[t]
	if !ok {
		return false
	}
	return re.MatchString(value)
}

// findMatches runs the detector over text and returns the matched indicator
// strings in left-to-right order.
func (d detector) findMatches(text string) []string {
	var out []string
	if d.group > 0 {
		for _, idx := range d.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*d.group], idx[2*d.group+1]
			if start < 0 {
				continue
			}
			out = append(out, text[start:end])
		}
		return out
	}
	for _, span := range d.re.FindAllStringIndex(text, -1) {
		if d.rejectSlashAfter && span[1] < len(text) && text[span[1]] == '/' {
			continue
		}
		out = append(out, text[span[0]:span[1]])
	}
	return out
}
