package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// CEFExporter renders scan records in Common Event Format for SIEM ingestion.
type CEFExporter struct{}

func NewCEFExporter() *CEFExporter {
	return &CEFExporter{}
}

// Export generates one CEF line per record.
// Format: CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(scanID string, iocs []domain.IOC) string {
	var output strings.Builder

	now := time.Now()
	for _, ioc := range iocs {
		output.WriteString(e.formatCEF(scanID, ioc, now))
		output.WriteString("\n")
	}

	return output.String()
}

func (e *CEFExporter) formatCEF(scanID string, ioc domain.IOC, detectedAt time.Time) string {
	vendor := "IOCScan"
	product := "Scanner"
	version := "1.0"
	signatureID := string(ioc.Type)
	name := fmt.Sprintf("%s IOC Detected", strings.ToUpper(string(ioc.Type)))

	extensions := []string{
		fmt.Sprintf("src=%s", escapeField(ioc.Value)),
		"cs1Label=RecordID",
		fmt.Sprintf("cs1=%s", escapeField(ioc.ID)),
		"cs2Label=ScanID",
		fmt.Sprintf("cs2=%s", escapeField(scanID)),
		fmt.Sprintf("rt=%d", detectedAt.UnixMilli()),
	}

	if ioc.OriginalValue != "" {
		extensions = append(extensions,
			"cs3Label=OriginalValue",
			fmt.Sprintf("cs3=%s", escapeField(ioc.OriginalValue)),
		)
	}

	return fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
		vendor, product, version, signatureID, name, severityFor(ioc), strings.Join(extensions, " "))
}

// severityFor maps record types to CEF severity (0-10). A risk score, when
// present, overrides the per-type defaults.
func severityFor(ioc domain.IOC) int {
	if ioc.RiskScore != nil {
		return *ioc.RiskScore / 10
	}

	switch ioc.Type {
	case domain.DefangedIP, domain.DefangedURL:
		return 8
	case domain.MD5, domain.SHA1, domain.SHA256, domain.SHA512:
		return 6
	case domain.CIDR, domain.IPv4, domain.IPv6, domain.URL:
		return 5
	default:
		return 3
	}
}

func escapeField(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}
