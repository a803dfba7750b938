package exporter

import (
	"strings"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// ExportText joins the canonical values of the given records with the
// caller-chosen separator. An empty separator means one value per line.
func ExportText(iocs []domain.IOC, sep string) string {
	if sep == "" {
		sep = "\n"
	}

	values := make([]string, len(iocs))
	for i, ioc := range iocs {
		values[i] = ioc.Value
	}
	return strings.Join(values, sep)
}
