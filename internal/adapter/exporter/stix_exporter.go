package exporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// STIXExporter renders scan records as a STIX 2.1 bundle.
type STIXExporter struct{}

func NewSTIXExporter() *STIXExporter {
	return &STIXExporter{}
}

func (e *STIXExporter) Export(iocs []domain.IOC) (string, error) {
	bundle := STIXBundle{
		Type:        "bundle",
		ID:          fmt.Sprintf("bundle--%s", uuid.New().String()),
		SpecVersion: "2.1",
		Objects:     []STIXObject{},
	}

	for _, ioc := range iocs {
		bundle.Objects = append(bundle.Objects, e.convertToSTIX(ioc))
	}

	jsonData, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal STIX bundle: %w", err)
	}

	return string(jsonData), nil
}

func (e *STIXExporter) convertToSTIX(ioc domain.IOC) STIXObject {
	now := time.Now().UTC().Format(time.RFC3339)

	obj := STIXObject{
		Type:           "indicator",
		SpecVersion:    "2.1",
		ID:             fmt.Sprintf("indicator--%s", uuid.New().String()),
		Created:        now,
		Modified:       now,
		Name:           fmt.Sprintf("%s Indicator", strings.ToUpper(string(ioc.Type))),
		Pattern:        buildPattern(ioc),
		PatternType:    "stix",
		ValidFrom:      now,
		IndicatorTypes: []string{"malicious-activity"},
	}

	if ioc.RiskScore != nil {
		obj.Confidence = *ioc.RiskScore
	}
	if ioc.OriginalValue != "" {
		obj.Labels = append(obj.Labels, "defanged-source")
	}

	return obj
}

func buildPattern(ioc domain.IOC) string {
	switch ioc.Type {
	case domain.IPv4, domain.DefangedIP:
		return fmt.Sprintf("[ipv4-addr:value = '%s']", ioc.Value)
	case domain.IPv6:
		return fmt.Sprintf("[ipv6-addr:value = '%s']", ioc.Value)
	case domain.CIDR:
		if strings.Contains(ioc.Value, ":") {
			return fmt.Sprintf("[ipv6-addr:value = '%s']", ioc.Value)
		}
		return fmt.Sprintf("[ipv4-addr:value = '%s']", ioc.Value)
	case domain.URL, domain.DefangedURL:
		return fmt.Sprintf("[url:value = '%s']", ioc.Value)
	case domain.MD5:
		return fmt.Sprintf("[file:hashes.'MD5' = '%s']", ioc.Value)
	case domain.SHA1:
		return fmt.Sprintf("[file:hashes.'SHA-1' = '%s']", ioc.Value)
	case domain.SHA256:
		return fmt.Sprintf("[file:hashes.'SHA-256' = '%s']", ioc.Value)
	case domain.SHA512:
		return fmt.Sprintf("[file:hashes.'SHA-512' = '%s']", ioc.Value)
	case domain.Email:
		return fmt.Sprintf("[email-addr:value = '%s']", ioc.Value)
	case domain.Filename:
		return fmt.Sprintf("[file:name = '%s']", ioc.Value)
	default:
		return fmt.Sprintf("[x-custom:value = '%s']", ioc.Value)
	}
}

// STIX 2.1 data structures

type STIXBundle struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	SpecVersion string       `json:"spec_version"`
	Objects     []STIXObject `json:"objects"`
}

type STIXObject struct {
	Type           string   `json:"type"`
	SpecVersion    string   `json:"spec_version"`
	ID             string   `json:"id"`
	Created        string   `json:"created"`
	Modified       string   `json:"modified"`
	Name           string   `json:"name"`
	Pattern        string   `json:"pattern"`
	PatternType    string   `json:"pattern_type"`
	ValidFrom      string   `json:"valid_from"`
	IndicatorTypes []string `json:"indicator_types"`
	Confidence     int      `json:"confidence,omitempty"`
	Labels         []string `json:"labels,omitempty"`
}
