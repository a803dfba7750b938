package domain

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

type IOCType string

const (
	CIDR        IOCType = "CIDR"
	DefangedIP  IOCType = "Defanged-IP"
	IPv4        IOCType = "IPv4"
	IPv6        IOCType = "IPv6"
	MD5         IOCType = "MD5"
	SHA1        IOCType = "SHA1"
	SHA256      IOCType = "SHA256"
	SHA512      IOCType = "SHA512"
	Email       IOCType = "Email"
	DefangedURL IOCType = "Defanged-URL"
	URL         IOCType = "URL"
	Filename    IOCType = "Filename"
)

// AllIOCTypes lists every type the scanner can emit, in evaluation order.
// Detection precedence depends on this exact ordering (see registry.go).
var AllIOCTypes = []IOCType{
	CIDR, DefangedIP, IPv4, IPv6,
	MD5, SHA1, SHA256, SHA512,
	Email, DefangedURL, URL, Filename,
}

// IsValid checks if the IOC type is one the scanner knows about.
func (t IOCType) IsValid() bool {
	for _, valid := range AllIOCTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// IOC is one extracted indicator. Value is the canonical form and the dedup
// key within a scan. OriginalValue is set only when a de-fanged detector
// matched and the as-found text differs from the canonical form.
//
// The risk fields are never populated by the scanner itself; an external
// risk-analysis collaborator fills them in after the fact.
type IOC struct {
	ID            string  `json:"id"`
	Type          IOCType `json:"type"`
	Value         string  `json:"value"`
	OriginalValue string  `json:"originalValue,omitempty"`

	RiskScore          *int   `json:"riskScore,omitempty"`
	RiskLevel          string `json:"riskLevel,omitempty"`
	RiskExplanation    string `json:"riskExplanation,omitempty"`
	ThreatIntelligence string `json:"threatIntelligence,omitempty"`
}

// newRecordID synthesizes an opaque record identifier from the type, a
// digest of the value, the generation time, and a random component.
// IDs are unique within one scan's output; callers must not rely on
// stability across scans.
func newRecordID(t IOCType, value string) string {
	h := fnv.New32a()
	h.Write([]byte(value))
	return fmt.Sprintf("%s-%08x-%d-%s", t, h.Sum32(), time.Now().UnixMilli(), uuid.NewString()[:8])
}
