package domain

import "strings"

// Detect scans text for indicators of compromise and returns typed,
// deduplicated records. Detectors run in registry order, so more specific
// types (CIDR, de-fanged forms) claim their values before the general ones
// (bare IPs, plain URLs) get a chance to re-capture them. Output is grouped
// by type in registry order; within a type, records keep the left-to-right
// order of first occurrence.
//
// Detect never fails: malformed or adversarial input just yields fewer or no
// matches. It is a pure function with no shared state, safe to call
// concurrently.
func Detect(text string) []IOC {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Values already emitted in this scan, in both canonical and as-matched
	// form. Claiming the raw form too means a later unrelated match equal to
	// an earlier raw (pre-normalization) match is dropped as well; that
	// matches the long-standing behavior callers depend on.
	claimed := make(map[string]struct{})

	var records []IOC
	for _, d := range Registry {
		for _, match := range d.findMatches(text) {
			match = strings.TrimSpace(match)
			if d.Type == URL || d.Type == DefangedURL {
				// Sentence punctuation that the terminator set lets
				// through is not part of the indicator.
				match = strings.TrimRight(match, ",.;:!?'\"")
			}
			if len(match) <= 2 {
				continue
			}

			// An address inside an already-found CIDR is not re-reported
			// as a bare IP.
			if (d.Type == IPv4 || d.Type == IPv6) && claimedCIDRContains(claimed, match) {
				continue
			}

			value := normalize(d.Type, match)
			if _, ok := claimed[value]; ok {
				continue
			}
			if _, ok := claimed[match]; ok {
				continue
			}

			rec := IOC{
				ID:    newRecordID(d.Type, value),
				Type:  d.Type,
				Value: value,
			}
			if value != match {
				rec.OriginalValue = match
			}

			claimed[value] = struct{}{}
			claimed[match] = struct{}{}
			records = append(records, rec)
		}
	}

	return records
}

// claimedCIDRContains reports whether some already-claimed value is a CIDR
// whose address part equals ip.
func claimedCIDRContains(claimed map[string]struct{}, ip string) bool {
	for v := range claimed {
		i := strings.IndexByte(v, '/')
		if i <= 0 {
			continue
		}
		if v[:i] == ip && Validate(v, CIDR) {
			return true
		}
	}
	return false
}
