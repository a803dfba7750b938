package domain

import (
	"strings"
	"testing"
)

func TestDetect_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if got := Detect(input); len(got) != 0 {
			t.Errorf("Detect(%q) = %d records, want 0", input, len(got))
		}
	}
}

func TestDetect_ThreatReportScenario(t *testing.T) {
	text := "Contact admin@example.com, C2 at hxxp://bad[.]example[.]com/payload.exe, and 8.8.8.8/32"

	records := Detect(text)
	if len(records) != 3 {
		t.Fatalf("expected exactly 3 records, got %d: %+v", len(records), records)
	}

	// Grouped by type in registry order: CIDR, Email, Defanged-URL.
	if records[0].Type != CIDR || records[0].Value != "8.8.8.8/32" {
		t.Errorf("record 0: got %s %q, want CIDR 8.8.8.8/32", records[0].Type, records[0].Value)
	}
	if records[1].Type != Email || records[1].Value != "admin@example.com" {
		t.Errorf("record 1: got %s %q, want Email admin@example.com", records[1].Type, records[1].Value)
	}
	if records[2].Type != DefangedURL {
		t.Errorf("record 2: got type %s, want Defanged-URL", records[2].Type)
	}
	if records[2].Value != "http://bad.example.com/payload.exe" {
		t.Errorf("record 2 value = %q, want canonical URL", records[2].Value)
	}
	if records[2].OriginalValue != "hxxp://bad[.]example[.]com/payload.exe" {
		t.Errorf("record 2 originalValue = %q, want raw de-fanged form", records[2].OriginalValue)
	}

	for _, r := range records {
		if r.Value == "8.8.8.8" {
			t.Error("CIDR address part must not be re-emitted as bare IPv4")
		}
		if r.Value == "bad.example.com" {
			t.Error("de-fanged host must not be re-emitted as bare URL/host")
		}
	}
}

func TestDetect_CIDRSuppressesAddressPart(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"adjacent", "block 10.0.0.0/8"},
		{"address repeated separately", "block 10.0.0.0/8 and host 10.0.0.0"},
		{"full prefix", "203.0.113.7/32"},
		{"zero prefix", "0.0.0.0/0 plus 0.0.0.0 again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Detect(tt.text)
			var cidrs, ips int
			for _, r := range records {
				switch r.Type {
				case CIDR:
					cidrs++
				case IPv4:
					ips++
				}
			}
			if cidrs != 1 {
				t.Errorf("got %d CIDR records, want 1", cidrs)
			}
			if ips != 0 {
				t.Errorf("got %d IPv4 records, want 0 (contained in CIDR)", ips)
			}
		})
	}
}

func TestDetect_DefangedIPVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"192.168.1[.]1", "192.168.1.1"},
		{"10(.)0(.)0(.)5", "10.0.0.5"},
		{"172[dot]16[dot]0[dot]9", "172.16.0.9"},
		{"8(dot)8(dot)4(dot)4", "8.8.4.4"},
		{"1[ . ]2[ . ]3[ . ]4", "1.2.3.4"},
		{"203[DOT]0[DOT]113[DOT]80", "203.0.113.80"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			records := Detect("callback to " + tt.raw + " observed")
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1: %+v", len(records), records)
			}
			r := records[0]
			if r.Type != DefangedIP {
				t.Errorf("type = %s, want Defanged-IP", r.Type)
			}
			if r.Value != tt.want {
				t.Errorf("value = %q, want %q", r.Value, tt.want)
			}
			if r.OriginalValue != tt.raw {
				t.Errorf("originalValue = %q, want %q", r.OriginalValue, tt.raw)
			}
		})
	}
}

func TestDetect_PlainIPNotClassifiedAsDefanged(t *testing.T) {
	records := Detect("server at 198.51.100.23 responded")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Type != IPv4 {
		t.Errorf("type = %s, want IPv4", records[0].Type)
	}
	if records[0].OriginalValue != "" {
		t.Errorf("originalValue = %q, want empty for non-defanged match", records[0].OriginalValue)
	}
}

func TestDetect_DefangedFormSuppressesPlainDuplicate(t *testing.T) {
	// The canonical form of a de-fanged IOC appearing elsewhere in the text
	// must not produce a second record.
	text := "seen as 192.168.1[.]1 and later plain 192.168.1.1"
	records := Detect(text)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	if records[0].Type != DefangedIP {
		t.Errorf("type = %s, want Defanged-IP", records[0].Type)
	}
}

func TestDetect_HashWordBoundaries(t *testing.T) {
	sha512 := strings.Repeat("ab", 64)  // 128 hex chars
	sha256 := strings.Repeat("cd", 32)  // 64 hex chars
	text := "full dump " + sha512 + " and config " + sha256

	records := Detect(text)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}

	byType := map[IOCType]string{}
	for _, r := range records {
		byType[r.Type] = r.Value
	}
	if byType[SHA512] != sha512 {
		t.Errorf("SHA512 = %q, want the full 128-char run", byType[SHA512])
	}
	if byType[SHA256] != sha256 {
		t.Errorf("SHA256 = %q, want the independent 64-char token", byType[SHA256])
	}
	if _, ok := byType[MD5]; ok {
		t.Error("no MD5 record expected: 32-char runs inside longer tokens are not word-bounded")
	}
}

func TestDetect_HashTypes(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want IOCType
	}{
		{"md5", strings.Repeat("0f", 16), MD5},
		{"sha1", strings.Repeat("1e", 20), SHA1},
		{"sha256", strings.Repeat("2d", 32), SHA256},
		{"sha512", strings.Repeat("3c", 64), SHA512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Detect("sample hash: " + tt.hash)
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if records[0].Type != tt.want {
				t.Errorf("type = %s, want %s", records[0].Type, tt.want)
			}
		})
	}
}

func TestDetect_Filenames(t *testing.T) {
	records := Detect("attached invoice.pdf and readme.nosuchext for review")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	if records[0].Type != Filename || records[0].Value != "invoice.pdf" {
		t.Errorf("got %s %q, want Filename invoice.pdf", records[0].Type, records[0].Value)
	}
}

func TestDetect_FilenameInsideURLNotDuplicated(t *testing.T) {
	records := Detect("payload at https://evil.example/stage2/payload.exe now")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	if records[0].Type != URL {
		t.Errorf("type = %s, want URL", records[0].Type)
	}
}

func TestDetect_DefangedURLWithStandardScheme(t *testing.T) {
	text := "beacon to https://c2[.]evil[.]net/gate.php"
	records := Detect(text)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	r := records[0]
	if r.Type != DefangedURL {
		t.Errorf("type = %s, want Defanged-URL", r.Type)
	}
	if r.Value != "https://c2.evil.net/gate.php" {
		t.Errorf("value = %q", r.Value)
	}
	if r.OriginalValue != "https://c2[.]evil[.]net/gate.php" {
		t.Errorf("originalValue = %q", r.OriginalValue)
	}
}

func TestDetect_ValueUniqueness(t *testing.T) {
	text := strings.Repeat("hit from 203.0.113.9 and mail evil@bad.example ", 5)
	records := Detect(text)

	seen := map[string]bool{}
	for _, r := range records {
		if seen[r.Value] {
			t.Errorf("duplicate value %q in one scan's output", r.Value)
		}
		seen[r.Value] = true
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestDetect_IDUniqueWithinScan(t *testing.T) {
	records := Detect("10.1.1.1 10.1.1.2 10.1.1.3 a@b.example c@d.example")
	ids := map[string]bool{}
	for _, r := range records {
		if r.ID == "" {
			t.Error("record with empty id")
		}
		if ids[r.ID] {
			t.Errorf("duplicate id %q", r.ID)
		}
		ids[r.ID] = true
	}
}

func TestDetect_OutputGroupedByTypeInRegistryOrder(t *testing.T) {
	text := "file dropper.exe from hxxp://x[.]test/a reached 10.9.8.7 and 10.0.0.0/24, hash " +
		strings.Repeat("9a", 16)

	records := Detect(text)

	rank := map[IOCType]int{}
	for i, typ := range AllIOCTypes {
		rank[typ] = i
	}
	last := -1
	for _, r := range records {
		if rank[r.Type] < last {
			t.Fatalf("records not grouped in registry order: %+v", records)
		}
		last = rank[r.Type]
	}
}

func TestDetect_IPv6(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"full", "src 2001:0db8:85a3:0000:0000:8a2e:0370:7334 seen", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"compressed", "ping 2001:db8::1 now", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Detect(tt.text)
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1: %+v", len(records), records)
			}
			if records[0].Type != IPv6 || records[0].Value != tt.want {
				t.Errorf("got %s %q, want IPv6 %q", records[0].Type, records[0].Value, tt.want)
			}
		})
	}
}

func TestDetect_IPv6CIDR(t *testing.T) {
	records := Detect("range 2001:db8::/32 announced")
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	if records[0].Type != CIDR || records[0].Value != "2001:db8::/32" {
		t.Errorf("got %s %q, want CIDR 2001:db8::/32", records[0].Type, records[0].Value)
	}
}

func TestDetect_NoiseFilter(t *testing.T) {
	// Matches of length <= 2 are dropped; "::" alone is a valid IPv6 form
	// but pure noise in free text.
	if records := Detect("x :: y"); len(records) != 0 {
		t.Errorf("got %+v, want no records for bare ::", records)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	text := "1.2.3.4, hxxps://a[.]b/c, admin@corp.example, malware.zip"
	a := Detect(text)
	b := Detect(text)
	if len(a) != len(b) {
		t.Fatalf("record counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Value != b[i].Value || a[i].OriginalValue != b[i].OriginalValue {
			t.Errorf("record %d differs between scans: %+v vs %+v", i, a[i], b[i])
		}
	}
}
