package security

import (
	"strings"
	"testing"
	"time"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// detectWithin fails the test if scanning takes longer than the given
// budget. Pattern matching must stay linear even on hostile input.
func detectWithin(t *testing.T, text string, budget time.Duration) []domain.IOC {
	t.Helper()

	done := make(chan []domain.IOC, 1)
	go func() {
		done <- domain.Detect(text)
	}()

	select {
	case iocs := <-done:
		return iocs
	case <-time.After(budget):
		t.Fatalf("Detect did not finish within %v on %d bytes of input", budget, len(text))
		return nil
	}
}

func TestAdversarial_LongHexRun(t *testing.T) {
	// A single unbroken hex run must not be claimed as thousands of
	// overlapping hashes.
	text := strings.Repeat("a1b2c3d4", 4096)

	iocs := detectWithin(t, text, 5*time.Second)

	for _, ioc := range iocs {
		switch ioc.Type {
		case domain.MD5, domain.SHA1, domain.SHA256, domain.SHA512:
			t.Errorf("Hex run without word boundaries produced a %s record: %q", ioc.Type, ioc.Value)
		}
	}
}

func TestAdversarial_LongDigitDotRun(t *testing.T) {
	text := strings.Repeat("1.", 100000) + "1"

	detectWithin(t, text, 5*time.Second)
}

func TestAdversarial_MarkerFlood(t *testing.T) {
	// Thousands of de-fang markers with no surrounding indicator.
	text := strings.Repeat("[.]", 50000)

	iocs := detectWithin(t, text, 5*time.Second)

	if len(iocs) != 0 {
		t.Errorf("Marker flood should yield no records, got %d", len(iocs))
	}
}

func TestAdversarial_NestedBracketsAndParens(t *testing.T) {
	text := strings.Repeat("[(", 50000) + "1.2.3.4" + strings.Repeat(")]", 50000)

	iocs := detectWithin(t, text, 5*time.Second)

	found := false
	for _, ioc := range iocs {
		if ioc.Type == domain.IPv4 && ioc.Value == "1.2.3.4" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the embedded IPv4 to survive bracket noise")
	}
}

func TestAdversarial_HugeMixedDocument(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteString("Contact c2 at hxxp://evil[.]example/gate.php or 10.99.0.1, ")
		sb.WriteString("hash 44d88612fea8a8f36de82e1278abb02f, mail ops@evil.example.\n")
	}

	iocs := detectWithin(t, sb.String(), 10*time.Second)

	// Deduplication must collapse the repeats to one record per value.
	seen := map[string]int{}
	for _, ioc := range iocs {
		seen[ioc.Value]++
	}
	for value, n := range seen {
		if n > 1 {
			t.Errorf("Value %q appears %d times", value, n)
		}
	}
}

func TestAdversarial_NullBytesAndControlChars(t *testing.T) {
	text := "before\x00\x01\x02 8.8.8.8 \x7fafter"

	iocs := detectWithin(t, text, 5*time.Second)

	found := false
	for _, ioc := range iocs {
		if ioc.Value == "8.8.8.8" {
			found = true
		}
	}
	if !found {
		t.Error("Control characters should not block detection of adjacent indicators")
	}
}

func TestAdversarial_DeterministicUnderRepetition(t *testing.T) {
	text := strings.Repeat("hxxp://a[.]b/x 1.2.3.4/16 deadbeef ", 500)

	first := detectWithin(t, text, 5*time.Second)
	for i := 0; i < 5; i++ {
		again := detectWithin(t, text, 5*time.Second)
		if len(again) != len(first) {
			t.Fatalf("Run %d produced %d records, first run produced %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Type != first[j].Type || again[j].Value != first[j].Value {
				t.Fatalf("Run %d diverged at record %d", i, j)
			}
		}
	}
}

func TestAdversarial_ValidateHostileInputs(t *testing.T) {
	hostile := []string{
		strings.Repeat("9", 1 << 16),
		strings.Repeat("a@", 10000),
		strings.Repeat(":", 10000),
		"http://" + strings.Repeat("a.", 10000) + "com",
	}

	for _, value := range hostile {
		for _, iocType := range domain.AllIOCTypes {
			start := time.Now()
			domain.Validate(value, iocType)
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Errorf("Validate(%d bytes, %s) took %v", len(value), iocType, elapsed)
			}
		}
	}
}
