package game

import (
	mathrand "math/rand"
	"regexp"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Helsinki-Vantaa to Paris CDG is roughly 1,900 km.
	d := HaversineKm(60.3172, 24.9633, 49.0097, 2.5479)
	if d < 1800 || d > 2000 {
		t.Fatalf("EFHK-LFPG distance %f out of range", d)
	}

	if d := HaversineKm(51.47, -0.4543, 51.47, -0.4543); d != 0 {
		t.Fatalf("zero distance expected, got %f", d)
	}

	// Antipodal points sit near half the circumference.
	d = HaversineKm(0, 0, 0, 180)
	if d < 19000 || d > 21000 {
		t.Fatalf("antipodal distance %f out of range", d)
	}
}

func TestTierHelpers(t *testing.T) {
	if got := tierIndex("SMALL"); got != 0 {
		t.Fatalf("tierIndex(SMALL)=%d", got)
	}
	if got := tierIndex("huge"); got != 3 {
		t.Fatalf("tierIndex(huge)=%d", got)
	}
	if got := tierIndex("BOGUS"); got != -1 {
		t.Fatalf("tierIndex(BOGUS)=%d", got)
	}

	next, err := nextTier("SMALL")
	if err != nil || next != "MEDIUM" {
		t.Fatalf("nextTier(SMALL)=%q err=%v", next, err)
	}
	if _, err := nextTier("HUGE"); err != ErrBaseMaxTier {
		t.Fatalf("expected ErrBaseMaxTier, got %v", err)
	}
}

func TestCategoryAllowed(t *testing.T) {
	tests := []struct {
		category string
		maxTier  string
		want     bool
	}{
		{"SMALL", "SMALL", true},
		{"MEDIUM", "SMALL", false},
		{"MEDIUM", "MEDIUM", true},
		{"LARGE", "HUGE", true},
		{"HUGE", "LARGE", false},
		{"STARTER", "HUGE", false},
		{"BOGUS", "HUGE", false},
	}
	for _, tc := range tests {
		if got := categoryAllowed(tc.category, tc.maxTier); got != tc.want {
			t.Fatalf("categoryAllowed(%s, %s)=%v want %v", tc.category, tc.maxTier, got, tc.want)
		}
	}
}

func TestBestTier(t *testing.T) {
	if got := bestTier(nil); got != "SMALL" {
		t.Fatalf("bestTier(nil)=%q", got)
	}
	if got := bestTier([]string{"SMALL", "LARGE", "MEDIUM"}); got != "LARGE" {
		t.Fatalf("bestTier=%q", got)
	}
}

func TestRegistrationFormat(t *testing.T) {
	r := mathrand.New(mathrand.NewSource(1))
	pattern := regexp.MustCompile(`^666-[A-Z]{2}[0-9]{2}$`)
	for i := 0; i < 20; i++ {
		reg := registration("666", r)
		if !pattern.MatchString(reg) {
			t.Fatalf("registration %q does not match pattern", reg)
		}
	}
}
