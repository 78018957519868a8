package retrieval

import "testing"

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MachineLearning", "machine_learning"},
		{"complex systems", "complex_systems"},
		{"Complex-Systems", "complex_systems"},
		{"  quantum   physics  ", "quantum_physics"},
		{"neuro__science", "neuro_science"},
		{"_biology_", "biology"},
		{"Game Theory!", "game_theory"},
		{"quantum\tmechanics", "quantum_mechanics"},
		{"signal\nprocessing", "signal_processing"},
		{"Signal Processing", "signal_processing"},
		{"", ""},
	}

	for _, tc := range cases {
		got := NormalizeDomain(tc.in)
		if got != tc.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDomainIdempotent(t *testing.T) {
	inputs := []string{"MachineLearning", "complex systems", "Thermo-Dynamics", "a  b  c"}
	for _, in := range inputs {
		once := NormalizeDomain(in)
		twice := NormalizeDomain(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestMatchDomain(t *testing.T) {
	known := []string{"biology", "complex_systems", "machine_learning", "physics"}

	cases := []struct {
		in   string
		want string
	}{
		{"physics", "physics"},                    // exact
		{"MachineLearning", "machine_learning"},   // normalized equality
		{"complex", "complex_systems"},            // input contained in known
		{"machine_learning_theory", "machine_learning"}, // known contained in input
		{"astrology", "astrology"},                // pass-through normalized
		{"Astro Physics", "astro_physics"},        // pass-through keeps normalization
	}

	for _, tc := range cases {
		got := MatchDomain(tc.in, known)
		if got != tc.want {
			t.Errorf("MatchDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchDomainFirstWins(t *testing.T) {
	// Both known domains contain "bio"; the earlier one must win.
	known := []string{"biology", "biochemistry"}
	if got := MatchDomain("bio", known); got != "biology" {
		t.Errorf("MatchDomain substring tie = %q, want biology", got)
	}
}
