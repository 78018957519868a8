package retrieval

import (
	"strings"
	"unicode"
)

// NormalizeDomain canonicalizes a free-form domain name to lowercase
// snake_case. The function is idempotent: normalizing an already-normalized
// name returns it unchanged.
func NormalizeDomain(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 4)

	runes := []rune(raw)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	spaced := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return '_'
		}
		return r
	}, b.String())

	var cleaned strings.Builder
	cleaned.Grow(len(spaced))
	for _, r := range spaced {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			cleaned.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			cleaned.WriteRune(unicode.ToLower(r))
		}
	}

	parts := strings.FieldsFunc(cleaned.String(), func(r rune) bool { return r == '_' })
	return strings.Join(parts, "_")
}

// MatchDomain resolves a raw domain name against the known domain list.
// Preference order: exact match, normalized equality, substring containment
// in either direction. When nothing matches, the normalized input is
// returned so downstream filters stay consistent. Known domains are scanned
// in the order given; the first hit wins.
func MatchDomain(raw string, known []string) string {
	for _, k := range known {
		if raw == k {
			return k
		}
	}

	norm := NormalizeDomain(raw)
	for _, k := range known {
		if norm == NormalizeDomain(k) {
			return k
		}
	}

	for _, k := range known {
		nk := NormalizeDomain(k)
		if nk == "" || norm == "" {
			continue
		}
		if strings.Contains(nk, norm) || strings.Contains(norm, nk) {
			return k
		}
	}

	return norm
}
