package domain

import (
	"math"
	"net/url"
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var difficulties = map[string]struct{}{
	"easy":         {},
	"medium":       {},
	"hard":         {},
	"beginner":     {},
	"intermediate": {},
	"advanced":     {},
}

// NormalizeAddress validates a wallet address and lowercases it. Addresses
// are case-insensitive on input and stored lowercased.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(address), nil
}

// ValidateDisplayName enforces the 3-30 character bound.
func ValidateDisplayName(name string) error {
	if n := len([]rune(name)); n < 3 || n > 30 {
		return ErrInvalidName
	}
	return nil
}

// ValidateImageURL accepts absolute http(s) URLs. The reference is optional;
// callers skip validation for the empty string.
func ValidateImageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidImageURL
	}
	return nil
}

// NormalizeDifficulty lowercases and checks against the known set.
func NormalizeDifficulty(difficulty string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(difficulty))
	if _, ok := difficulties[d]; !ok {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}

// ValidateScore checks 0 <= raw <= max with max > 0.
func ValidateScore(raw, max int) error {
	if max <= 0 || raw < 0 || raw > max {
		return ErrInvalidScore
	}
	return nil
}

// Percentage computes raw/max*100 rounded to two decimals. It is stored at
// write time and never recomputed on read.
func Percentage(raw, max int) float64 {
	return math.Round(float64(raw)/float64(max)*100*100) / 100
}
