// Package normalize canonicalizes identity fields (phone, email, name) and
// order keys ahead of matching. All functions are pure: they return the
// normalized value or ErrInvalidIdentity, and callers keep records whose
// identity could not be normalized rather than discarding them.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidIdentity marks an identity field that could not be normalized.
// Records carrying one are routed to manual review, never dropped.
var ErrInvalidIdentity = eris.New("invalid identity field")

// DefaultHonorifics are the name prefixes stripped during normalization.
var DefaultHonorifics = []string{"mr", "mrs", "ms", "dr", "shri", "smt", "prof"}

var (
	nonDigitRe   = regexp.MustCompile(`\D`)
	nonLetterRe  = regexp.MustCompile(`[^a-z\s]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// foldDiacritics decomposes accented runes and drops combining marks.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalizer holds the configurable pieces of identity normalization.
type Normalizer struct {
	CountryCode string   // phone prefix stripped when present, e.g. "91"
	Honorifics  []string // name prefixes stripped, lowercase, no dot
}

// Default returns a Normalizer with the stock country code and honorifics.
func Default() Normalizer {
	return Normalizer{CountryCode: "91", Honorifics: DefaultHonorifics}
}

// Phone strips all non-digits, then a leading country code (with or without
// a leading zero) or a bare leading zero, and requires exactly 10 digits.
func (n Normalizer) Phone(raw string) (string, error) {
	digits := nonDigitRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if digits == "" {
		return "", eris.Wrap(ErrInvalidIdentity, "phone: empty")
	}

	cc := n.CountryCode
	switch {
	case cc != "" && len(digits) == 10+len(cc) && strings.HasPrefix(digits, cc):
		digits = digits[len(cc):]
	case cc != "" && len(digits) == 11+len(cc) && strings.HasPrefix(digits, "0"+cc):
		digits = digits[1+len(cc):]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return "", eris.Wrapf(ErrInvalidIdentity, "phone: %d digits after stripping", len(digits))
	}
	return digits, nil
}

// Email lowercases and trims the address. Anything without an "@" fails.
func Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", eris.Wrap(ErrInvalidIdentity, "email: empty")
	}
	if !strings.Contains(email, "@") {
		return "", eris.Wrap(ErrInvalidIdentity, "email: missing @")
	}
	return email, nil
}

// Name lowercases, folds diacritics, strips honorific prefixes, removes
// everything but letters and spaces, and collapses internal whitespace.
func (n Normalizer) Name(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", eris.Wrap(ErrInvalidIdentity, "name: empty")
	}

	if folded, _, err := transform.String(foldDiacritics, name); err == nil {
		name = folded
	}

	honorifics := n.Honorifics
	if honorifics == nil {
		honorifics = DefaultHonorifics
	}
	for _, h := range honorifics {
		for _, prefix := range []string{h + ". ", h + " "} {
			if strings.HasPrefix(name, prefix) {
				name = strings.TrimPrefix(name, prefix)
				break
			}
		}
	}

	name = nonLetterRe.ReplaceAllString(name, "")
	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", eris.Wrap(ErrInvalidIdentity, "name: nothing left after stripping")
	}
	return name, nil
}

// OrderKey strips the presentation prefix ("#") and surrounding whitespace
// from a storefront order identifier. Empty input stays empty.
func OrderKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimPrefix(key, "#")
	return strings.TrimSpace(key)
}
