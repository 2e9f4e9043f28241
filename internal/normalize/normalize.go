// Package normalize holds the fingerprinting and fuzzy-matching helpers shared
// by the source adapters, QA stage and career builder.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// HashLen is the length of hex fingerprints.
const HashLen = 32

// trackingParams are stripped from canonical URLs.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"ref":          true,
	"ref_src":      true,
	"si":           true,
	"feature":      true,
}

var folder = cases.Fold()

// CanonicalURL lowercases scheme and host, drops www., fragments, default
// ports, trailing slashes and tracking parameters, and sorts the query.
// Unparseable input is returned trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = host + ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if trackingParams[strings.ToLower(k)] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clean := url.Values{}
	for _, k := range keys {
		clean[k] = q[k]
	}
	u.RawQuery = clean.Encode()

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// URLHash fingerprints the canonical form of raw.
func URLHash(raw string) string {
	return shortHash(CanonicalURL(raw))
}

// ContentHash fingerprints the normalized title and text.
func ContentHash(title, text string) string {
	return shortHash(Fold(title) + "\n" + Fold(text))
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// Fold applies NFKC, case folding and whitespace collapsing.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Name folds s and replaces punctuation and symbols with spaces.
func Name(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Compact is Name with all whitespace removed, so "Open AI" and "OpenAI"
// share a key.
func Compact(s string) string {
	return strings.ReplaceAll(Name(s), " ", "")
}

// Tokens returns the distinct tokens of Name(s). Han characters are split
// into single-rune tokens since CJK text has no word separators.
func Tokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, field := range strings.Fields(Name(s)) {
		if !HasCJK(field) {
			add(field)
			continue
		}
		var latin strings.Builder
		for _, r := range field {
			if isCJK(r) {
				add(latin.String())
				latin.Reset()
				add(string(r))
				continue
			}
			latin.WriteRune(r)
		}
		add(latin.String())
	}
	return out
}

// TokenOverlap is the number of shared tokens divided by the token count of
// the shorter input. It is 0 when either side has no tokens.
func TokenOverlap(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	shared := 0
	for _, t := range ta {
		if set[t] {
			shared++
		}
	}
	shorter := len(ta)
	if len(tb) < shorter {
		shorter = len(tb)
	}
	return float64(shared) / float64(shorter)
}

// Similar reports whether two names refer to the same thing: equal compact
// forms, or token overlap at or above threshold.
func Similar(a, b string, threshold float64) bool {
	ca, cb := Compact(a), Compact(b)
	if ca == "" || cb == "" {
		return false
	}
	if ca == cb {
		return true
	}
	return TokenOverlap(a, b) >= threshold
}

// ContainsFold reports whether needle occurs in haystack after folding both.
func ContainsFold(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}

// HasCJK reports whether s contains any Han, Hiragana, Katakana or Hangul rune.
func HasCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Domain returns the lowercase host of raw without www.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
