package metadata

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases s, strips diacritics and joins the remaining ASCII
// letters and digits with single dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}

// Capitalize upper-cases the first letter of every word.
func Capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

var bracketPairs = map[rune]rune{'[': ']', '(': ')', '{': '}'}

// ParseFilename strips release decorations such as "[Circle (Artist)]" or
// "(Event)" from both ends of a file name and returns what is left.
func ParseFilename(name string) string {
	s := strings.TrimSpace(name)
	for {
		trimmed := trimLeadingGroup(s)
		trimmed = trimTrailingGroup(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if s == "" {
		return strings.TrimSpace(name)
	}
	return s
}

func trimLeadingGroup(s string) string {
	if s == "" {
		return s
	}
	closing, ok := bracketPairs[rune(s[0])]
	if !ok {
		return s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case rune(s[0]):
			depth++
		case closing:
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[i+1:])
			}
		}
	}
	return s
}

func trimTrailingGroup(s string) string {
	if s == "" {
		return s
	}
	var opening rune
	last := rune(s[len(s)-1])
	for o, c := range bracketPairs {
		if c == last {
			opening = o
		}
	}
	if opening == 0 {
		return s
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch rune(s[i]) {
		case last:
			depth++
		case opening:
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return s
}

var knownSources = map[string]string{
	"e-hentai.org":  "E-Hentai",
	"exhentai.org":  "ExHentai",
	"nhentai.net":   "nhentai",
	"fakku.net":     "FAKKU",
	"irodoricomics": "Irodori Comics",
}

// SourceName derives a display name for a source URL from its host.
func SourceName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if name, ok := knownSources[host]; ok {
		return name
	}
	label := host
	if i := strings.Index(host, "."); i > 0 {
		label = host[:i]
	}
	if name, ok := knownSources[label]; ok {
		return name
	}
	return Capitalize(label)
}
