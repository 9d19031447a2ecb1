package validate

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	yaml "gopkg.in/yaml.v3"
)

// LengthBetween returns true if len(s) is within [min,max].
func LengthBetween(s string, min, max int) bool {
	n := len(s)
	return n >= min && n <= max
}

// IsAlphabet returns true if all characters in s are in allowed set.
func IsAlphabet(s, allowed string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(allowed, rune(s[i])) {
			return false
		}
	}
	return true
}

// PrintableRatio returns the fraction of runes in b that are printable
// (including space, tab, newline and carriage return). Invalid UTF-8
// sequences count as non-printable.
func PrintableRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	total, printable := 0, 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		total++
		if r != utf8.RuneError || size > 1 {
			if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
				printable++
			}
		}
		b = b[size:]
	}
	return float64(printable) / float64(total)
}

// MostlyPrintable reports whether b is valid UTF-8 and at least 90%
// printable. This is the test that separates hidden text messages from
// ordinary binary payloads.
func MostlyPrintable(b []byte) bool {
	return len(b) > 0 && utf8.Valid(b) && PrintableRatio(b) >= 0.9
}

// LooksBase64Blob reports whether s is one long base64 token, the shape of
// an encoded message smuggled as text. Short strings do not qualify.
func LooksBase64Blob(s string) bool {
	s = strings.TrimSpace(s)
	if !LengthBetween(s, 24, 1<<20) || strings.ContainsAny(s, " \t\n") {
		return false
	}
	if _, err := base64.StdEncoding.DecodeString(s); err == nil {
		return true
	}
	_, err := base64.RawStdEncoding.DecodeString(s)
	return err == nil
}

// LooksHexBlob reports whether s is one long hex token.
func LooksHexBlob(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 16 || len(s)%2 == 1 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// LooksJSON reports whether s parses as a JSON object or array.
func LooksJSON(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) == 0 || (t[0] != '{' && t[0] != '[') {
		return false
	}
	return json.Valid([]byte(t))
}

// LooksYAML reports whether s parses as a YAML mapping or sequence. Bare
// scalars parse as YAML too, so they do not count.
func LooksYAML(s string) bool {
	t := strings.TrimSpace(s)
	if !strings.Contains(t, ":") && !strings.HasPrefix(t, "- ") {
		return false
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(t), &root); err != nil {
		return false
	}
	if len(root.Content) == 0 {
		return false
	}
	k := root.Content[0].Kind
	return k == yaml.MappingNode || k == yaml.SequenceNode
}

// StructuredKind classifies a text payload as "json", "yaml" or "" for
// plain text. Used to pick a syntax highlighter for previews.
func StructuredKind(s string) string {
	switch {
	case LooksJSON(s):
		return "json"
	case LooksYAML(s):
		return "yaml"
	}
	return ""
}

// ShannonEntropy computes the byte-level entropy of b in bits per byte,
// in [0,8]. High-entropy payloads suggest compressed or encrypted content.
func ShannonEntropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var counts [256]int
	for _, c := range b {
		counts[c]++
	}
	var h float64
	n := float64(len(b))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
