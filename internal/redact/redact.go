// Package redact removes chunks from container files in place. Rules select
// which chunks go; the strip command composes them from CLI flags.
package redact

import (
	"os"

	"github.com/AlekLefebvre/pngme/pkg/png"
)

// Rule reports whether a chunk should be removed.
type Rule func(c *png.Chunk) bool

// Ancillary matches every non-critical chunk.
func Ancillary() Rule {
	return func(c *png.Chunk) bool { return !c.Type().IsCritical() }
}

// ByType matches chunks whose type code is one of codes.
func ByType(codes ...string) Rule {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return func(c *png.Chunk) bool {
		_, ok := set[c.Type().String()]
		return ok
	}
}

// Unregistered matches chunks whose type code is not in the public registry.
func Unregistered() Rule {
	return func(c *png.Chunk) bool { return !png.Registered(c.Type().String()) }
}

// Any combines rules; a chunk matches when any rule matches.
func Any(rules ...Rule) Rule {
	return func(c *png.Chunk) bool {
		for _, r := range rules {
			if r != nil && r(c) {
				return true
			}
		}
		return false
	}
}

// Except exempts the given type codes from rule.
func Except(rule Rule, codes ...string) Rule {
	if len(codes) == 0 {
		return rule
	}
	keep := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		keep[code] = struct{}{}
	}
	return func(c *png.Chunk) bool {
		if _, ok := keep[c.Type().String()]; ok {
			return false
		}
		return rule(c)
	}
}

// Plan parses the container at path and returns the type codes rule would
// remove, in file order, without writing anything.
func Plan(path string, rule Rule) ([]string, error) {
	p, err := load(path)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, c := range p.Chunks() {
		if rule(c) {
			codes = append(codes, c.Type().String())
		}
	}
	return codes, nil
}

// WouldChange reports whether applying rule to the container at path would
// remove at least one chunk.
func WouldChange(path string, rule Rule) (bool, error) {
	codes, err := Plan(path, rule)
	if err != nil {
		return false, err
	}
	return len(codes) > 0, nil
}

// Apply removes matching chunks from the container at path, rewriting the
// file in place with its original permissions. It returns the type codes
// removed, in file order; nil means the file was left untouched.
func Apply(path string, rule Rule) ([]string, error) {
	return ApplyTo(path, path, rule)
}

// ApplyTo is Apply writing the stripped container to out instead of
// rewriting path. When out differs from path and no chunk matches, out is
// still written as a byte-for-byte copy.
func ApplyTo(path, out string, rule Rule) ([]string, error) {
	p, err := load(path)
	if err != nil {
		return nil, err
	}
	var kept []*png.Chunk
	var removed []string
	for _, c := range p.Chunks() {
		if rule(c) {
			removed = append(removed, c.Type().String())
			continue
		}
		kept = append(kept, c)
	}
	if len(removed) == 0 && out == path {
		return nil, nil
	}
	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.WriteFile(out, png.FromChunks(kept).Bytes(), mode); err != nil {
		return nil, err
	}
	return removed, nil
}

func load(path string) (*png.PNG, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return png.ParsePNG(b)
}
