// Package vpath builds and splits virtual paths: the "::"-delimited chains
// that name entries inside archives, image layers, and other nested
// artifacts (e.g. "image.tar::sha256:abc/etc/logo.png").
package vpath

import "strings"

// Separator delimits components in virtual paths.
const Separator = "::"

// Parse splits a virtual path into its components.
// Example: "outer.zip::inner.tar::logo.png" -> ["outer.zip", "inner.tar", "logo.png"]
func Parse(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Build constructs a virtual path from components.
// Example: Build("image.tar", "layer-abc", "etc/logo.png") -> "image.tar::layer-abc::etc/logo.png"
func Build(components ...string) string {
	return strings.Join(components, Separator)
}

// Join appends one component to an existing chain.
func Join(parent, child string) string {
	return parent + Separator + child
}

// IsVirtual reports whether path contains virtual path separators.
func IsVirtual(path string) bool {
	return strings.Contains(path, Separator)
}

// Root extracts the on-disk artifact from a virtual path.
// Example: "image.tar::layer-abc::etc/logo.png" -> "image.tar"
func Root(path string) string {
	parts := Parse(path)
	if len(parts) > 0 {
		return parts[0]
	}
	return path
}

// Depth returns the nesting depth of a virtual path.
// Example: "image.tar::layer-abc::etc/logo.png" -> 3
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return len(Parse(path))
}
