// Package engine contains the core scanning logic for pngme. It traverses
// target files, applies chunk-structure rules, and returns structured
// findings. This package is internal; external consumers should use the
// stable facade in pkg/scan.
package engine
