// Package scan provides a small, stable facade over pngme's internal engine
// for external integrations. It deliberately re-exports a narrow API surface
// to allow CI pipelines and third-party tools to depend on a stable import
// path without exposing internal implementation packages.
//
// Example:
//
//	cfg := scan.Config{Root: ".", Threads: 0}
//	findings, err := scan.Scan(cfg)
//	if err != nil { /* handle */ }
//	_ = scan.MarshalFindings(os.Stdout, findings)
package scan
