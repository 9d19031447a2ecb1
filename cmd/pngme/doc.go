// Package pngme provides the command-line interface for the pngme tool.
// It configures subcommands (encode, decode, scan, strip, etc.), parses
// flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/AlekLefebvre/pngme/cmd/pngme"
//	func main() { pngme.Execute() }
package pngme
