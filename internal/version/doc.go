// Package version parses firmware version strings.
//
// The parser is deliberately permissive: it reads a leading
// "major.minor[.patch]" prefix and ignores whatever follows it. Only a
// missing "." after the major digits (or an empty string) is rejected.
// Each component is stored in 8 bits and saturates at 255.
package version
