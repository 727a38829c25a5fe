// Package version provides version metadata for the filter pipeline module.
package version

import "fmt"

const (
	// Name of this module.
	Name string = "filterpipe"
	// Version of this module.
	Version string = "1.0.0"
	// FilterABI is the filter-template ABI version: bumped whenever the
	// Kind interface in package filter gains or loses a method.
	FilterABI string = "1"
)

// String returns a plain text representation of the version information.
func String() string {
	return fmt.Sprintf("%s %s (filter ABI %s)", Name, Version, FilterABI)
}
