// Package version provides numeric version parsing, comparison, and the
// constraint expressions recipes use to declare the engine releases they
// support (required_engine_version).
//
// Package versions inside recipe references are opaque strings matched
// exactly; this package is only used where an ordering is needed.
//
// # Usage
//
// Parse a version string:
//
//	v, err := version.ParseVersion("v1.53.0")
//	if err != nil {
//	    // Handle error
//	}
//	fmt.Println(v.String()) // Output: 1.53.0
//
// Check a constraint:
//
//	c, err := version.ParseConstraint(">=1.53.0, <3")
//	if err != nil {
//	    // Handle error
//	}
//	ok := c.Check(version.MustParseVersion("2.0.1")) // true
//
// A version with lower precision acts as a wildcard for missing components
// when compared, so "<3" admits every 2.x release.
package version
