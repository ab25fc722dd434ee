// Package writers renders propagated tracks and element reports in the
// supported output formats. Formats are looked up by name in registries
// filled from init blocks, so callers never switch on format strings.
package writers
