// errors.go - Typisierte Fehler der Legalisierung
// Enthaelt: UnsupportedLayoutError, UnsupportedAttributeError.
package ethosu

import "fmt"

// UnsupportedLayoutError reports a tensor layout outside the accepted
// set of an operator. It aborts the whole legalization run.
type UnsupportedLayoutError struct {
	Layout string
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("ethosu: unsupported tensor layout %q", e.Layout)
}

// UnsupportedAttributeError reports an attribute value outside an
// operator's accepted map, e.g. an activation with no hardware
// counterpart. This is a contract violation by the caller, not a
// recoverable condition.
type UnsupportedAttributeError struct {
	Op        string
	Attribute string
}

func (e *UnsupportedAttributeError) Error() string {
	return fmt.Sprintf("ethosu: operator %s does not accept %s", e.Op, e.Attribute)
}
