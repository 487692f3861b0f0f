package model

import "fmt"

// ReferentialIntegrityError marks a record whose parent key does not
// exist at load time. Fatal to that record, not to the batch.
type ReferentialIntegrityError struct {
	Entity string
	Key    string
	Parent string
	Ref    string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %q references missing %s %q", e.Entity, e.Key, e.Parent, e.Ref)
}

// ValidationError marks a record with a malformed or out-of-range
// field. Fatal to that record; fatal to the batch only in strict mode.
type ValidationError struct {
	Entity string
	Key    string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: invalid %s: %s", e.Entity, e.Key, e.Field, e.Reason)
}
