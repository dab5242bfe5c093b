package position

import "errors"

var (
	// ErrWrongDirection is returned when a reduce/flip call's delta does not
	// oppose the position's current side (spec.md §4.4).
	ErrWrongDirection = errors.New("position: invariant_violation, expected opposing side")
	// ErrOverClose is returned when a reduce call's magnitude exceeds the
	// open quantity (spec.md §4.4: "flip" should have been called instead).
	ErrOverClose = errors.New("position: invariant_violation, reduce exceeds open quantity")
	// ErrUnderClose is returned when a flip call's magnitude does not
	// actually exceed the open quantity (spec.md §4.4: "reduce" applies).
	ErrUnderClose = errors.New("position: invariant_violation, flip does not exceed open quantity")
)
