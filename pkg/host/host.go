// Package host defines the capability set the compiler pipeline calls back
// into, grounded on the teacher's explicit-capability-passing pattern
// (pkg/functions/registry.go's Caller interface) rather than any global or
// ambient state (SPEC_FULL §9: "no global state... pass explicitly").
package host

import "github.com/cncflow/gflow/pkg/types"

// Callbacks is the six-function capability set spec.md §6 describes: the
// queue invokes M112, the evaluator invokes Lookup/Serialize/Error, and the
// pipeline's ExecNext invokes Exec/Error. Nothing in the core invokes Fatal.
// Any field left nil is simply not called — callers wire only what they need.
type Callbacks struct {
	// Lookup resolves a name against the host environment. parent carries
	// the value already resolved for a chained `.`/`[]` access, or the zero
	// Value at the root of a lookup chain. ok=false means "name not found",
	// which the evaluator turns into an ErrUnknownParameter.
	Lookup func(key string, parent types.Value) (value types.Value, ok bool)

	// Serialize renders a Dict value to the field string the evaluator
	// inserts in place of a bare dictionary reference.
	Serialize func(d types.Value) string

	// Exec delivers one flattened command to the host. Returning false
	// rejects the command: ExecNext then reports an ErrHostExecRejected
	// error result for that statement instead of a command result.
	Exec func(command string, fields []string) bool

	// Error reports a recoverable, statement-scoped pipeline error as a
	// structured, coded *types.Error.
	Error func(err *types.Error)

	// Fatal reports an unrecoverable failure; the pipeline must be torn
	// down after this call.
	Fatal func(msg string)

	// M112 reports that the emergency-stop command was just parsed. It
	// fires on enqueue, not on exec (SPEC_FULL §4.4), so the host can act
	// before the statement ever reaches the front of the queue.
	M112 func()
}
