// Package evaluator implements the recursive post-order expression
// evaluator and statement flattener described in SPEC_FULL §4.5: it walks
// a parsed statement's field list left to right, evaluates each field's
// expression tree to a typed Value, serializes it to text, and assembles
// the (command, fields[]) tuple the host receives.
package evaluator

import (
	"log/slog"

	"github.com/cncflow/gflow/pkg/host"
	"github.com/cncflow/gflow/pkg/types"
)

// Options configures an Evaluator, grounded on the teacher's
// EvalOptions/EvalOption functional-options shape (pkg/evaluator/evaluator.go).
type Options struct {
	Host   host.Callbacks
	Logger *slog.Logger
}

// Option configures an Evaluator at construction time.
type Option func(*Options)

// WithHost wires the capability set used for Lookup/Serialize/Error during
// evaluation.
func WithHost(cb host.Callbacks) Option {
	return func(o *Options) { o.Host = cb }
}

// WithLogger sets a custom structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Evaluator evaluates a statement's field list against a host environment.
type Evaluator struct {
	host   host.Callbacks
	logger *slog.Logger

	// fields is the per-statement result buffer (SPEC_FULL §4.5's "scratch
	// string buffer"): reset to length 0 at the start of every Exec and
	// reused across calls, so it grows geometrically by doubling (Go's
	// append already gives us this for free) and never shrinks. Any slice
	// returned to a caller from a previous Exec aliases this same backing
	// array and is only valid until the next Exec call, matching spec.md
	// §4.5's "pointers... valid until the next exec_next call".
	fields []string
}

// New constructs an Evaluator.
func New(opts ...Option) *Evaluator {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Evaluator{host: options.Host, logger: options.Logger}
}

// Exec evaluates stmt's field list left to right. The first field becomes
// command; the remainder become fields. On any evaluation error the
// statement is abandoned immediately (SPEC_FULL §7 kind Evaluation: "the
// offending statement is dropped") and the error is both logged and
// returned.
func (e *Evaluator) Exec(stmt *types.Node) (command string, fields []string, evalErr *types.Error) {
	e.fields = e.fields[:0]

	first := true
	for field := stmt.Children; field != nil; field = field.Next {
		val, err := e.eval(field)
		if err != nil {
			e.logger.Warn("evaluation error", slog.String("code", string(err.Code)), slog.String("msg", err.Message))
			if e.host.Error != nil {
				e.host.Error(err)
			}
			return "", nil, err
		}
		text := val.ToStr(e.serializer())
		if first {
			command = text
			first = false
			continue
		}
		e.fields = append(e.fields, text)
	}
	return command, e.fields, nil
}

func (e *Evaluator) serializer() types.Serializer {
	if e.host.Serialize == nil {
		return nil
	}
	return func(d types.DictHandle) (string, bool) {
		s := e.host.Serialize(types.Dict(d))
		return s, true
	}
}

func evalError(code types.ErrorCode, pos types.Position, msg string) *types.Error {
	return types.NewError(types.KindEvaluation, code, msg).WithPosition(pos)
}
