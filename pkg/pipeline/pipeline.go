// Package pipeline wires the lexer, parser, queue and evaluator together
// into the single host-facing entry point spec.md §6 describes:
// queue_new/queue_feed/queue_feed_finish/queue_exec_next/queue_delete.
//
// Grounded on the teacher's top-level gosonata.go convenience wrapper
// (parser+evaluator composed behind one call), extended here into a
// stateful pipeline since this spec's components are fed incrementally
// rather than called once against a whole input string.
package pipeline

import (
	"log/slog"

	"github.com/cncflow/gflow/pkg/evaluator"
	"github.com/cncflow/gflow/pkg/host"
	"github.com/cncflow/gflow/pkg/lexer"
	"github.com/cncflow/gflow/pkg/parser"
	"github.com/cncflow/gflow/pkg/queue"
	"github.com/cncflow/gflow/pkg/types"
)

// ResultKind identifies which variant of an ExecNext result is populated,
// mirroring spec.md §6's "Empty | Error(text) | Command{name,fields,count}".
type ResultKind uint8

const (
	ResultEmpty ResultKind = iota
	ResultError
	ResultCommand
)

// Result is the outcome of one ExecNext call. Command and Fields alias the
// evaluator's recycled scratch buffer and are only valid until the next
// ExecNext call (spec.md §4.5's scratch-buffer contract).
type Result struct {
	Kind    ResultKind
	Err     *types.Error
	Command string
	Fields  []string
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithHost wires the capability set the queue and evaluator call into.
func WithHost(cb host.Callbacks) Option {
	return func(p *Pipeline) { p.hostCB = cb }
}

// WithLogger sets a custom structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// Pipeline is one lexer+parser+queue+evaluator instance, per spec.md §5: a
// single-threaded, cooperative unit whose entry points never block or
// suspend. Multiple Pipelines are independent and may run on different
// goroutines concurrently; a single Pipeline's Feed/FeedFinish/ExecNext
// calls must be serialized by the caller (the queue is not internally
// synchronized).
type Pipeline struct {
	lexer *lexer.Lexer
	queue *queue.Queue
	eval  *evaluator.Evaluator

	hostCB host.Callbacks
	logger *slog.Logger
}

// New constructs a Pipeline. The same host.Callbacks value is wired into
// the queue (for M112), the evaluator (for Lookup/Serialize/Error) and
// ExecNext (for Exec/Error). Nothing in the pipeline calls Fatal.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	p.queue = queue.New(queue.WithHost(p.hostCB))
	pr := parser.New(parser.Callbacks{
		Statement: func(root *types.Node, pos types.Position) { p.queue.EnqueueStatement(root) },
		Error:     func(err *types.Error) { p.queue.EnqueueError(err) },
	})
	p.lexer = lexer.New(pr.LexerCallbacks())
	p.eval = evaluator.New(evaluator.WithHost(p.hostCB), evaluator.WithLogger(p.logger))
	return p
}

// Feed runs buf through the lexer/parser, enqueuing every statement and
// parse error it produces, and returns the queue's new occupancy
// (spec.md §4.4: "feed(buf, len) ... returns the new occupancy").
func (p *Pipeline) Feed(buf []byte) int {
	p.lexer.Feed(buf)
	return p.queue.Len()
}

// FeedFinish flushes any statement still buffered by a final, unterminated
// line and returns the queue's new occupancy.
func (p *Pipeline) FeedFinish() int {
	p.lexer.Finish()
	return p.queue.Len()
}

// ExecNext pops the oldest queue entry and returns the outcome plus the
// remaining occupancy (spec.md §4.4/§6: "exec_next(out_result) →
// remaining_count").
func (p *Pipeline) ExecNext() (Result, int) {
	entry, ok := p.queue.Dequeue()
	if !ok {
		return Result{Kind: ResultEmpty}, 0
	}

	if entry.Kind == queue.EntryError {
		p.logger.Warn("parse error", slog.String("code", string(entry.Err.Code)), slog.String("msg", entry.Err.Message))
		if p.hostCB.Error != nil {
			p.hostCB.Error(entry.Err)
		}
		return Result{Kind: ResultError, Err: entry.Err}, p.queue.Len()
	}

	if entry.Stmt.Children == nil {
		// A statement with no fields produced nothing to dispatch (spec.md
		// §4.4's third exec_next variant). Parsed statements never actually
		// reach this shape in practice (blank/comment lines never produce a
		// queue entry to begin with), but the case is handled rather than
		// assumed away.
		return Result{Kind: ResultEmpty}, p.queue.Len()
	}

	// The evaluator already reports evalErr via host.Callbacks.Error itself
	// (pkg/evaluator.Evaluator.Exec), so it is not repeated here.
	command, fields, evalErr := p.eval.Exec(entry.Stmt)
	if evalErr != nil {
		return Result{Kind: ResultError, Err: evalErr}, p.queue.Len()
	}

	if p.hostCB.Exec != nil && !p.hostCB.Exec(command, fields) {
		err := types.NewError(types.KindHost, types.ErrHostExecRejected, "host rejected command "+command)
		if p.hostCB.Error != nil {
			p.hostCB.Error(err)
		}
		return Result{Kind: ResultError, Err: err}, p.queue.Len()
	}
	return Result{Kind: ResultCommand, Command: command, Fields: fields}, p.queue.Len()
}

// Len returns the queue's current occupancy without dequeuing.
func (p *Pipeline) Len() int { return p.queue.Len() }
