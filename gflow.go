// Package gflow compiles a G-code dialect with brace-delimited host
// expressions into flat (command, fields[]) tuples.
//
// The five core components — lexer, parser, queue, evaluator, and the AST
// types binding them together — are byte/line-incremental and never block:
// feed them bytes as they arrive (from a file, a socket, a keystroke) and
// drain completed commands with ExecNext whenever convenient.
//
// # Quick Start
//
//	// One-shot: compile a whole script and collect every command.
//	results := gflow.Run("G1 X{1+2}\n", host.Callbacks{})
//
//	// Incremental: feed bytes as they arrive.
//	p := pipeline.New(pipeline.WithHost(cb))
//	p.Feed(chunk1)
//	p.Feed(chunk2)
//	p.FeedFinish()
//	for p.Len() > 0 {
//	    res, _ := p.ExecNext()
//	}
//
// # More Information
//
// For detailed documentation, see:
//   - Types: github.com/cncflow/gflow/pkg/types
//   - Lexer: github.com/cncflow/gflow/pkg/lexer
//   - Parser: github.com/cncflow/gflow/pkg/parser
//   - Queue: github.com/cncflow/gflow/pkg/queue
//   - Evaluator: github.com/cncflow/gflow/pkg/evaluator
//   - Pipeline: github.com/cncflow/gflow/pkg/pipeline
//   - Host environments: github.com/cncflow/gflow/pkg/hostenv
package gflow

import (
	"github.com/cncflow/gflow/pkg/host"
	"github.com/cncflow/gflow/pkg/pipeline"
)

// Version returns the current version of the module.
func Version() string {
	return "v0.1.0-dev"
}

// Run is a convenience function that compiles an entire script in one call
// and returns every ExecNext result in order, including errors — it does
// not stop at the first one, matching the pipeline's "abort only the
// offending statement" error policy.
//
// For incrementally-fed input, construct a pipeline.Pipeline directly.
func Run(script string, cb host.Callbacks) []pipeline.Result {
	p := pipeline.New(pipeline.WithHost(cb))
	p.Feed([]byte(script))
	p.FeedFinish()

	var results []pipeline.Result
	for p.Len() > 0 {
		res, _ := p.ExecNext()
		results = append(results, res)
	}
	return results
}

// New constructs a Pipeline wired with the given host environment, for
// callers that want incremental Feed/ExecNext control.
func New(opts ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(opts...)
}
