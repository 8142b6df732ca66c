// Package queue implements the bounded ring buffer sitting between the
// parser and the evaluator (SPEC_FULL §4.4): a FIFO of parsed statements
// and deferred parse errors, drained one entry at a time by an external
// driver.
//
// This is a bespoke structure with no direct precedent in the pack: the
// teacher's pkg/cache.Cache is a container/list+map LRU that evicts under
// pressure, which is the opposite of what's needed here — SPEC_FULL §4.4
// requires that no entry is ever dropped for lack of space, so the ring
// grows by doubling instead of evicting, and the doubling must re-splice
// the two wrapped segments to keep entries in order. It also drops the
// teacher's sync.RWMutex — SPEC_FULL §5 makes the queue intentionally
// single-threaded and cooperative; synchronization is the driver's job,
// not the queue's.
package queue

import (
	"github.com/cncflow/gflow/pkg/host"
	"github.com/cncflow/gflow/pkg/types"
)

// EntryKind distinguishes a successfully parsed statement from a deferred
// parse error occupying the same slot in the ring.
type EntryKind uint8

const (
	EntryStatement EntryKind = iota
	EntryError
)

// Entry is one queued item: a Statement or an Error, never both
// (spec.md §3: "Statement(owned AST root) | Error(owned text)").
type Entry struct {
	Kind EntryKind
	Stmt *types.Node
	Err  *types.Error
}

const initialCapacity = 32

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithHost wires the capability set the queue notifies on M112 detection.
// The queue does not report allocation failure and never calls Fatal.
func WithHost(cb host.Callbacks) Option {
	return func(q *Queue) { q.host = cb }
}

// Queue is a bounded ring buffer of Entry values. It is not safe for
// concurrent use: the driver serializes its own producer (parser callbacks)
// and consumer (Dequeue) calls, exactly as spec.md §5 requires.
type Queue struct {
	buf   []Entry
	head  int
	count int
	host  host.Callbacks
}

// New constructs an empty Queue with the capacity-32 starting ring.
func New(opts ...Option) *Queue {
	q := &Queue{buf: make([]Entry, initialCapacity)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Len returns the number of entries currently queued.
func (q *Queue) Len() int { return q.count }

// Capacity returns the ring's current capacity, which only ever grows.
func (q *Queue) Capacity() int { return len(q.buf) }

// grow doubles the ring's capacity, re-concatenating the two logical
// segments so entry order survives the resize (spec.md §4.4: "growth must
// preserve entry order; when head > 0 the two segments are
// re-concatenated").
func (q *Queue) grow() {
	newBuf := make([]Entry, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		newBuf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = newBuf
	q.head = 0
}

// push appends e to the back of the ring, growing first if full.
func (q *Queue) push(e Entry) {
	if q.count >= len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
}

// EnqueueStatement appends a parsed statement and, if its command field is
// the literal word "M112", notifies the host's emergency-stop callback
// immediately — before the statement is ever dequeued (spec.md §4.4,
// §8 property 6).
func (q *Queue) EnqueueStatement(stmt *types.Node) {
	q.push(Entry{Kind: EntryStatement, Stmt: stmt})
	if commandName(stmt) == "M112" && q.host.M112 != nil {
		q.host.M112()
	}
}

// EnqueueError appends a deferred parse/lexical error, preserving the
// position it was detected at relative to the surrounding statements
// (spec.md §7: "queued in the position they occurred").
func (q *Queue) EnqueueError(err *types.Error) {
	q.push(Entry{Kind: EntryError, Err: err})
}

// Dequeue pops the oldest entry. ok is false when the queue is empty.
func (q *Queue) Dequeue() (Entry, bool) {
	if q.count == 0 {
		return Entry{}, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = Entry{} // drop the reference so the GC can reclaim it
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return e, true
}

// commandName extracts a statement's first field when it is a bare literal
// word, which is the only shape spec.md's M112 match considers — a
// bridged or expression-valued first field has no known string value until
// evaluation, long after enqueue.
func commandName(stmt *types.Node) string {
	if stmt == nil || stmt.Children == nil {
		return ""
	}
	first := stmt.Children
	if first.Kind != types.NodeStr {
		return ""
	}
	return first.Str
}
