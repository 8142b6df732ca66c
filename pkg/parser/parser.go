// Package parser implements the push-driven operator-precedence parser
// described in SPEC_FULL §4.3: the lexer calls into this package one token
// at a time, and a completed statement (or a recoverable error) is handed
// upward through Callbacks.
//
// Internally the parser buffers one statement's worth of tokens as they
// arrive and runs a pull-style Pratt parse (nud/led, grounded on the
// teacher's parseExpression/parsePrefix/parseInfix shape) over that buffer
// the moment EndOfStatement closes it. This keeps the precedence-climbing
// logic itself ordinary recursive descent while still presenting the
// required push interface at the package boundary.
package parser

import (
	"fmt"
	"math"

	"github.com/cncflow/gflow/pkg/lexer"
	"github.com/cncflow/gflow/pkg/types"
)

// Callbacks is the capability set the parser invokes once per completed
// statement or per recoverable (syntactic or relayed lexical) error.
type Callbacks struct {
	Statement func(root *types.Node, pos types.Position)
	Error     func(err *types.Error)
}

type tokKind uint8

const (
	tkKeyword tokKind = iota
	tkIdentifier
	tkStr
	tkInt
	tkFloat
	tkBridge
)

type tok struct {
	kind tokKind
	kw   lexer.KeywordID
	text string
	i    int64
	f    float64
	pos  types.Position
}

// Parser buffers the tokens of one statement at a time and parses them once
// EndOfStatement arrives. It is not safe for concurrent use, matching
// SPEC_FULL §5's single-threaded, cooperative resource model.
type Parser struct {
	cb    Callbacks
	arena *types.Arena

	buf []tok
	pos int

	fallback types.Position
}

// New constructs a Parser that reports completed statements and errors to cb.
func New(cb Callbacks) *Parser {
	return &Parser{cb: cb, arena: types.NewArena()}
}

// LexerCallbacks wires this parser as the consumer of a lexer's token
// stream (SPEC_FULL §4.3: "the lexer calls into the parser one token at a
// time").
func (p *Parser) LexerCallbacks() lexer.Callbacks {
	return lexer.Callbacks{
		Keyword:        p.onKeyword,
		Identifier:     p.onIdentifier,
		Str:            p.onStr,
		Int:            p.onInt,
		Float:          p.onFloat,
		Bridge:         p.onBridge,
		EndOfStatement: p.onEndOfStatement,
		Error:          p.onError,
	}
}

func (p *Parser) onKeyword(id lexer.KeywordID, pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkKeyword, kw: id, pos: pos})
	return true
}

func (p *Parser) onIdentifier(text string, pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkIdentifier, text: text, pos: pos})
	return true
}

func (p *Parser) onStr(text string, pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkStr, text: text, pos: pos})
	return true
}

func (p *Parser) onInt(v int64, pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkInt, i: v, pos: pos})
	return true
}

func (p *Parser) onFloat(v float64, pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkFloat, f: v, pos: pos})
	return true
}

func (p *Parser) onBridge(pos types.Position) bool {
	p.buf = append(p.buf, tok{kind: tkBridge, pos: pos})
	return true
}

func (p *Parser) onEndOfStatement(pos types.Position) bool {
	p.parseBuffered(pos)
	return true
}

// onError handles a lexer-reported lexical error. The lexer has already
// notified the host via its own Error callback and recovers straight to
// Newline without ever following up with EndOfStatement (SPEC_FULL §4.2
// error paths) — so this call itself is the only statement boundary this
// broken line will ever produce. The parser relays it without adding its
// own diagnostic (SPEC_FULL §4.3: "without emitting its own 'syntax error'
// message") and discards whatever partial tokens it had buffered.
func (p *Parser) onError(err *types.Error) bool {
	p.buf = p.buf[:0]
	p.pos = 0
	if p.cb.Error != nil {
		p.cb.Error(err)
	}
	return true
}

// parseBuffered runs the field-level parse over the statement buffered so
// far, emitting either a Statement or a syntax error, then resets for the
// next statement. eosPos is used as the position fallback when the
// statement has no fields of its own (shouldn't normally happen, since the
// lexer never synthesizes EndOfStatement for a blank/comment-only line).
func (p *Parser) parseBuffered(eosPos types.Position) {
	defer func() {
		p.buf = p.buf[:0]
		p.pos = 0
	}()

	if len(p.buf) == 0 {
		return
	}

	p.pos = 0
	p.fallback = eosPos

	var head, tail *types.Node
	for p.pos < len(p.buf) {
		field, err := p.parseField()
		if err != nil {
			if p.cb.Error != nil {
				p.cb.Error(err)
			}
			return
		}
		if head == nil {
			head, tail = field, field
		} else {
			tail = types.AddNext(tail, field)
		}
	}

	stmtPos := eosPos
	if head != nil {
		stmtPos = head.Pos
	}
	stmt := p.arena.NewStatement(head, stmtPos)
	if p.cb.Statement != nil {
		p.cb.Statement(stmt, stmtPos)
	}
	// Fresh arena per statement: once the caller releases the just-emitted
	// root, the whole chunk set behind it becomes garbage in one shot.
	p.arena = types.NewArena()
}

func (p *Parser) errorf(code types.ErrorCode, pos types.Position, format string, args ...interface{}) *types.Error {
	return types.NewError(types.KindSyntactic, code, fmt.Sprintf(format, args...)).WithPosition(pos)
}

func (p *Parser) cur() (tok, bool) {
	if p.pos >= len(p.buf) {
		return tok{}, false
	}
	return p.buf[p.pos], true
}

func (p *Parser) advance() tok {
	t := p.buf[p.pos]
	p.pos++
	return t
}

func chain2(a, b *types.Node) *types.Node {
	a.Next = b
	return a
}

func chain3(a, b, c *types.Node) *types.Node {
	a.Next = b
	b.Next = c
	return a
}

// --- field grammar: field = string | "{" expr "}" | field BRIDGE field ---

func (p *Parser) parseField() (*types.Node, *types.Error) {
	t, ok := p.cur()
	if !ok {
		return nil, p.errorf(types.ErrEmptyExpression, p.fallback, "expected a field")
	}

	var node *types.Node
	switch {
	case t.kind == tkStr:
		p.advance()
		node = p.arena.NewStr(t.text, t.pos)
	case t.kind == tkKeyword && t.kw == lexer.KwLBrace:
		p.advance()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closeTok, ok := p.cur()
		if !ok || closeTok.kind != tkKeyword || closeTok.kw != lexer.KwRBrace {
			return nil, p.errorf(types.ErrUnclosedGroup, t.pos, "expected '}' to close expression")
		}
		p.advance()
		node = expr
	default:
		return nil, p.errorf(types.ErrUnexpectedToken, t.pos, "expected a literal word or '{' expression")
	}

	for {
		b, ok := p.cur()
		if !ok || b.kind != tkBridge {
			break
		}
		p.advance()
		right, err := p.parseField()
		if err != nil {
			return nil, err
		}
		node = p.arena.NewOp(types.OpBridge, chain2(node, right), b.pos)
	}
	return node, nil
}

// --- expression grammar: operator-precedence (Pratt) ---

const (
	precOr        = 10
	precAnd       = 20
	precEq        = 30
	precConcat    = 40
	precAddSub    = 50
	precMulDivMod = 60
	precCompare   = 70
	precTernary   = 80
	precPow       = 90
	precNot       = 100
	precUnary     = 110
	precMember    = 120
)

var infixPrecedence = map[lexer.KeywordID]int{
	lexer.KwOr:       precOr,
	lexer.KwAnd:      precAnd,
	lexer.KwEq:       precEq,
	lexer.KwConcat:   precConcat,
	lexer.KwPlus:     precAddSub,
	lexer.KwMinus:    precAddSub,
	lexer.KwStar:     precMulDivMod,
	lexer.KwSlash:    precMulDivMod,
	lexer.KwPercent:  precMulDivMod,
	lexer.KwLt:       precCompare,
	lexer.KwGt:       precCompare,
	lexer.KwLe:       precCompare,
	lexer.KwGe:       precCompare,
	lexer.KwIf:       precTernary,
	lexer.KwPow:      precPow,
	lexer.KwDot:      precMember,
	lexer.KwLBracket: precMember,
}

var binaryOps = map[lexer.KeywordID]types.Op{
	lexer.KwOr:      types.OpOr,
	lexer.KwAnd:     types.OpAnd,
	lexer.KwEq:      types.OpEq,
	lexer.KwConcat:  types.OpConcat,
	lexer.KwPlus:    types.OpAdd,
	lexer.KwMinus:   types.OpSub,
	lexer.KwStar:    types.OpMul,
	lexer.KwSlash:   types.OpDiv,
	lexer.KwPercent: types.OpMod,
	lexer.KwLt:      types.OpLt,
	lexer.KwGt:      types.OpGt,
	lexer.KwLe:      types.OpLe,
	lexer.KwGe:      types.OpGe,
	lexer.KwPow:     types.OpPow,
}

func (p *Parser) peekPrecedence() int {
	t, ok := p.cur()
	if !ok || t.kind != tkKeyword {
		return 0
	}
	return infixPrecedence[t.kw]
}

// parseExpression implements precedence climbing: rbp is the minimum
// binding power an infix operator must exceed to keep folding into left.
func (p *Parser) parseExpression(rbp int) (*types.Node, *types.Error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for rbp < p.peekPrecedence() {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (*types.Node, *types.Error) {
	t, ok := p.cur()
	if !ok {
		return nil, p.errorf(types.ErrEmptyExpression, p.fallback, "unexpected end of expression")
	}
	switch t.kind {
	case tkStr:
		p.advance()
		return p.arena.NewStr(t.text, t.pos), nil
	case tkInt:
		p.advance()
		return p.arena.NewInt(t.i, t.pos), nil
	case tkFloat:
		p.advance()
		return p.arena.NewFloat(t.f, t.pos), nil
	case tkIdentifier:
		p.advance()
		return p.parseIdentifierOrCall(t)
	case tkKeyword:
		return p.parseKeywordPrefix(t)
	}
	return nil, p.errorf(types.ErrUnexpectedToken, t.pos, "unexpected token in expression")
}

func (p *Parser) parseIdentifierOrCall(t tok) (*types.Node, *types.Error) {
	nxt, ok := p.cur()
	if !ok || nxt.kind != tkKeyword || nxt.kw != lexer.KwLParen {
		return p.arena.NewParam(t.text, t.pos), nil
	}
	p.advance() // consume '('

	var head, tail *types.Node
	if c, ok := p.cur(); !ok || c.kind != tkKeyword || c.kw != lexer.KwRParen {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if head == nil {
				head, tail = arg, arg
			} else {
				tail = types.AddNext(tail, arg)
			}
			c, ok := p.cur()
			if !ok {
				return nil, p.errorf(types.ErrExpectedToken, t.pos, "unterminated argument list for %s(", t.text)
			}
			if c.kind == tkKeyword && c.kw == lexer.KwComma {
				p.advance()
				continue
			}
			break
		}
	}
	closeTok, ok := p.cur()
	if !ok || closeTok.kind != tkKeyword || closeTok.kw != lexer.KwRParen {
		return nil, p.errorf(types.ErrUnclosedGroup, t.pos, "expected ')' to close call to %s", t.text)
	}
	p.advance()
	return p.arena.NewFunc(t.text, head, t.pos), nil
}

func (p *Parser) parseKeywordPrefix(t tok) (*types.Node, *types.Error) {
	switch t.kw {
	case lexer.KwTrue:
		p.advance()
		return p.arena.NewBool(true, t.pos), nil
	case lexer.KwFalse:
		p.advance()
		return p.arena.NewBool(false, t.pos), nil
	case lexer.KwInf:
		p.advance()
		return p.arena.NewFloat(math.Inf(1), t.pos), nil
	case lexer.KwNan:
		p.advance()
		return p.arena.NewFloat(math.NaN(), t.pos), nil
	case lexer.KwNot:
		p.advance()
		operand, err := p.parseExpression(precNot)
		if err != nil {
			return nil, err
		}
		return p.arena.NewOp(types.OpNot, operand, t.pos), nil
	case lexer.KwMinus:
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return p.arena.NewOp(types.OpNeg, operand, t.pos), nil
	case lexer.KwPlus:
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		return p.arena.NewOp(types.OpPos, operand, t.pos), nil
	case lexer.KwLParen:
		p.advance()
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closeTok, ok := p.cur()
		if !ok || closeTok.kind != tkKeyword || closeTok.kw != lexer.KwRParen {
			return nil, p.errorf(types.ErrUnclosedGroup, t.pos, "expected ')'")
		}
		p.advance()
		return inner, nil
	default:
		return nil, p.errorf(types.ErrUnexpectedToken, t.pos, "unexpected token in expression")
	}
}

func (p *Parser) parseInfix(left *types.Node) (*types.Node, *types.Error) {
	t := p.advance()
	switch t.kw {
	case lexer.KwDot:
		name, ok := p.cur()
		if !ok || name.kind != tkIdentifier {
			return nil, p.errorf(types.ErrExpectedToken, t.pos, "expected a name after '.'")
		}
		p.advance()
		param := p.arena.NewParam(name.text, name.pos)
		return p.arena.NewOp(types.OpMember, chain2(left, param), t.pos), nil
	case lexer.KwLBracket:
		idx, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closeTok, ok := p.cur()
		if !ok || closeTok.kind != tkKeyword || closeTok.kw != lexer.KwRBracket {
			return nil, p.errorf(types.ErrUnclosedGroup, t.pos, "expected ']'")
		}
		p.advance()
		return p.arena.NewOp(types.OpIndex, chain2(left, idx), t.pos), nil
	case lexer.KwIf:
		return p.parseTernary(left, t)
	default:
		op, ok := binaryOps[t.kw]
		if !ok {
			return nil, p.errorf(types.ErrUnexpectedToken, t.pos, "unexpected operator")
		}
		rbp := infixPrecedence[t.kw]
		right, err := p.parseExpression(rbp)
		if err != nil {
			return nil, err
		}
		return p.arena.NewOp(op, chain2(left, right), t.pos), nil
	}
}

// parseTernary handles `trueVal if cond else elseVal`, right-associative
// (SPEC_FULL §3 precedence table, level 8).
func (p *Parser) parseTernary(trueVal *types.Node, ifTok tok) (*types.Node, *types.Error) {
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	elseTok, ok := p.cur()
	if !ok || elseTok.kind != tkKeyword || elseTok.kw != lexer.KwElse {
		return nil, p.errorf(types.ErrExpectedToken, ifTok.pos, "expected 'else' in conditional expression")
	}
	p.advance()
	elseVal, err := p.parseExpression(precTernary - 1)
	if err != nil {
		return nil, err
	}
	return p.arena.NewOp(types.OpIfElse, chain3(trueVal, cond, elseVal), ifTok.pos), nil
}
