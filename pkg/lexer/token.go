// Package lexer implements the incremental, byte-driven tokenizer for the
// gflow G-code dialect described in SPEC_FULL §4.2.
//
// Lexer is reentrant across arbitrary buffer splits: Feed may be called with
// any byte-split of the input, including mid-escape, mid-exponent or
// mid-word, and the lexer's working state (current state, partial token
// text, numeric literal shape, current line/column) all live on the Lexer
// value itself.
package lexer

import "github.com/cncflow/gflow/pkg/types"

// TokenKind identifies which lexer callback produced a token.
type TokenKind uint8

const (
	TokIdentifier TokenKind = iota
	TokStr
	TokInt
	TokFloat
	TokKeyword
	TokBridge         // synthetic: inserted between adjacent word/expression fields
	TokEndOfStatement // synthetic: one statement's worth of fields is complete
	TokErrorSentinel  // no payload; lexer already reported via the Error callback
)

// KeywordID enumerates operators, punctuation, boolean/NaN/Infinity
// constants, if/else, and/or, and bracketing tokens (SPEC_FULL §4.2).
type KeywordID uint8

const (
	KwOr KeywordID = iota
	KwAnd
	KwIf
	KwElse
	KwTrue
	KwFalse
	KwInf
	KwNan

	KwLBrace
	KwRBrace
	KwLBracket
	KwRBracket
	KwLParen
	KwRParen
	KwComma
	KwDot

	KwPlus
	KwMinus
	KwStar
	KwSlash
	KwPercent
	KwPow    // **
	KwEq     // =
	KwConcat // ~
	KwNot    // !
	KwLt
	KwGt
	KwLe
	KwGe
)

// wordKeywords maps uppercased identifier-shaped words to their keyword ID.
// Exact match only — anything else lexes as a plain Identifier (SPEC_FULL
// §8 property 4).
var wordKeywords = map[string]KeywordID{
	"OR":    KwOr,
	"AND":   KwAnd,
	"IF":    KwIf,
	"ELSE":  KwElse,
	"TRUE":  KwTrue,
	"FALSE": KwFalse,
	"INF":   KwInf,
	"NAN":   KwNan,
}

// symbolKeywords maps a greedily-scanned run of symbol-class characters to
// its keyword ID. Longest known sequences are checked first by the lexer
// before falling back to shorter prefixes.
var symbolKeywords = map[string]KeywordID{
	"{":  KwLBrace,
	"}":  KwRBrace,
	"[":  KwLBracket,
	"]":  KwRBracket,
	"(":  KwLParen,
	")":  KwRParen,
	",":  KwComma,
	".":  KwDot,
	"+":  KwPlus,
	"-":  KwMinus,
	"*":  KwStar,
	"/":  KwSlash,
	"%":  KwPercent,
	"**": KwPow,
	"=":  KwEq,
	"~":  KwConcat,
	"!":  KwNot,
	"<":  KwLt,
	">":  KwGt,
	"<=": KwLe,
	">=": KwGe,
}

// symbolChars is the character class multi-character operator sequences are
// greedily scanned from (SPEC_FULL §4.2).
const symbolChars = "`~!@#%^&*()-+={[}]|\\:,<.>?/"

func isSymbolChar(b byte) bool {
	for i := 0; i < len(symbolChars); i++ {
		if symbolChars[i] == b {
			return true
		}
	}
	return false
}

// Callbacks is the capability set the lexer invokes as it recognizes
// tokens, one call per token, in input order (SPEC_FULL §4.2). Every
// callback returns a continuation signal: false moves the lexer into
// recovery (Error state), skipping the remainder of the current statement,
// matching the source's "callback return false -> Error" contract.
type Callbacks struct {
	Keyword        func(id KeywordID, pos types.Position) bool
	Identifier     func(text string, pos types.Position) bool
	Str            func(text string, pos types.Position) bool
	Int            func(v int64, pos types.Position) bool
	Float          func(v float64, pos types.Position) bool
	Bridge         func(pos types.Position) bool
	EndOfStatement func(pos types.Position) bool
	// Error reports a lexical error (SPEC_FULL §7 kind Lexical) as a
	// structured, coded *types.Error (Kind always KindLexical). The lexer
	// then recovers silently to the next newline without ever calling
	// EndOfStatement for the broken line — a parser sitting downstream of
	// the lexer must treat the Error call itself as the statement boundary.
	Error func(err *types.Error) bool
}
