package lexer_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cncflow/gflow/pkg/lexer"
	"github.com/cncflow/gflow/pkg/types"
)

// event is a flattened record of one callback invocation, independent of
// source position so table tests can compare token sequences without
// pinning down exact line/column bookkeeping.
type event struct {
	Kind lexer.TokenKind
	Text string
	Int  int64
	Flt  float64
	Kw   lexer.KeywordID
	Code types.ErrorCode
}

func recordingCallbacks(events *[]event) lexer.Callbacks {
	return lexer.Callbacks{
		Keyword: func(id lexer.KeywordID, _ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokKeyword, Kw: id})
			return true
		},
		Identifier: func(text string, _ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokIdentifier, Text: text})
			return true
		},
		Str: func(text string, _ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokStr, Text: text})
			return true
		},
		Int: func(v int64, _ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokInt, Int: v})
			return true
		},
		Float: func(v float64, _ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokFloat, Flt: v})
			return true
		},
		Bridge: func(_ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokBridge})
			return true
		},
		EndOfStatement: func(_ types.Position) bool {
			*events = append(*events, event{Kind: lexer.TokEndOfStatement})
			return true
		},
		Error: func(err *types.Error) bool {
			*events = append(*events, event{Kind: lexer.TokErrorSentinel, Text: err.Message, Code: err.Code})
			return true
		},
	}
}

// scanSplit feeds input to a fresh Lexer split into chunks of size n (n<=0
// means "whole input in one Feed call"), returning the resulting event
// sequence. Used to check that chunk boundaries never change lexical
// meaning (SPEC_FULL §8 property 1).
func scanSplit(input string, n int) []event {
	var events []event
	l := lexer.New(recordingCallbacks(&events))
	buf := []byte(input)
	if n <= 0 {
		l.Feed(buf)
	} else {
		for i := 0; i < len(buf); i += n {
			end := i + n
			if end > len(buf) {
				end = len(buf)
			}
			l.Feed(buf[i:end])
		}
	}
	l.Finish()
	return events
}

func strEv(s string) event   { return event{Kind: lexer.TokStr, Text: s} }
func kwEv(id lexer.KeywordID) event { return event{Kind: lexer.TokKeyword, Kw: id} }
func intEv(v int64) event    { return event{Kind: lexer.TokInt, Int: v} }
func fltEv(v float64) event  { return event{Kind: lexer.TokFloat, Flt: v} }

var (
	bridgeEv = event{Kind: lexer.TokBridge}
	eosEv    = event{Kind: lexer.TokEndOfStatement}
)

type lexerTestCase struct {
	name     string
	input    string
	expected []event
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	t.Helper()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := scanSplit(tc.input, 0)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("whole-buffer feed mismatch (-want +got):\n%s", diff)
			}
			// Re-run byte-at-a-time: incremental feed must be observationally
			// identical to a single Feed call (SPEC_FULL §8 property 1).
			gotSplit := scanSplit(tc.input, 1)
			if diff := cmp.Diff(tc.expected, gotSplit); diff != "" {
				t.Errorf("byte-at-a-time feed mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexerWords(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "two field statement",
			input:    "G1 X10 Y20\n",
			expected: []event{strEv("G1"), strEv("X10"), strEv("Y20"), eosEv},
		},
		{
			name:     "single field, no trailing newline",
			input:    "M18",
			expected: []event{strEv("M18"), eosEv},
		},
		{
			name:     "lowercase word is uppercased",
			input:    "g1 x1\n",
			expected: []event{strEv("G1"), strEv("X1"), eosEv},
		},
	})
}

func TestLexerBlankAndCommentLines(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "blank line", input: "\n", expected: nil},
		{name: "whitespace only line", input: "   \t\n", expected: nil},
		{name: "comment only line", input: "; a trailing remark\n", expected: nil},
		{
			name:     "blank and comment lines produce nothing, statement still arrives",
			input:    "; comment only\n\n  ; blank\nM18\n",
			expected: []event{strEv("M18"), eosEv},
		},
		{
			name:     "trailing comment on a real statement still closes it",
			input:    "G1 X1 ; move over\n",
			expected: []event{strEv("G1"), strEv("X1"), eosEv},
		},
	})
}

func TestLexerLineNumberPrefix(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "line number silently discarded",
			input:    "N10 G1 X1\n",
			expected: []event{strEv("G1"), strEv("X1"), eosEv},
		},
		{
			name:     "line number alone produces no statement",
			input:    "N200\n",
			expected: nil,
		},
	})
}

func TestLexerBridgedExpression(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:  "word bridged to an expression",
			input: "X{1+2}\n",
			expected: []event{
				strEv("X"), bridgeEv,
				kwEv(lexer.KwLBrace), intEv(1), kwEv(lexer.KwPlus), intEv(2), kwEv(lexer.KwRBrace),
				eosEv,
			},
		},
		{
			name:  "two adjacent expressions bridge to each other",
			input: "{1}{2}\n",
			expected: []event{
				kwEv(lexer.KwLBrace), intEv(1), kwEv(lexer.KwRBrace),
				bridgeEv,
				kwEv(lexer.KwLBrace), intEv(2), kwEv(lexer.KwRBrace),
				eosEv,
			},
		},
		{
			name:  "expression bridged to trailing word",
			input: "{1}Y\n",
			expected: []event{
				kwEv(lexer.KwLBrace), intEv(1), kwEv(lexer.KwRBrace),
				bridgeEv, strEv("Y"),
				eosEv,
			},
		},
	})
}

func TestLexerKeywordsVsIdentifiers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "exact keyword match",
			input:    "{TRUE}\n",
			expected: []event{kwEv(lexer.KwLBrace), kwEv(lexer.KwTrue), kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:     "near-miss falls back to identifier",
			input:    "{TRUEX}\n",
			expected: []event{kwEv(lexer.KwLBrace), {Kind: lexer.TokIdentifier, Text: "TRUEX"}, kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:  "keywords are case-insensitive",
			input: "{or}\n",
			expected: []event{kwEv(lexer.KwLBrace), kwEv(lexer.KwOr), kwEv(lexer.KwRBrace), eosEv},
		},
	})
}

func TestLexerStringLiterals(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "simple string",
			input:    `{"hello"}` + "\n",
			expected: []event{kwEv(lexer.KwLBrace), strEv("hello"), kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:     "common escapes",
			input:    `{"a\tb\nc"}` + "\n",
			expected: []event{kwEv(lexer.KwLBrace), strEv("a\tb\nc"), kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:     "octal escape",
			input:    `{"\101"}` + "\n", // \101 octal = 'A'
			expected: []event{kwEv(lexer.KwLBrace), strEv("A"), kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:     "hex escape",
			input:    `{"\x41"}` + "\n",
			expected: []event{kwEv(lexer.KwLBrace), strEv("A"), kwEv(lexer.KwRBrace), eosEv},
		},
		{
			name:     "low unicode escape",
			input:    `{"\u` + `00e9"}` + "\n",
			expected: []event{kwEv(lexer.KwLBrace), strEv("é"), kwEv(lexer.KwRBrace), eosEv},
		},
	})
}

func TestLexerUnterminatedString(t *testing.T) {
	// Scenario 8: a newline inside a quoted string is a lexical error, and
	// the lexer recovers silently to the next statement without ever
	// synthesizing an EndOfStatement for the broken line.
	events := scanSplit("G1 X{\"oops\n", 0)
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	last := events[len(events)-1]
	if last.Kind != lexer.TokErrorSentinel || last.Code != types.ErrUnterminatedString {
		t.Fatalf("expected the stream to end on an ErrUnterminatedString sentinel, got %+v", last)
	}
	for _, e := range events {
		if e.Kind == lexer.TokEndOfStatement {
			t.Fatalf("unterminated string must not synthesize EndOfStatement, got %+v", events)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "decimal zero pair is integer zero", input: "{00}\n", expected: []event{kwEv(lexer.KwLBrace), intEv(0), kwEv(lexer.KwRBrace), eosEv}},
		{name: "hex literal", input: "{0x1A}\n", expected: []event{kwEv(lexer.KwLBrace), intEv(26), kwEv(lexer.KwRBrace), eosEv}},
		{name: "binary literal", input: "{0b101}\n", expected: []event{kwEv(lexer.KwLBrace), intEv(5), kwEv(lexer.KwRBrace), eosEv}},
		{name: "octal literal", input: "{017}\n", expected: []event{kwEv(lexer.KwLBrace), intEv(15), kwEv(lexer.KwRBrace), eosEv}},
		{name: "decimal float", input: "{1.5}\n", expected: []event{kwEv(lexer.KwLBrace), fltEv(1.5), kwEv(lexer.KwRBrace), eosEv}},
		{name: "leading-dot float", input: "{.25}\n", expected: []event{kwEv(lexer.KwLBrace), fltEv(0.25), kwEv(lexer.KwRBrace), eosEv}},
		{name: "decimal exponent", input: "{1e3}\n", expected: []event{kwEv(lexer.KwLBrace), fltEv(1000), kwEv(lexer.KwRBrace), eosEv}},
		{name: "negative exponent", input: "{5e-2}\n", expected: []event{kwEv(lexer.KwLBrace), fltEv(0.05), kwEv(lexer.KwRBrace), eosEv}},
	})
}

func TestLexerOctalLeadingZeroDigit(t *testing.T) {
	// SPEC_FULL §9 open question, resolved per the source: "0" followed by
	// 8 or 9 is a lexical error under the octal rule.
	events := scanSplit("{09}\n", 0)
	foundErr := false
	for _, e := range events {
		if e.Kind == lexer.TokErrorSentinel {
			foundErr = true
			if e.Code != types.ErrLeadingZeroDigit {
				t.Fatalf("expected ErrLeadingZeroDigit, got %+v", e)
			}
		}
		if e.Kind == lexer.TokInt || e.Kind == lexer.TokFloat {
			t.Fatalf("illegal octal digit must not produce a numeric token, got %+v", events)
		}
	}
	if !foundErr {
		t.Fatalf("expected a lexical error, got %+v", events)
	}
}

func TestLexerIntegerLiteralOverflowPromotesToFloat(t *testing.T) {
	// SPEC_FULL §4.2: overflow promotes to float before the digit that
	// overflows; the literal below has far more digits than int64 can hold.
	events := scanSplit("{99999999999999999999}\n", 0)
	var got *event
	for i := range events {
		if events[i].Kind == lexer.TokFloat {
			got = &events[i]
		}
		if events[i].Kind == lexer.TokInt {
			t.Fatalf("overflowing literal must not emit an Int token, got %+v", events)
		}
	}
	if got == nil {
		t.Fatalf("expected a Float token from overflow promotion, got %+v", events)
	}
	if got.Flt < 1e19 || math.IsInf(got.Flt, 0) {
		t.Fatalf("unexpected promoted float value %v", got.Flt)
	}
}

func TestLexerUnknownOperator(t *testing.T) {
	events := scanSplit("{1 @@ 2}\n", 0)
	foundErr := false
	for _, e := range events {
		if e.Kind == lexer.TokErrorSentinel {
			foundErr = true
			if e.Code != types.ErrUnknownOperator {
				t.Fatalf("expected ErrUnknownOperator, got %+v", e)
			}
		}
	}
	if !foundErr {
		t.Fatalf("expected an illegal-operator lexical error, got %+v", events)
	}
}
