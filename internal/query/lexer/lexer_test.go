package lexer

import "testing"

func kinds(t *testing.T, src string) []Kind {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	out := make([]Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeSimpleMatch(t *testing.T) {
	got := kinds(t, "MATCH (p:Person) WHERE p.age > $a RETURN p.name LIMIT 2")
	want := []Kind{
		MATCH, LParen, Identifier, Colon, Identifier, RParen,
		WHERE, Identifier, Dot, Identifier, Greater, Parameter,
		RETURN, Identifier, Dot, Identifier, LIMIT, IntLiteral, EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeKeywordsCaseInsensitive(t *testing.T) {
	got := kinds(t, "match return where")
	want := []Kind{MATCH, RETURN, WHERE, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeStringLiteralWithEscapes(t *testing.T) {
	toks, err := Tokenize(`RETURN 'it\'s here'`)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if toks[1].Kind != StringLiteral || toks[1].Text != "it's here" {
		t.Fatalf("expected unescaped string literal, got %+v", toks[1])
	}
}

func TestTokenizeFloatAndInt(t *testing.T) {
	toks, err := Tokenize("3.14 42")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if toks[0].Kind != FloatLiteral || toks[0].Text != "3.14" {
		t.Fatalf("expected float literal, got %+v", toks[0])
	}
	if toks[1].Kind != IntLiteral || toks[1].Text != "42" {
		t.Fatalf("expected int literal, got %+v", toks[1])
	}
}

func TestTokenizeRelationshipArrows(t *testing.T) {
	got := kinds(t, "--> <-- -> <- --")
	want := []Kind{ArrowBothLong, ArrowLeftLong, ArrowRight, ArrowLeft, Dash, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeSkipsComments(t *testing.T) {
	got := kinds(t, "MATCH // comment\n (p) /* block */ RETURN p")
	want := []Kind{MATCH, LParen, Identifier, RParen, RETURN, Identifier, EOF}
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d", len(got), len(want))
	}
}

func TestTokenizeBacktickIdentifier(t *testing.T) {
	toks, err := Tokenize("`my var`")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if toks[0].Kind != Identifier || toks[0].Text != "my var" {
		t.Fatalf("expected backtick identifier, got %+v", toks[0])
	}
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := Tokenize("'unterminated")
	if err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}
