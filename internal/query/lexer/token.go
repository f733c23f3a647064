// Package lexer tokenizes the restricted Cypher-like query language of spec
// §4.5 (component I).
package lexer

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Identifier
	Parameter // $name
	IntLiteral
	FloatLiteral
	StringLiteral

	// Keywords
	MATCH
	OPTIONAL
	WHERE
	RETURN
	CREATE
	DELETE
	DETACH
	SET
	REMOVE
	MERGE
	WITH
	UNWIND
	ORDER
	BY
	SKIP
	LIMIT
	ASC
	DESC
	AS
	DISTINCT
	UNION
	ALL
	CALL
	YIELD
	FOREACH
	IN
	ON
	CASE
	WHEN
	THEN
	ELSE
	END
	AND
	OR
	XOR
	NOT
	TRUE
	FALSE
	NULL
	IS
	CONTAINS
	STARTS
	ENDS

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Colon
	Comma
	Dot
	DotDot
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	Plus
	Minus
	Star
	Slash
	Percent
	ArrowRight  // ->
	ArrowLeft   // <-
	ArrowBothLong // -->
	ArrowLeftLong // <--
	Dash        // --
)

var keywords = map[string]Kind{
	"MATCH": MATCH, "OPTIONAL": OPTIONAL, "WHERE": WHERE, "RETURN": RETURN,
	"CREATE": CREATE, "DELETE": DELETE, "DETACH": DETACH, "SET": SET,
	"REMOVE": REMOVE, "MERGE": MERGE, "WITH": WITH, "UNWIND": UNWIND,
	"ORDER": ORDER, "BY": BY, "SKIP": SKIP, "LIMIT": LIMIT, "ASC": ASC,
	"DESC": DESC, "AS": AS, "DISTINCT": DISTINCT, "UNION": UNION, "ALL": ALL,
	"CALL": CALL, "YIELD": YIELD, "FOREACH": FOREACH, "IN": IN, "ON": ON,
	"CASE": CASE, "WHEN": WHEN, "THEN": THEN, "ELSE": ELSE, "END": END,
	"AND": AND, "OR": OR, "XOR": XOR, "NOT": NOT, "TRUE": TRUE, "FALSE": FALSE,
	"NULL": NULL, "IS": IS, "CONTAINS": CONTAINS, "STARTS": STARTS, "ENDS": ENDS,
}

// Token is a single lexical unit.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}
