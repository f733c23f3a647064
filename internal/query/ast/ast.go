// Package ast defines the query language's abstract syntax tree (spec
// §4.5, component I/J). Every clause the lexer/grammar names has a node
// type here, even clauses the v1 recursive-descent parser never produces
// (CREATE, DELETE, SET, MERGE, WITH, UNWIND, CALL, FOREACH, CASE) — they
// round out the AST for a planner or future parser revision to target.
package ast

import "github.com/qilbeedb/qilbeedb/internal/property"

// Statement is a full parsed query: one MATCH clause plus the optional
// WHERE/RETURN/ORDER BY/LIMIT clauses the v1 grammar supports.
type Statement struct {
	Match   *MatchClause
	Where   Expr
	Return  *ReturnClause
	OrderBy []OrderItem
	Skip    *int64
	Limit   *int64
}

// MatchClause holds the single node pattern the v1 grammar supports.
type MatchClause struct {
	Pattern  NodePattern
	Optional bool
}

// NodePattern is `(var:Label {props})`, all parts optional except the
// parentheses.
type NodePattern struct {
	Variable   string
	Label      string
	Properties map[string]Expr
}

// RelationshipPattern models a single edge hop in a path pattern. Not
// reachable from the v1 parser (only single node patterns are supported)
// but modelled for the planner's Expand operator and a future parser.
type RelationshipPattern struct {
	Variable  string
	Type      string
	Direction Direction
	Target    NodePattern
}

// Direction is a relationship pattern's arrow direction.
type Direction int

const (
	DirectionEither Direction = iota
	DirectionOut
	DirectionIn
)

// ReturnClause lists the projected items.
type ReturnClause struct {
	Distinct bool
	Items    []ReturnItem
}

// ReturnItem is a single projected expression, optionally aliased.
type ReturnItem struct {
	Expr  Expr
	Alias string
}

// OrderItem is one `(expr, descending)` sort key.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// Expr is any expression node.
type Expr interface{ exprNode() }

// Literal wraps a constant property.Value.
type Literal struct{ Value property.Value }

// Variable references a bound pattern variable.
type Variable struct{ Name string }

// ParameterRef references a query parameter ($name).
type ParameterRef struct{ Name string }

// PropertyAccess is `entity.property`.
type PropertyAccess struct {
	Entity   string
	Property string
}

// BinaryOp names a binary operator.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpXor
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpContains
	OpStartsWith
	OpEndsWith
	OpIn
)

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryNot negates a boolean expression.
type UnaryNot struct{ Operand Expr }

// IsNullExpr tests `expr IS [NOT] NULL`.
type IsNullExpr struct {
	Operand Expr
	Negated bool
}

// CaseExpr models `CASE [expr] WHEN ... THEN ... ELSE ... END`. Not
// reachable from the v1 parser.
type CaseExpr struct {
	Operand Expr
	Whens   []CaseWhen
	Else    Expr
}

// CaseWhen is one WHEN/THEN arm of a CaseExpr.
type CaseWhen struct {
	When Expr
	Then Expr
}

// The clauses below are modelled so the AST can represent the lexer's full
// keyword set, but the v1 recursive-descent parser never produces them
// (spec §4.5: "all other forms from the AST are modelled but not reachable
// from the parser in v1").

// CreateClause creates nodes/relationships matching a pattern.
type CreateClause struct{ Pattern NodePattern }

// DeleteClause deletes bound variables; Detach also removes adjacency.
type DeleteClause struct {
	Variables []string
	Detach    bool
}

// SetClause assigns properties on a bound variable.
type SetClause struct {
	Variable   string
	Properties map[string]Expr
}

// RemoveClause removes properties or labels from a bound variable.
type RemoveClause struct {
	Variable   string
	Properties []string
	Labels     []string
}

// MergeClause is MATCH-or-CREATE over a single pattern.
type MergeClause struct{ Pattern NodePattern }

// WithClause re-projects bindings for the next clause, with optional
// WHERE filtering.
type WithClause struct {
	Items []ReturnItem
	Where Expr
}

// UnwindClause expands a list expression into one row per element.
type UnwindClause struct {
	List  Expr
	As    string
}

// CallClause invokes a named procedure, optionally yielding bindings.
type CallClause struct {
	Procedure string
	Args      []Expr
	Yield     []string
}

// ForeachClause applies a sub-clause list to each element of a list
// expression.
type ForeachClause struct {
	Variable string
	List     Expr
	Updates  []Expr
}

func (Literal) exprNode()        {}
func (Variable) exprNode()       {}
func (ParameterRef) exprNode()   {}
func (PropertyAccess) exprNode() {}
func (BinaryExpr) exprNode()     {}
func (UnaryNot) exprNode()       {}
func (IsNullExpr) exprNode()     {}
func (CaseExpr) exprNode()       {}
