package parser

import (
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
)

// ParseSimpleLookup builds the AST for a single-clause property lookup
// (`label, property, value`) directly, without a lexer/parser round-trip.
// It is equivalent to parsing `MATCH (n:label) WHERE n.property = value
// RETURN n`, for callers that already have the three parts in hand.
func ParseSimpleLookup(label, property_ string, value property.Value) *ast.Statement {
	const variable = "n"
	return &ast.Statement{
		Match: &ast.MatchClause{Pattern: ast.NodePattern{Variable: variable, Label: label}},
		Where: ast.BinaryExpr{
			Op:    ast.OpEqual,
			Left:  ast.PropertyAccess{Entity: variable, Property: property_},
			Right: ast.Literal{Value: value},
		},
		Return: &ast.ReturnClause{Items: []ast.ReturnItem{{Expr: ast.Variable{Name: variable}}}},
	}
}
