package executor

import (
	"fmt"
	"strings"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
)

// evalCell evaluates expr against r (the current row's variable bindings,
// nil when expr cannot reference one, e.g. an index seek's literal value)
// and the query's parameters.
func (c *execCtx) evalCell(expr ast.Expr, r row) (Cell, error) {
	switch e := expr.(type) {
	case ast.Literal:
		return Cell{Value: e.Value}, nil

	case ast.ParameterRef:
		v, ok := c.params[e.Name]
		if !ok {
			return Cell{}, fmt.Errorf("%w: unbound parameter $%s", qerrors.ErrExecution, e.Name)
		}
		return Cell{Value: v}, nil

	case ast.Variable:
		id, ok := r[e.Name]
		if !ok {
			return Cell{}, fmt.Errorf("%w: unbound variable %q", qerrors.ErrExecution, e.Name)
		}
		n, err := c.g.GetNode(id)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Node: n}, nil

	case ast.PropertyAccess:
		id, ok := r[e.Entity]
		if !ok {
			return Cell{}, fmt.Errorf("%w: unbound variable %q", qerrors.ErrExecution, e.Entity)
		}
		n, err := c.g.GetNode(id)
		if err != nil {
			return Cell{}, err
		}
		if n == nil {
			return Cell{Value: property.Null()}, nil
		}
		v, ok := n.Properties[e.Property]
		if !ok {
			return Cell{Value: property.Null()}, nil
		}
		return Cell{Value: v}, nil

	case ast.BinaryExpr:
		return c.evalBinary(e, r)

	case ast.UnaryNot:
		ok, err := c.evalPredicate(e.Operand, r)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Value: property.Bool(!ok)}, nil

	case ast.IsNullExpr:
		cell, err := c.evalCell(e.Operand, r)
		if err != nil {
			return Cell{}, err
		}
		isNull := !cell.IsNode() && cell.Value.IsNull()
		if e.Negated {
			isNull = !isNull
		}
		return Cell{Value: property.Bool(isNull)}, nil

	default:
		return Cell{}, fmt.Errorf("%w: unsupported expression %T", qerrors.ErrExecution, expr)
	}
}

// evalPredicate evaluates expr and requires a boolean result. Any
// non-boolean result (including null) excludes the row rather than erroring
// (spec §4.5).
func (c *execCtx) evalPredicate(expr ast.Expr, r row) (bool, error) {
	cell, err := c.evalCell(expr, r)
	if err != nil {
		return false, err
	}
	if cell.IsNode() || cell.Value.Kind != property.KindBool {
		return false, nil
	}
	return cell.Value.Bool, nil
}

func (c *execCtx) evalBinary(e ast.BinaryExpr, r row) (Cell, error) {
	switch e.Op {
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		left, err := c.evalPredicate(e.Left, r)
		if err != nil {
			return Cell{}, err
		}
		right, err := c.evalPredicate(e.Right, r)
		if err != nil {
			return Cell{}, err
		}
		switch e.Op {
		case ast.OpAnd:
			return Cell{Value: property.Bool(left && right)}, nil
		case ast.OpOr:
			return Cell{Value: property.Bool(left || right)}, nil
		default: // OpXor
			return Cell{Value: property.Bool(left != right)}, nil
		}
	}

	left, err := c.evalCell(e.Left, r)
	if err != nil {
		return Cell{}, err
	}
	right, err := c.evalCell(e.Right, r)
	if err != nil {
		return Cell{}, err
	}
	if left.IsNode() || right.IsNode() {
		return Cell{}, fmt.Errorf("%w: binary operator applied to a bound entity", qerrors.ErrExecution)
	}

	switch e.Op {
	case ast.OpEqual:
		return Cell{Value: property.Bool(left.Value.Equal(right.Value))}, nil
	case ast.OpNotEqual:
		return Cell{Value: property.Bool(!left.Value.Equal(right.Value))}, nil
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		return compareCell(e.Op, left.Value, right.Value)
	case ast.OpPlus, ast.OpMinus, ast.OpMultiply, ast.OpDivide, ast.OpModulo:
		return arithmeticCell(e.Op, left.Value, right.Value)
	case ast.OpContains:
		return Cell{Value: property.Bool(strings.Contains(left.Value.Str, right.Value.Str))}, nil
	case ast.OpStartsWith:
		return Cell{Value: property.Bool(strings.HasPrefix(left.Value.Str, right.Value.Str))}, nil
	case ast.OpEndsWith:
		return Cell{Value: property.Bool(strings.HasSuffix(left.Value.Str, right.Value.Str))}, nil
	case ast.OpIn:
		for _, v := range right.Value.List {
			if left.Value.Equal(v) {
				return Cell{Value: property.Bool(true)}, nil
			}
		}
		return Cell{Value: property.Bool(false)}, nil
	default:
		return Cell{}, fmt.Errorf("%w: unsupported binary operator", qerrors.ErrExecution)
	}
}

// compareCell implements the ordered comparisons, promoting int/float
// mixed-kind operands to float rather than following property.Compare's
// mismatched-kind-is-equal rule, since a numeric comparison between an int
// property and a float literal is a common, well-defined case (spec §3.2).
func compareCell(op ast.BinaryOp, left, right property.Value) (Cell, error) {
	var cmp int
	if isNumeric(left) && isNumeric(right) {
		lf, rf := asFloat(left), asFloat(right)
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		cmp = property.Compare(left, right)
	}

	switch op {
	case ast.OpLess:
		return Cell{Value: property.Bool(cmp < 0)}, nil
	case ast.OpLessEqual:
		return Cell{Value: property.Bool(cmp <= 0)}, nil
	case ast.OpGreater:
		return Cell{Value: property.Bool(cmp > 0)}, nil
	default: // OpGreaterEqual
		return Cell{Value: property.Bool(cmp >= 0)}, nil
	}
}

func arithmeticCell(op ast.BinaryOp, left, right property.Value) (Cell, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return Cell{}, fmt.Errorf("%w: arithmetic on non-numeric operand", qerrors.ErrExecution)
	}
	if left.Kind == property.KindInt && right.Kind == property.KindInt {
		l, r := left.Int, right.Int
		switch op {
		case ast.OpPlus:
			return Cell{Value: property.Int(l + r)}, nil
		case ast.OpMinus:
			return Cell{Value: property.Int(l - r)}, nil
		case ast.OpMultiply:
			return Cell{Value: property.Int(l * r)}, nil
		case ast.OpDivide:
			if r == 0 {
				return Cell{}, fmt.Errorf("%w: division by zero", qerrors.ErrExecution)
			}
			return Cell{Value: property.Int(l / r)}, nil
		default: // OpModulo
			if r == 0 {
				return Cell{}, fmt.Errorf("%w: modulo by zero", qerrors.ErrExecution)
			}
			return Cell{Value: property.Int(l % r)}, nil
		}
	}

	l, r := asFloat(left), asFloat(right)
	switch op {
	case ast.OpPlus:
		return Cell{Value: property.Float(l + r)}, nil
	case ast.OpMinus:
		return Cell{Value: property.Float(l - r)}, nil
	case ast.OpMultiply:
		return Cell{Value: property.Float(l * r)}, nil
	case ast.OpDivide:
		return Cell{Value: property.Float(l / r)}, nil
	default: // OpModulo is undefined for floats; truncate via int conversion
		return Cell{Value: property.Float(float64(int64(l) % int64(r)))}, nil
	}
}

func isNumeric(v property.Value) bool {
	return v.Kind == property.KindInt || v.Kind == property.KindFloat
}

func asFloat(v property.Value) float64 {
	if v.Kind == property.KindInt {
		return float64(v.Int)
	}
	return v.Float
}
