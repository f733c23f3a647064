// Package planner turns a parsed query (internal/query/ast) into a tree of
// physical operators with per-operator cost estimates (spec §4.5, component
// J). The v1 grammar only ever produces a NodeScan/IndexSeek feeding
// Filter/Project/OrderBy/Skip/Limit; the remaining operators (IndexScan,
// Expand, HashJoin, NestedLoopJoin, Distinct, Aggregate) are modelled for a future
// grammar revision and for direct construction by callers that build plans
// programmatically.
package planner

import (
	"fmt"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
)

// Catalog is the slice of graph state the planner needs to choose between a
// scan and an index lookup and to estimate cardinalities. *graph.Graph and
// *graph.Schema satisfy it directly.
type Catalog interface {
	HasIndex(label, property string) bool
	CountByLabel(label string) (int, error)
	CountAll() (int, error)
}

// filterSelectivity is the default fraction of rows a Filter is assumed to
// pass through when no better estimate is available (spec §4.5).
const filterSelectivity = 0.1

// indexSeekCost is the small constant cost assigned to an index point lookup,
// independent of table size.
const indexSeekCost = 1.0

// Operator is one physical step of a query plan. Every concrete operator
// carries its own estimated cost and row count, computed once at Plan time.
type Operator interface {
	EstimatedCost() float64
	EstimatedRows() float64
}

type base struct {
	cost float64
	rows float64
}

func (b base) EstimatedCost() float64 { return b.cost }
func (b base) EstimatedRows() float64 { return b.rows }

// NodeScan emits one row per node, optionally restricted to a label. The
// row binds Variable to the node's id.
type NodeScan struct {
	base
	Variable string
	Label    string // empty means every node in the graph
}

// IndexSeek emits rows whose (Label, Property) equals Value's result. The
// row binds Variable to the matching node's id.
type IndexSeek struct {
	base
	Variable string
	Label    string
	Property string
	Value    ast.Expr
}

// IndexScan emits rows whose (Label, Property) falls within [Min, Max]
// (either bound may be nil for an open range). The row binds Variable to
// the matching node's id.
type IndexScan struct {
	base
	Variable string
	Label    string
	Property string
	Min, Max ast.Expr
}

// Filter forwards input rows for which Predicate evaluates to boolean true.
type Filter struct {
	base
	Input     Operator
	Predicate ast.Expr
}

// Project emits one row per input, bound to Items.
type Project struct {
	base
	Input Operator
	Items []ast.ReturnItem
}

// ExpandDirection mirrors the traversal direction of internal/graph.
type ExpandDirection int

const (
	ExpandOut ExpandDirection = iota
	ExpandIn
	ExpandBoth
)

// Expand follows relationships from each input row's bound node, emitting
// one row per neighbour. Not reachable from the v1 grammar.
type Expand struct {
	base
	Input     Operator
	From      string // the already-bound variable to expand from
	Variable  string // binds the neighbour's node id
	Direction ExpandDirection
	RelType   string // empty means any type
}

// HashJoin binds two operators' rows by an equi-join key. Modelled; not
// reachable from the v1 grammar.
type HashJoin struct {
	base
	Left, Right       Operator
	LeftKey, RightKey ast.Expr
}

// NestedLoopJoin binds two operators' rows by an arbitrary predicate.
// Modelled; not reachable from the v1 grammar.
type NestedLoopJoin struct {
	base
	Left, Right Operator
	Predicate   ast.Expr
}

// OrderBy totally sorts input by a sequence of keys, stable for equal keys.
type OrderBy struct {
	base
	Input Operator
	Keys  []ast.OrderItem
}

// Limit truncates input to at most Count rows.
type Limit struct {
	base
	Input Operator
	Count int64
}

// Skip drops the first Count input rows.
type Skip struct {
	base
	Input Operator
	Count int64
}

// Distinct deduplicates full rows. Modelled; not reachable from the v1
// grammar.
type Distinct struct {
	base
	Input Operator
}

// AggregateFunc names one of the spec's aggregate functions.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggCollect
)

// AggregateItem is one computed aggregate column.
type AggregateItem struct {
	Func  AggregateFunc
	Arg   ast.Expr
	Alias string
}

// Aggregate groups input by GroupBy and computes Items per group. Modelled;
// not parsed in v1.
type Aggregate struct {
	base
	Input   Operator
	GroupBy []ast.Expr
	Items   []AggregateItem
}

// Plan builds the physical operator tree for stmt against cat. It implements
// the v1 shape only: NodeScan/IndexSeek feeding Filter, Project, OrderBy,
// Skip, and Limit, in that order when each clause is present.
func Plan(stmt *ast.Statement, cat Catalog) (Operator, error) {
	if stmt == nil || stmt.Match == nil {
		return nil, qerrors.Wrap("planner.Plan", fmt.Errorf("%w: statement has no MATCH clause", qerrors.ErrInvalidQuery))
	}

	op, err := planScan(stmt, cat)
	if err != nil {
		return nil, err
	}

	if stmt.Where != nil {
		op = newFilter(op, stmt.Where)
	}

	if stmt.Return != nil {
		op = newProject(op, stmt.Return.Items)
	}

	if len(stmt.OrderBy) > 0 {
		op = newOrderBy(op, stmt.OrderBy)
	}

	if stmt.Skip != nil {
		op = newSkip(op, *stmt.Skip)
	}

	if stmt.Limit != nil {
		op = newLimit(op, *stmt.Limit)
	}

	return op, nil
}

// planScan picks NodeScan vs IndexSeek for the match pattern: an equality
// property in the pattern's literal map against a declared index becomes a
// seek, everything else is a (possibly labelled) scan.
func planScan(stmt *ast.Statement, cat Catalog) (Operator, error) {
	pattern := stmt.Match.Pattern

	for propName, expr := range pattern.Properties {
		if pattern.Label != "" && cat.HasIndex(pattern.Label, propName) {
			return newIndexSeek(pattern.Variable, pattern.Label, propName, expr), nil
		}
	}

	return newNodeScan(pattern.Variable, pattern.Label, cat)
}

func newNodeScan(variable, label string, cat Catalog) (*NodeScan, error) {
	var (
		n   int
		err error
	)
	if label != "" {
		n, err = cat.CountByLabel(label)
	} else {
		n, err = cat.CountAll()
	}
	if err != nil {
		return nil, qerrors.Wrap("planner.planScan", err)
	}
	rows := float64(n)
	return &NodeScan{base: base{cost: rows, rows: rows}, Variable: variable, Label: label}, nil
}

func newIndexSeek(variable, label, propName string, value ast.Expr) *IndexSeek {
	return &IndexSeek{
		base:     base{cost: indexSeekCost, rows: 1},
		Variable: variable,
		Label:    label,
		Property: propName,
		Value:    value,
	}
}

// NewIndexScan constructs a range-seek operator directly; used by callers
// that build plans without going through Plan (e.g. a future BETWEEN
// grammar extension).
func NewIndexScan(variable, label, propName string, min, max ast.Expr, estimatedRows float64) *IndexScan {
	return &IndexScan{
		base:     base{cost: indexSeekCost * 2, rows: estimatedRows},
		Variable: variable,
		Label:    label,
		Property: propName,
		Min:      min,
		Max:      max,
	}
}

func newFilter(input Operator, predicate ast.Expr) *Filter {
	rows := input.EstimatedRows() * filterSelectivity
	return &Filter{
		base:      base{cost: input.EstimatedCost() * 1.2, rows: rows},
		Input:     input,
		Predicate: predicate,
	}
}

func newProject(input Operator, items []ast.ReturnItem) *Project {
	return &Project{
		base:  base{cost: input.EstimatedCost() * 1.05, rows: input.EstimatedRows()},
		Input: input,
		Items: items,
	}
}

// NewExpand constructs an Expand operator directly; not reachable from the
// v1 grammar but exposed for programmatic plan construction.
func NewExpand(input Operator, from, variable string, dir ExpandDirection, relType string, estimatedRows float64) *Expand {
	return &Expand{
		base:      base{cost: input.EstimatedCost() + estimatedRows, rows: estimatedRows},
		Input:     input,
		From:      from,
		Variable:  variable,
		Direction: dir,
		RelType:   relType,
	}
}

// NewHashJoin constructs a HashJoin operator directly; not reachable from
// the v1 grammar.
func NewHashJoin(left, right Operator, leftKey, rightKey ast.Expr) *HashJoin {
	return &HashJoin{
		base:     base{cost: left.EstimatedCost() + right.EstimatedCost(), rows: minFloat(left.EstimatedRows(), right.EstimatedRows())},
		Left:     left,
		Right:    right,
		LeftKey:  leftKey,
		RightKey: rightKey,
	}
}

// NewNestedLoopJoin constructs a NestedLoopJoin operator directly; not
// reachable from the v1 grammar.
func NewNestedLoopJoin(left, right Operator, predicate ast.Expr) *NestedLoopJoin {
	return &NestedLoopJoin{
		base:      base{cost: left.EstimatedCost() * right.EstimatedCost(), rows: left.EstimatedRows() * right.EstimatedRows() * filterSelectivity},
		Left:      left,
		Right:     right,
		Predicate: predicate,
	}
}

func newOrderBy(input Operator, keys []ast.OrderItem) *OrderBy {
	return &OrderBy{
		base:  base{cost: input.EstimatedCost() * 2, rows: input.EstimatedRows()},
		Input: input,
		Keys:  keys,
	}
}

func newSkip(input Operator, count int64) *Skip {
	rows := input.EstimatedRows() - float64(count)
	if rows < 0 {
		rows = 0
	}
	return &Skip{base: base{cost: input.EstimatedCost(), rows: rows}, Input: input, Count: count}
}

func newLimit(input Operator, count int64) *Limit {
	rows := input.EstimatedRows()
	if rows > float64(count) {
		rows = float64(count)
	}
	return &Limit{base: base{cost: input.EstimatedCost(), rows: rows}, Input: input, Count: count}
}

// NewDistinct constructs a Distinct operator directly; not reachable from
// the v1 grammar.
func NewDistinct(input Operator) *Distinct {
	return &Distinct{base: base{cost: input.EstimatedCost() * 1.5, rows: input.EstimatedRows()}, Input: input}
}

// NewAggregate constructs an Aggregate operator directly; not parsed in v1.
func NewAggregate(input Operator, groupBy []ast.Expr, items []AggregateItem) *Aggregate {
	rows := input.EstimatedRows() * filterSelectivity
	if len(groupBy) == 0 {
		rows = 1
	}
	return &Aggregate{
		base:    base{cost: input.EstimatedCost() * 1.5, rows: rows},
		Input:   input,
		GroupBy: groupBy,
		Items:   items,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
