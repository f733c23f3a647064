// Package executor pulls rows from a planner.Operator tree and evaluates
// the query language's expressions over them (spec §4.5, component K).
package executor

import (
	"fmt"
	"sort"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/graph"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
	"github.com/qilbeedb/qilbeedb/internal/query/planner"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

// row binds pattern variables to node ids, the executor's per-row
// environment before projection (spec §4.5).
type row map[string]uint64

// Cell is one projected column's value: either a bound entity (whole node)
// or a scalar property.Value.
type Cell struct {
	Node  *storage.Node
	Value property.Value
}

// IsNode reports whether the cell holds a whole entity rather than a scalar.
func (c Cell) IsNode() bool { return c.Node != nil }

// ProjectedRow is one output row: a slice of cells aligned with Result.Columns.
type ProjectedRow struct {
	Cells []Cell
}

// Stats accumulates execution statistics (spec §4.5).
type Stats struct {
	NodesScanned int
	IndexHits    int
	RowsReturned int
	Elapsed      time.Duration
}

// Result is a finished query's projected rows plus column names and stats.
type Result struct {
	Columns []string
	Rows    []ProjectedRow
	Stats   Stats
}

type execCtx struct {
	g      *graph.Graph
	params map[string]property.Value
	stats  Stats
}

// Execute runs op to completion against g, with params bound for every
// $name reference, and returns the projected result.
func Execute(op planner.Operator, g *graph.Graph, params map[string]property.Value) (*Result, error) {
	start := time.Now()
	ctx := &execCtx{g: g, params: params}

	rows, columns, err := ctx.execProjected(op)
	if err != nil {
		return nil, qerrors.Wrap("executor.Execute", err)
	}
	ctx.stats.RowsReturned = len(rows)
	ctx.stats.Elapsed = time.Since(start)

	return &Result{Columns: columns, Rows: rows, Stats: ctx.stats}, nil
}

// execProjected runs any operator that may appear above a Project in the
// plan tree (Project itself, OrderBy, Skip, Limit, Distinct, Aggregate), and
// falls back to wrapping a bare scan-level operator in an implicit
// single-column projection of its leading bound variable.
func (c *execCtx) execProjected(op planner.Operator) ([]ProjectedRow, []string, error) {
	switch o := op.(type) {
	case *planner.Project:
		return c.runProject(o)
	case *planner.OrderBy:
		rows, cols, err := c.execProjected(o.Input)
		if err != nil {
			return nil, nil, err
		}
		return c.runOrderBy(o, rows, cols), cols, nil
	case *planner.Skip:
		rows, cols, err := c.execProjected(o.Input)
		if err != nil {
			return nil, nil, err
		}
		return skipRows(rows, o.Count), cols, nil
	case *planner.Limit:
		rows, cols, err := c.execProjected(o.Input)
		if err != nil {
			return nil, nil, err
		}
		return limitRows(rows, o.Count), cols, nil
	case *planner.Distinct:
		rows, cols, err := c.execProjected(o.Input)
		if err != nil {
			return nil, nil, err
		}
		return distinctRows(rows), cols, nil
	case *planner.Aggregate:
		return c.runAggregate(o)
	default:
		rows, err := c.execRows(op)
		if err != nil {
			return nil, nil, err
		}
		out, err := c.implicitProject(rows)
		if err != nil {
			return nil, nil, err
		}
		return out, []string{"n"}, nil
	}
}

func (c *execCtx) runProject(p *planner.Project) ([]ProjectedRow, []string, error) {
	rows, err := c.execRows(p.Input)
	if err != nil {
		return nil, nil, err
	}
	columns := make([]string, len(p.Items))
	for i, item := range p.Items {
		columns[i] = projectionName(item)
	}
	out := make([]ProjectedRow, 0, len(rows))
	for _, r := range rows {
		cells := make([]Cell, len(p.Items))
		for i, item := range p.Items {
			cell, err := c.evalCell(item.Expr, r)
			if err != nil {
				return nil, nil, err
			}
			cells[i] = cell
		}
		out = append(out, ProjectedRow{Cells: cells})
	}
	return out, columns, nil
}

func projectionName(item ast.ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch e := item.Expr.(type) {
	case ast.Variable:
		return e.Name
	case ast.PropertyAccess:
		return e.Entity + "." + e.Property
	default:
		return ""
	}
}

// implicitProject wraps a bare (Project-less) scan result into a single
// column holding the first bound variable's node, for callers that build a
// plan tree programmatically without a Project on top.
func (c *execCtx) implicitProject(rows []row) ([]ProjectedRow, error) {
	out := make([]ProjectedRow, 0, len(rows))
	for _, r := range rows {
		var id uint64
		for _, v := range r {
			id = v
			break
		}
		n, err := c.g.GetNode(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ProjectedRow{Cells: []Cell{{Node: n}}})
	}
	return out, nil
}

// execRows runs the scan/filter/join level of the plan tree, producing raw
// variable-to-node-id bindings.
func (c *execCtx) execRows(op planner.Operator) ([]row, error) {
	switch o := op.(type) {
	case *planner.NodeScan:
		return c.runNodeScan(o)
	case *planner.IndexSeek:
		return c.runIndexSeek(o)
	case *planner.IndexScan:
		return c.runIndexScan(o)
	case *planner.Filter:
		return c.runFilter(o)
	case *planner.Expand:
		return c.runExpand(o)
	case *planner.HashJoin:
		return c.runNestedLoop(o.Left, o.Right, func(l, r row) (bool, error) {
			lv, err := c.evalCell(o.LeftKey, l)
			if err != nil {
				return false, err
			}
			rv, err := c.evalCell(o.RightKey, r)
			if err != nil {
				return false, err
			}
			return !lv.IsNode() && !rv.IsNode() && lv.Value.Equal(rv.Value), nil
		})
	case *planner.NestedLoopJoin:
		return c.runNestedLoop(o.Left, o.Right, func(l, r row) (bool, error) {
			return c.evalPredicate(o.Predicate, mergeRows(l, r))
		})
	default:
		return nil, fmt.Errorf("%w: unsupported scan operator %T", qerrors.ErrExecution, op)
	}
}

func (c *execCtx) runNodeScan(o *planner.NodeScan) ([]row, error) {
	var (
		nodes []*storage.Node
		err   error
	)
	if o.Label != "" {
		nodes, err = c.g.NodesByLabel(o.Label)
	} else {
		nodes, err = c.g.AllNodes()
	}
	if err != nil {
		return nil, err
	}
	c.stats.NodesScanned += len(nodes)
	out := make([]row, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, row{o.Variable: n.ID})
	}
	return out, nil
}

func (c *execCtx) runIndexSeek(o *planner.IndexSeek) ([]row, error) {
	cell, err := c.evalCell(o.Value, nil)
	if err != nil {
		return nil, err
	}
	nodes, err := c.g.NodesByProperty(o.Label, o.Property, cell.Value)
	if err != nil {
		return nil, err
	}
	c.stats.IndexHits++
	out := make([]row, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, row{o.Variable: n.ID})
	}
	return out, nil
}

func (c *execCtx) runIndexScan(o *planner.IndexScan) ([]row, error) {
	var min, max *property.Value
	if o.Min != nil {
		cell, err := c.evalCell(o.Min, nil)
		if err != nil {
			return nil, err
		}
		min = &cell.Value
	}
	if o.Max != nil {
		cell, err := c.evalCell(o.Max, nil)
		if err != nil {
			return nil, err
		}
		max = &cell.Value
	}
	nodes, err := c.g.NodesByPropertyRange(o.Label, o.Property, min, max)
	if err != nil {
		return nil, err
	}
	c.stats.IndexHits++
	out := make([]row, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, row{o.Variable: n.ID})
	}
	return out, nil
}

func (c *execCtx) runFilter(o *planner.Filter) ([]row, error) {
	rows, err := c.execRows(o.Input)
	if err != nil {
		return nil, err
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		ok, err := c.evalPredicate(o.Predicate, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *execCtx) runExpand(o *planner.Expand) ([]row, error) {
	rows, err := c.execRows(o.Input)
	if err != nil {
		return nil, err
	}
	var dir graph.Direction
	switch o.Direction {
	case planner.ExpandOut:
		dir = graph.Outgoing
	case planner.ExpandIn:
		dir = graph.Incoming
	default:
		dir = graph.Both
	}
	var out []row
	for _, r := range rows {
		id, ok := r[o.From]
		if !ok {
			return nil, fmt.Errorf("%w: unbound variable %q", qerrors.ErrExecution, o.From)
		}
		var rels []*storage.Relationship
		if o.RelType != "" {
			rels, err = c.g.GetRelationshipsByType(id, dir, o.RelType)
		} else {
			rels, err = c.g.GetRelationships(id, dir)
		}
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			neighbor := rel.Target
			if rel.Target == id {
				neighbor = rel.Source
			}
			next := cloneRow(r)
			next[o.Variable] = neighbor
			out = append(out, next)
		}
	}
	return out, nil
}

func (c *execCtx) runNestedLoop(left, right planner.Operator, match func(l, r row) (bool, error)) ([]row, error) {
	leftRows, err := c.execRows(left)
	if err != nil {
		return nil, err
	}
	rightRows, err := c.execRows(right)
	if err != nil {
		return nil, err
	}
	var out []row
	for _, l := range leftRows {
		for _, r := range rightRows {
			ok, err := match(l, r)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, mergeRows(l, r))
			}
		}
	}
	return out, nil
}

// runOrderBy sorts by matching each key expression against the already
// projected columns by name. The parser does not require ORDER BY keys to
// appear in RETURN; a key that matches no returned column name (including
// one that differs from an aliased item's alias) sorts as null for every
// row and so leaves the order unchanged.
func (c *execCtx) runOrderBy(o *planner.OrderBy, rows []ProjectedRow, columns []string) []ProjectedRow {
	out := append([]ProjectedRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, key := range o.Keys {
			name := projectionName(ast.ReturnItem{Expr: key.Expr})
			ci := findColumn(columns, out[i], name)
			cj := findColumn(columns, out[j], name)
			cmp := property.Compare(ci.Value, cj.Value)
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return out
}

func findColumn(columns []string, r ProjectedRow, name string) Cell {
	for i, col := range columns {
		if col == name {
			return r.Cells[i]
		}
	}
	return Cell{Value: property.Null()}
}

func skipRows(rows []ProjectedRow, n int64) []ProjectedRow {
	if n < 0 || int(n) >= len(rows) {
		return nil
	}
	return rows[n:]
}

func limitRows(rows []ProjectedRow, n int64) []ProjectedRow {
	if n < 0 {
		n = 0
	}
	if int(n) >= len(rows) {
		return rows
	}
	return rows[:n]
}

func distinctRows(rows []ProjectedRow) []ProjectedRow {
	seen := make(map[string]bool, len(rows))
	out := make([]ProjectedRow, 0, len(rows))
	for _, r := range rows {
		key := rowKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func rowKey(r ProjectedRow) string {
	var key string
	for _, c := range r.Cells {
		if c.IsNode() {
			key += fmt.Sprintf("|node:%d", c.Node.ID)
			continue
		}
		key += fmt.Sprintf("|%d:%v", c.Value.Kind, c.Value)
	}
	return key
}

func (c *execCtx) runAggregate(o *planner.Aggregate) ([]ProjectedRow, []string, error) {
	rows, err := c.execRows(o.Input)
	if err != nil {
		return nil, nil, err
	}
	columns := make([]string, len(o.Items))
	for i, item := range o.Items {
		if item.Alias != "" {
			columns[i] = item.Alias
		} else {
			columns[i] = aggregateFuncName(item.Func)
		}
	}

	groups := map[string][]row{}
	var order []string
	for _, r := range rows {
		key, err := c.groupKey(o.GroupBy, r)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if len(o.GroupBy) == 0 && len(rows) == 0 {
		order = []string{""}
		groups[""] = nil
	}

	out := make([]ProjectedRow, 0, len(order))
	for _, key := range order {
		cells := make([]Cell, len(o.Items))
		for i, item := range o.Items {
			cell, err := c.aggregateOne(item, groups[key])
			if err != nil {
				return nil, nil, err
			}
			cells[i] = cell
		}
		out = append(out, ProjectedRow{Cells: cells})
	}
	return out, columns, nil
}

func (c *execCtx) groupKey(exprs []ast.Expr, r row) (string, error) {
	var key string
	for _, e := range exprs {
		cell, err := c.evalCell(e, r)
		if err != nil {
			return "", err
		}
		key += fmt.Sprintf("|%v", cell.Value)
	}
	return key, nil
}

func (c *execCtx) aggregateOne(item planner.AggregateItem, rows []row) (Cell, error) {
	switch item.Func {
	case planner.AggCount:
		return Cell{Value: property.Int(int64(len(rows)))}, nil
	case planner.AggCollect:
		vals := make([]property.Value, 0, len(rows))
		for _, r := range rows {
			cell, err := c.evalCell(item.Arg, r)
			if err != nil {
				return Cell{}, err
			}
			vals = append(vals, cell.Value)
		}
		return Cell{Value: property.List(vals)}, nil
	case planner.AggSum, planner.AggAvg, planner.AggMin, planner.AggMax:
		return c.numericAggregate(item, rows)
	default:
		return Cell{}, fmt.Errorf("%w: unknown aggregate function", qerrors.ErrExecution)
	}
}

func (c *execCtx) numericAggregate(item planner.AggregateItem, rows []row) (Cell, error) {
	var sum float64
	var min, max float64
	isFloat := false
	for i, r := range rows {
		cell, err := c.evalCell(item.Arg, r)
		if err != nil {
			return Cell{}, err
		}
		var v float64
		switch cell.Value.Kind {
		case property.KindInt:
			v = float64(cell.Value.Int)
		case property.KindFloat:
			v = cell.Value.Float
			isFloat = true
		default:
			return Cell{}, fmt.Errorf("%w: aggregate over non-numeric value", qerrors.ErrExecution)
		}
		sum += v
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	switch item.Func {
	case planner.AggMin:
		return numericCell(min, isFloat), nil
	case planner.AggMax:
		return numericCell(max, isFloat), nil
	case planner.AggAvg:
		if len(rows) == 0 {
			return Cell{Value: property.Null()}, nil
		}
		return Cell{Value: property.Float(sum / float64(len(rows)))}, nil
	default: // AggSum
		return numericCell(sum, isFloat), nil
	}
}

func numericCell(v float64, isFloat bool) Cell {
	if isFloat {
		return Cell{Value: property.Float(v)}
	}
	return Cell{Value: property.Int(int64(v))}
}

func aggregateFuncName(f planner.AggregateFunc) string {
	switch f {
	case planner.AggCount:
		return "count"
	case planner.AggSum:
		return "sum"
	case planner.AggAvg:
		return "avg"
	case planner.AggMin:
		return "min"
	case planner.AggMax:
		return "max"
	case planner.AggCollect:
		return "collect"
	default:
		return ""
	}
}

func mergeRows(a, b row) row {
	out := make(row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func cloneRow(r row) row {
	out := make(row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
