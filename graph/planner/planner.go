package planner

import (
	"fmt"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
	"github.com/leiyuou/lance-graph/graph/catalog"
)

// supportedAggregates is the aggregate function whitelist.
var supportedAggregates = map[string]bool{
	"count": true,
	"sum":   true,
	"avg":   true,
	"min":   true,
	"max":   true,
}

// Compile turns a parsed query and a catalog into an execution plan. All
// failures here are compile errors: no dataset is touched.
func Compile(q *ast.Query, cat *catalog.Catalog) (*Plan, error) {
	if len(q.Match) == 0 {
		return nil, graph.Errorf(graph.ParseError, "query has no MATCH pattern")
	}
	if len(q.Return) == 0 {
		return nil, graph.Errorf(graph.ParseError, "query has no RETURN items")
	}

	c := &compiler{
		cat:    cat,
		bound:  make(map[string]binding),
		labels: make(map[string]string),
	}

	if err := c.assignVariables(q); err != nil {
		return nil, err
	}
	if err := c.resolveLabels(q); err != nil {
		return nil, err
	}
	if err := c.collectPredicates(q); err != nil {
		return nil, err
	}
	if err := c.checkVariableScope(q); err != nil {
		return nil, err
	}
	if err := checkReturnItems(q.Return); err != nil {
		return nil, err
	}

	for _, path := range q.Match {
		if err := c.compilePath(path); err != nil {
			return nil, err
		}
	}
	c.attachReadyPredicates()
	if len(c.pending) > 0 {
		// checkVariableScope should have rejected these already
		return nil, graph.Errorf(graph.UnboundVariable,
			"predicate %s references variables outside the pattern", c.pending[0])
	}

	if err := c.compileOutput(q); err != nil {
		return nil, err
	}

	outputs := make([]string, len(q.Return))
	for i, item := range q.Return {
		outputs[i] = item.Name()
	}
	return &Plan{Root: c.root, OutputColumns: outputs}, nil
}

type compiler struct {
	cat     *catalog.Catalog
	root    Node
	bound   map[string]binding // variables present in the plan so far
	labels  map[string]string  // node variable -> resolved normalized label
	pending []ast.Expression   // WHERE conjuncts awaiting their variables
	anonSeq int
	relSeq  int
}

// assignVariables names anonymous node and relationship patterns so every
// pattern element has a variable, and rejects a name bound as both.
func (c *compiler) assignVariables(q *ast.Query) error {
	nodeVars := make(map[string]bool)
	relVars := make(map[string]bool)
	for pi := range q.Match {
		path := &q.Match[pi]
		for ni := range path.Nodes {
			if path.Nodes[ni].Variable == "" {
				c.anonSeq++
				path.Nodes[ni].Variable = fmt.Sprintf("_n%d", c.anonSeq)
			}
			nodeVars[path.Nodes[ni].Variable] = true
		}
		for ri := range path.Relationships {
			if path.Relationships[ri].Variable == "" {
				c.relSeq++
				path.Relationships[ri].Variable = fmt.Sprintf("_r%d", c.relSeq)
			}
			relVars[path.Relationships[ri].Variable] = true
		}
	}
	for v := range relVars {
		if nodeVars[v] {
			return graph.Errorf(graph.DuplicateBinding,
				"variable %q is bound as both a node and a relationship", v)
		}
	}
	return nil
}

// resolveLabels resolves every node variable to a label, inferring
// unlabeled endpoints from adjoining typed relationships when the
// endpoint key column identifies exactly one registered label.
func (c *compiler) resolveLabels(q *ast.Query) error {
	// explicit labels first
	for _, path := range q.Match {
		for _, node := range path.Nodes {
			if node.Label == "" {
				continue
			}
			if _, err := c.cat.ResolveLabel(node.Label); err != nil {
				return err
			}
			name := catalog.Normalize(node.Label)
			if existing, ok := c.labels[node.Variable]; ok && existing != name {
				return graph.Errorf(graph.DuplicateBinding,
					"variable %q is bound to labels %q and %q", node.Variable, existing, name)
			}
			c.labels[node.Variable] = name
		}
	}

	// infer the rest from relationship endpoint columns
	for _, path := range q.Match {
		for ri, rel := range path.Relationships {
			relBinding, err := c.cat.ResolveRelationship(rel.Type)
			if err != nil {
				return err
			}
			left, right := path.Nodes[ri], path.Nodes[ri+1]
			leftCols, rightCols := endpointColumns(rel.Direction, relBinding)
			if err := c.inferLabel(left.Variable, leftCols); err != nil {
				return err
			}
			if err := c.inferLabel(right.Variable, rightCols); err != nil {
				return err
			}
		}
	}

	for _, path := range q.Match {
		for _, node := range path.Nodes {
			if _, ok := c.labels[node.Variable]; !ok {
				return graph.Errorf(graph.AmbiguousNodeBinding,
					"node %q has no label and none can be inferred", node.Variable)
			}
		}
	}
	return nil
}

// endpointColumns returns the relationship key columns the left and right
// node of a hop join against. An undirected hop admits both columns on
// each side.
func endpointColumns(d ast.Direction, b catalog.RelationshipBinding) (left, right []string) {
	switch d {
	case ast.DirectionOutgoing:
		return []string{b.FromColumn}, []string{b.ToColumn}
	case ast.DirectionIncoming:
		return []string{b.ToColumn}, []string{b.FromColumn}
	default:
		return []string{b.FromColumn, b.ToColumn}, []string{b.FromColumn, b.ToColumn}
	}
}

// inferLabel binds variable to the unique label whose id column matches
// one of the candidate endpoint columns.
func (c *compiler) inferLabel(variable string, endpointCols []string) error {
	if _, ok := c.labels[variable]; ok {
		return nil
	}
	candidates := make(map[string]bool)
	for _, col := range endpointCols {
		for _, label := range c.cat.LabelsWithIDColumn(col) {
			candidates[label] = true
		}
	}
	if len(candidates) != 1 {
		return graph.Errorf(graph.AmbiguousNodeBinding,
			"node %q has no label and %d candidate labels match its join column",
			variable, len(candidates))
	}
	for label := range candidates {
		c.labels[variable] = label
	}
	return nil
}

// collectPredicates splits WHERE into conjuncts and turns inline node
// properties into equality conjuncts, all awaiting placement.
func (c *compiler) collectPredicates(q *ast.Query) error {
	for _, path := range q.Match {
		for _, node := range path.Nodes {
			for _, prop := range node.Properties {
				if _, ok := prop.Value.(*ast.Parameter); ok {
					return graph.Errorf(graph.ParseError,
						"unsubstituted parameter in properties of %q", node.Variable)
				}
				c.pending = append(c.pending, &ast.Comparison{
					Op:    ast.OpEq,
					Left:  &ast.Property{Variable: node.Variable, Name: prop.Key},
					Right: prop.Value,
				})
			}
		}
	}
	if q.Where != nil {
		if ast.HasAggregate(q.Where) {
			return graph.Errorf(graph.UnsupportedAggregate,
				"aggregate functions are not allowed in WHERE")
		}
		conjuncts := splitConjuncts(q.Where)
		for _, conj := range conjuncts {
			if err := checkStaticTypes(conj); err != nil {
				return err
			}
		}
		c.pending = append(c.pending, conjuncts...)
	}
	return nil
}

// splitConjuncts flattens top-level ANDs. Keeping rows only when every
// conjunct is true matches three-valued AND, so the split preserves
// WHERE semantics.
func splitConjuncts(e ast.Expression) []ast.Expression {
	if b, ok := e.(*ast.Boolean); ok && b.Op == ast.OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expression{e}
}

// checkStaticTypes rejects literal-vs-literal comparisons over
// incompatible kinds at compile time.
func checkStaticTypes(e ast.Expression) error {
	switch expr := e.(type) {
	case *ast.Comparison:
		l, lok := expr.Left.(*ast.Literal)
		r, rok := expr.Right.(*ast.Literal)
		if lok && rok && l.Value != nil && r.Value != nil {
			if _, err := graph.Compare(l.Value, r.Value); err != nil {
				return err
			}
		}
		if err := checkStaticTypes(expr.Left); err != nil {
			return err
		}
		return checkStaticTypes(expr.Right)
	case *ast.Boolean:
		if err := checkStaticTypes(expr.Left); err != nil {
			return err
		}
		return checkStaticTypes(expr.Right)
	case *ast.Not:
		return checkStaticTypes(expr.Expr)
	case *ast.Arithmetic:
		if err := checkStaticTypes(expr.Left); err != nil {
			return err
		}
		return checkStaticTypes(expr.Right)
	case *ast.StringMatch:
		if err := checkStaticTypes(expr.Left); err != nil {
			return err
		}
		return checkStaticTypes(expr.Right)
	}
	return nil
}

// checkVariableScope rejects WHERE/RETURN/ORDER BY references to
// variables no pattern binds.
func (c *compiler) checkVariableScope(q *ast.Query) error {
	patternVars := make(map[string]bool)
	for _, path := range q.Match {
		for _, node := range path.Nodes {
			patternVars[node.Variable] = true
		}
		for _, rel := range path.Relationships {
			patternVars[rel.Variable] = true
		}
	}

	check := func(e ast.Expression, clause string) error {
		for _, v := range e.Variables() {
			if !patternVars[v] {
				return graph.Errorf(graph.UnboundVariable,
					"%s references unbound variable %q", clause, v)
			}
		}
		return nil
	}

	for _, conj := range c.pending {
		if err := check(conj, "WHERE"); err != nil {
			return err
		}
	}
	for _, item := range q.Return {
		if err := check(item.Expr, "RETURN"); err != nil {
			return err
		}
	}
	for _, item := range q.OrderBy {
		if err := check(item.Expr, "ORDER BY"); err != nil {
			return err
		}
	}
	return nil
}

// checkReturnItems validates aggregate usage in RETURN: only whitelisted
// functions, and an aggregate must be the whole return item rather than
// nested inside a larger expression.
func checkReturnItems(items []ast.ReturnItem) error {
	for _, item := range items {
		if !ast.HasAggregate(item.Expr) {
			continue
		}
		agg, ok := item.Expr.(*ast.Aggregate)
		if !ok {
			return graph.Errorf(graph.UnsupportedAggregate,
				"aggregate must be a top-level RETURN expression: %s", item.Expr)
		}
		if !supportedAggregates[agg.Func] {
			return graph.Errorf(graph.UnsupportedAggregate,
				"unsupported aggregate function %q", agg.Func)
		}
		if agg.Arg != nil && ast.HasAggregate(agg.Arg) {
			return graph.Errorf(graph.UnsupportedAggregate,
				"nested aggregate in %s", item.Expr)
		}
		if agg.Arg == nil && agg.Func != "count" {
			return graph.Errorf(graph.UnsupportedAggregate,
				"%s(*) is not supported, only count(*)", agg.Func)
		}
	}
	return nil
}

// compilePath extends the plan with one MATCH path, scanning new node
// variables and joining each relationship hop on the catalog-derived key
// columns.
func (c *compiler) compilePath(path ast.PathPattern) error {
	if err := c.ensureNode(path.Nodes[0]); err != nil {
		return err
	}
	c.attachReadyPredicates()

	for ri, rel := range path.Relationships {
		if err := c.compileHop(path.Nodes[ri], rel, path.Nodes[ri+1]); err != nil {
			return err
		}
		c.attachReadyPredicates()
	}
	return nil
}

// ensureNode scans the table of a node variable not yet in the plan.
// Disjoint patterns combine as a cross product.
func (c *compiler) ensureNode(node ast.NodePattern) error {
	if _, ok := c.bound[node.Variable]; ok {
		return nil
	}
	label := c.labels[node.Variable]
	nb, err := c.cat.ResolveLabel(label)
	if err != nil {
		return err
	}
	scan := c.filteredScan(&Scan{Variable: node.Variable, Dataset: nb.Table, Label: label}, node.Variable)
	c.bound[node.Variable] = binding{
		idColumn: node.Variable + "." + nb.IDColumn,
		node:     nb,
		isNode:   true,
	}
	if c.root == nil {
		c.root = scan
	} else {
		c.root = &Join{Left: c.root, Right: scan}
	}
	return nil
}

// compileHop joins one relationship pattern between two node patterns
// into the plan. Undirected hops compile to the union of both
// orientations, outgoing first.
func (c *compiler) compileHop(left ast.NodePattern, rel ast.RelationshipPattern, right ast.NodePattern) error {
	relBinding, err := c.cat.ResolveRelationship(rel.Type)
	if err != nil {
		return err
	}
	if _, ok := c.bound[left.Variable]; !ok {
		if err := c.ensureNode(left); err != nil {
			return err
		}
	}

	relScan := &Scan{
		Variable: rel.Variable,
		Dataset:  relBinding.Table,
		Label:    catalog.Normalize(rel.Type),
	}
	c.bound[rel.Variable] = binding{}

	if rel.Direction == ast.DirectionEither {
		base := c.root
		rightWasBound := c.hasNode(right.Variable)
		pendingSnapshot := c.pending
		out, err := c.orientedJoin(base, relScan, left, rel.Variable, relBinding.FromColumn, relBinding.ToColumn, right)
		if err != nil {
			return err
		}
		// rebuild the incoming orientation from the same base so both
		// sides of the union carry identical columns and filters
		if !rightWasBound {
			delete(c.bound, right.Variable)
		}
		c.pending = pendingSnapshot
		in, err := c.orientedJoin(base, relScan, left, rel.Variable, relBinding.ToColumn, relBinding.FromColumn, right)
		if err != nil {
			return err
		}
		c.root = &Union{Left: out, Right: in}
		return nil
	}

	fromCol, toCol := relBinding.FromColumn, relBinding.ToColumn
	if rel.Direction == ast.DirectionIncoming {
		fromCol, toCol = toCol, fromCol
	}
	joined, err := c.orientedJoin(c.root, relScan, left, rel.Variable, fromCol, toCol, right)
	if err != nil {
		return err
	}
	c.root = joined
	return nil
}

// orientedJoin chains plan ⨝ relScan ⨝ rightScan for one orientation.
// leftCol/rightCol are the relationship-table columns matching the left
// and right node ids. A right node already in the plan becomes an
// equality filter instead of a second scan.
func (c *compiler) orientedJoin(base Node, relScan *Scan, left ast.NodePattern,
	relVar, leftCol, rightCol string, right ast.NodePattern) (Node, error) {

	leftKey := c.bound[left.Variable].idColumn
	chain := Node(&Join{
		Left:     base,
		Right:    relScan,
		LeftKey:  leftKey,
		RightKey: relVar + "." + leftCol,
	})

	if c.hasNode(right.Variable) {
		// cycle back to an already-scanned node
		rb := c.bound[right.Variable]
		return &Filter{
			Input: chain,
			Predicate: &ast.Comparison{
				Op:    ast.OpEq,
				Left:  &ast.Property{Variable: relVar, Name: rightCol},
				Right: &ast.Property{Variable: right.Variable, Name: columnOf(rb.idColumn)},
			},
		}, nil
	}

	label := c.labels[right.Variable]
	nb, err := c.cat.ResolveLabel(label)
	if err != nil {
		return nil, err
	}
	rightScan := c.filteredScan(&Scan{Variable: right.Variable, Dataset: nb.Table, Label: label}, right.Variable)
	c.bound[right.Variable] = binding{
		idColumn: right.Variable + "." + nb.IDColumn,
		node:     nb,
		isNode:   true,
	}
	return &Join{
		Left:     chain,
		Right:    rightScan,
		LeftKey:  relVar + "." + rightCol,
		RightKey: right.Variable + "." + nb.IDColumn,
	}, nil
}

// filteredScan wraps a scan with any pending predicates that touch only
// this variable, pushing them below the joins.
func (c *compiler) filteredScan(scan *Scan, variable string) Node {
	var node Node = scan
	var rest []ast.Expression
	for _, conj := range c.pending {
		vars := conj.Variables()
		if len(vars) == 1 && vars[0] == variable {
			node = &Filter{Input: node, Predicate: conj}
		} else {
			rest = append(rest, conj)
		}
	}
	c.pending = rest
	return node
}

// attachReadyPredicates filters the plan with every pending conjunct
// whose variables are all bound, as early as the chain allows.
func (c *compiler) attachReadyPredicates() {
	var rest []ast.Expression
	for _, conj := range c.pending {
		ready := true
		for _, v := range conj.Variables() {
			if _, ok := c.bound[v]; !ok {
				ready = false
				break
			}
		}
		if ready && c.root != nil {
			c.root = &Filter{Input: c.root, Predicate: conj}
		} else {
			rest = append(rest, conj)
		}
	}
	c.pending = rest
}

func (c *compiler) hasNode(variable string) bool {
	b, ok := c.bound[variable]
	return ok && b.isNode
}

// columnOf strips the variable qualifier from a qualified column name
func columnOf(qualified string) string {
	for i := 0; i < len(qualified); i++ {
		if qualified[i] == '.' {
			return qualified[i+1:]
		}
	}
	return qualified
}

// compileOutput appends projection or aggregation, then sort and limit.
func (c *compiler) compileOutput(q *ast.Query) error {
	hasAgg := false
	for _, item := range q.Return {
		if ast.HasAggregate(item.Expr) {
			hasAgg = true
			break
		}
	}

	// resolve ORDER BY keys against RETURN items first: a key matching a
	// projected expression sorts the projected column, anything else is
	// evaluated against the pre-projection rows
	var postKeys []SortKey
	var preKeys []SortKey
	preNeeded := false
	for _, item := range q.OrderBy {
		col, ok := matchReturnColumn(item.Expr, q.Return)
		if ok {
			postKeys = append(postKeys, SortKey{Column: col, Descending: item.Descending})
			preKeys = append(preKeys, SortKey{Expr: item.Expr, Descending: item.Descending})
		} else {
			if hasAgg {
				return graph.Errorf(graph.UnboundVariable,
					"ORDER BY %s must appear in RETURN when aggregating", item.Expr)
			}
			if ast.HasAggregate(item.Expr) {
				return graph.Errorf(graph.UnsupportedAggregate,
					"ORDER BY aggregate %s must appear in RETURN", item.Expr)
			}
			preNeeded = true
			preKeys = append(preKeys, SortKey{Expr: item.Expr, Descending: item.Descending})
		}
	}

	if preNeeded {
		// sort the matched rows, then project; projection preserves order
		c.root = &Sort{Input: c.root, Keys: preKeys}
	}

	if hasAgg {
		c.root = &Aggregate{Input: c.root, Items: q.Return}
	} else {
		c.root = &Project{Input: c.root, Items: q.Return}
	}

	if len(postKeys) > 0 && !preNeeded {
		c.root = &Sort{Input: c.root, Keys: postKeys}
	}

	if q.Limit != nil {
		c.root = &Limit{Input: c.root, N: *q.Limit}
	}
	return nil
}

// matchReturnColumn finds the output column a sort expression projects to
func matchReturnColumn(e ast.Expression, items []ast.ReturnItem) (string, bool) {
	text := e.String()
	for _, item := range items {
		if item.Expr.String() == text {
			return item.Name(), true
		}
		if item.Alias != "" && item.Alias == text {
			return item.Alias, true
		}
	}
	// a bare alias reference lexes as a property-free identifier only in
	// expression position; alias matching above covers the common case
	return "", false
}
