// Package engine ties parsing, compilation, and execution together behind
// two entry points: a reusable session (Engine) that holds a catalog and
// registered datasets, and a one-shot Query bound to a single execution.
// Both paths produce identical results for identical inputs.
package engine

import (
	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/catalog"
	"github.com/leiyuou/lance-graph/graph/executor"
	"github.com/leiyuou/lance-graph/graph/parser"
	"github.com/leiyuou/lance-graph/graph/planner"
	"github.com/leiyuou/lance-graph/graph/table"
)

// Engine is a query session: one catalog plus the datasets registered so
// far. It is cheap to create and holds no state beyond those two.
type Engine struct {
	cat      *catalog.Catalog
	datasets table.Datasets
}

// New creates a session over a built catalog with no datasets registered.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat, datasets: make(table.Datasets)}
}

// RegisterDataset binds a table to a dataset name for subsequent queries.
// Re-registering a name replaces the previous table.
func (e *Engine) RegisterDataset(name string, tbl table.Table) {
	e.datasets[name] = tbl
}

// RegisterDatasets binds every table in the map.
func (e *Engine) RegisterDatasets(datasets table.Datasets) {
	for name, tbl := range datasets {
		e.datasets[name] = tbl
	}
}

// Config returns the session's catalog.
func (e *Engine) Config() *catalog.Catalog { return e.cat }

// NodeLabels returns the registered node labels, normalized and sorted.
func (e *Engine) NodeLabels() []string { return e.cat.NodeLabels() }

// RelationshipTypes returns the registered relationship types, normalized
// and sorted.
func (e *Engine) RelationshipTypes() []string { return e.cat.RelationshipTypes() }

// Execute parses, compiles, and runs a query against the registered
// datasets.
func (e *Engine) Execute(text string) (*executor.Result, error) {
	return e.ExecuteWithParams(text, nil)
}

// ExecuteWithParams substitutes $name parameters into the query before
// compiling. A parameter the query references but params omits is an
// error.
func (e *Engine) ExecuteWithParams(text string, params map[string]graph.Value) (*executor.Result, error) {
	plan, err := compile(text, params, e.cat)
	if err != nil {
		return nil, err
	}
	return executor.Execute(plan, e.datasets)
}

// Explain compiles a query and returns the plan as an indented tree
// without executing it.
func (e *Engine) Explain(text string) (string, error) {
	plan, err := compile(text, nil, e.cat)
	if err != nil {
		return "", err
	}
	return plan.Explain(), nil
}

// Query is a one-shot query bound to its own catalog and parameters,
// executed against datasets supplied at call time.
type Query struct {
	text   string
	cat    *catalog.Catalog
	params map[string]graph.Value
}

// NewQuery starts a one-shot query from its text.
func NewQuery(text string) *Query {
	return &Query{text: text}
}

// WithConfig binds the catalog to compile against.
func (q *Query) WithConfig(cat *catalog.Catalog) *Query {
	q.cat = cat
	return q
}

// WithParameter binds one $name parameter value.
func (q *Query) WithParameter(name string, value graph.Value) *Query {
	if q.params == nil {
		q.params = make(map[string]graph.Value)
	}
	q.params[name] = value
	return q
}

// Execute compiles and runs the query against the supplied datasets.
func (q *Query) Execute(datasets table.Datasets) (*executor.Result, error) {
	if q.cat == nil {
		return nil, graph.Errorf(graph.ParseError, "query has no catalog, call WithConfig first")
	}
	plan, err := compile(q.text, q.params, q.cat)
	if err != nil {
		return nil, err
	}
	return executor.Execute(plan, datasets)
}

func compile(text string, params map[string]graph.Value, cat *catalog.Catalog) (*planner.Plan, error) {
	parsed, err := parser.ParseQuery(text)
	if err != nil {
		return nil, err
	}
	if err := parser.SubstituteParameters(parsed, params); err != nil {
		return nil, err
	}
	return planner.Compile(parsed, cat)
}
