// Package catalog resolves logical node labels and relationship types to
// the physical tables and key columns that back them. A Catalog is built
// once per session through the Builder and is immutable afterwards;
// compilation depends on it, datasets do not.
package catalog

import (
	"sort"
	"strings"

	"github.com/leiyuou/lance-graph/graph"
)

// NodeBinding ties a node label to its table and identifying column.
type NodeBinding struct {
	Table    string // dataset name the label reads from
	IDColumn string // column holding the node identifier
}

// RelationshipBinding ties a relationship type to its table and the two
// endpoint key columns.
type RelationshipBinding struct {
	Table      string
	FromColumn string
	ToColumn   string
}

// Catalog is the immutable resolved schema mapping. All names are stored
// normalized to lowercase; lookups normalize before comparing.
type Catalog struct {
	nodes         map[string]NodeBinding
	relationships map[string]RelationshipBinding
}

// Normalize converts a label or relationship-type name to its stored form.
func Normalize(name string) string {
	return strings.ToLower(name)
}

// ResolveLabel finds the binding for a node label, ignoring case.
func (c *Catalog) ResolveLabel(name string) (NodeBinding, error) {
	if b, ok := c.nodes[Normalize(name)]; ok {
		return b, nil
	}
	return NodeBinding{}, graph.Errorf(graph.UnknownLabel, "node label %q is not registered", name)
}

// ResolveRelationship finds the binding for a relationship type, ignoring case.
func (c *Catalog) ResolveRelationship(name string) (RelationshipBinding, error) {
	if b, ok := c.relationships[Normalize(name)]; ok {
		return b, nil
	}
	return RelationshipBinding{}, graph.Errorf(graph.UnknownRelationshipType,
		"relationship type %q is not registered", name)
}

// NodeLabels returns the normalized registered label names, sorted.
func (c *Catalog) NodeLabels() []string {
	labels := make([]string, 0, len(c.nodes))
	for name := range c.nodes {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	return labels
}

// RelationshipTypes returns the normalized registered type names, sorted.
func (c *Catalog) RelationshipTypes() []string {
	types := make([]string, 0, len(c.relationships))
	for name := range c.relationships {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// LabelsWithIDColumn returns the normalized labels whose id column equals
// the given column name. The planner uses this to infer the label of an
// unlabeled node adjacent to a typed relationship.
func (c *Catalog) LabelsWithIDColumn(column string) []string {
	var labels []string
	for name, b := range c.nodes {
		if b.IDColumn == column {
			labels = append(labels, name)
		}
	}
	sort.Strings(labels)
	return labels
}

// Builder accumulates bindings and produces an immutable Catalog.
// Registrations are idempotent-additive: repeating an identical binding is
// a no-op, while re-registering a name with a different definition fails
// with DuplicateBinding.
type Builder struct {
	nodes         map[string]NodeBinding
	relationships map[string]RelationshipBinding
	err           error
}

// NewBuilder creates an empty catalog builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:         make(map[string]NodeBinding),
		relationships: make(map[string]RelationshipBinding),
	}
}

// WithNodeLabel registers a node label whose table is the dataset named
// after the label itself.
func (b *Builder) WithNodeLabel(label, idColumn string) *Builder {
	return b.WithNodeLabelTable(label, Normalize(label), idColumn)
}

// WithNodeLabelTable registers a node label backed by an explicit table
// reference.
func (b *Builder) WithNodeLabelTable(label, tableRef, idColumn string) *Builder {
	if b.err != nil {
		return b
	}
	name := Normalize(label)
	binding := NodeBinding{Table: tableRef, IDColumn: idColumn}
	if existing, ok := b.nodes[name]; ok {
		if existing != binding {
			b.err = graph.Errorf(graph.DuplicateBinding,
				"node label %q already bound to table %q", label, existing.Table)
		}
		return b
	}
	b.nodes[name] = binding
	return b
}

// WithRelationship registers a relationship type whose table is the
// dataset named after the type itself.
func (b *Builder) WithRelationship(typeName, fromColumn, toColumn string) *Builder {
	return b.WithRelationshipTable(typeName, Normalize(typeName), fromColumn, toColumn)
}

// WithRelationshipTable registers a relationship type backed by an
// explicit table reference.
func (b *Builder) WithRelationshipTable(typeName, tableRef, fromColumn, toColumn string) *Builder {
	if b.err != nil {
		return b
	}
	name := Normalize(typeName)
	binding := RelationshipBinding{Table: tableRef, FromColumn: fromColumn, ToColumn: toColumn}
	if existing, ok := b.relationships[name]; ok {
		if existing != binding {
			b.err = graph.Errorf(graph.DuplicateBinding,
				"relationship type %q already bound to table %q", typeName, existing.Table)
		}
		return b
	}
	b.relationships[name] = binding
	return b
}

// Build produces the immutable catalog snapshot. Calling Build more than
// once yields equivalent catalogs.
func (b *Builder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	c := &Catalog{
		nodes:         make(map[string]NodeBinding, len(b.nodes)),
		relationships: make(map[string]RelationshipBinding, len(b.relationships)),
	}
	for name, binding := range b.nodes {
		c.nodes[name] = binding
	}
	for name, binding := range b.relationships {
		c.relationships[name] = binding
	}
	return c, nil
}
