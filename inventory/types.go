package inventory

import (
	"slices"
	"strings"

	"github.com/katalvlaran/lvlca/uncertainty"
)

// DefaultBiosphere is the conventional name of the biosphere database.
const DefaultBiosphere = "biosphere3"

// NodeType classifies a node.
type NodeType string

// Node types. The first five are technosphere activities, the rest
// biosphere flows.
const (
	TypeProcess                     NodeType = "process"
	TypeProduct                     NodeType = "product"
	TypeProcessWithReferenceProduct NodeType = "processwithreferenceproduct"
	TypeMultifunctional             NodeType = "multifunctional"
	TypeNonfunctional               NodeType = "nonfunctional"
	TypeNaturalResource             NodeType = "natural resource"
	TypeEmission                    NodeType = "emission"
	TypeInventoryIndicator          NodeType = "inventory indicator"
	TypeEconomic                    NodeType = "economic"
	TypeSocial                      NodeType = "social"
)

// IsBiosphere reports whether t is an elementary (biosphere) flow type.
func (t NodeType) IsBiosphere() bool {
	switch t {
	case TypeNaturalResource, TypeEmission, TypeInventoryIndicator, TypeEconomic, TypeSocial:
		return true
	}

	return false
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case TypeProcess, TypeProduct, TypeProcessWithReferenceProduct, TypeMultifunctional, TypeNonfunctional:
		return true
	}

	return t.IsBiosphere()
}

// Property is a named physical property of a node (e.g. carbon content).
type Property struct {
	Amount    float64 `yaml:"amount"`
	Unit      string  `yaml:"unit,omitempty"`
	Normalize bool    `yaml:"normalize,omitempty"`
}

// Node is an activity or a biosphere flow.
type Node struct {
	Key              Key
	Name             string
	Type             NodeType
	Unit             string
	Location         string
	ReferenceProduct string
	Categories       []string
	Properties       map[string]Property

	// ParameterGroup names the activity-parameter group whose scope
	// formulas of this node's exchanges are evaluated in ("" = database).
	ParameterGroup string
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	n.Categories = slices.Clone(n.Categories)
	if n.Properties != nil {
		props := make(map[string]Property, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = v
		}
		n.Properties = props
	}

	return n
}

// ExchangeType classifies an exchange.
type ExchangeType string

// Exchange types.
const (
	Technosphere ExchangeType = "technosphere"
	Biosphere    ExchangeType = "biosphere"
	Production   ExchangeType = "production"
	Substitution ExchangeType = "substitution"
)

// Valid reports whether t is a known exchange type.
func (t ExchangeType) Valid() bool {
	switch t {
	case Technosphere, Biosphere, Production, Substitution:
		return true
	}

	return false
}

// Exchange is a directed edge: Output consumes (or produces, emits) Input.
type Exchange struct {
	// ID is assigned by the store and is stable for its lifetime.
	ID          int
	Input       Key
	Output      Key
	Type        ExchangeType
	Amount      float64
	Formula     string
	Uncertainty *uncertainty.Descriptor
	Pedigree    *uncertainty.Pedigree
}

// Direction selects the exchanges returned by Provider.Exchanges.
type Direction int

const (
	// In selects every exchange of the activity (Output == key).
	In Direction = iota
	// Out selects exchanges that consume the node (Input == key, Output != key).
	Out
	// ProductionOnly selects production exchanges of the activity.
	ProductionOnly
	// BiosphereOnly selects biosphere exchanges of the activity.
	BiosphereOnly
	// TechnosphereOnly selects technosphere and substitution exchanges of
	// the activity.
	TechnosphereOnly
)

// MethodID is the tuple identity of an impact method.
type MethodID []string

// String formats the identity as a tuple.
func (m MethodID) String() string { return FormatTuple(m) }

// Equal reports element-wise equality.
func (m MethodID) Equal(o MethodID) bool { return slices.Equal(m, o) }

// mapKey joins the tuple with a separator that cannot appear in names.
func (m MethodID) mapKey() string { return strings.Join(m, "\x1f") }

// CF is one characterization factor.
type CF struct {
	Flow        Key
	Amount      float64
	Uncertainty *uncertainty.Descriptor
}

// Method is an impact assessment method.
type Method struct {
	ID   MethodID
	Unit string
	CFs  []CF
}

// ParamType is the scope level of a parameter.
type ParamType string

// Parameter scopes, from broadest to narrowest.
const (
	ProjectParam  ParamType = "project"
	DatabaseParam ParamType = "database"
	ActivityParam ParamType = "activity"
)

// ProjectGroup is the group of every project parameter.
const ProjectGroup = "project"

// Parameter is a named, possibly formula-driven amount.
//
// Group is "project", a database name, or an activity group identifier.
// Database is the database whose parameters are visible to an activity
// group (unused for the other scopes).
type Parameter struct {
	Name        string
	Group       string
	Type        ParamType
	Database    string
	Amount      float64
	Formula     string
	Uncertainty *uncertainty.Descriptor
	Pedigree    *uncertainty.Pedigree
}

// ParameterizedExchange binds an exchange amount to a formula evaluated in
// the scope of Group.
type ParameterizedExchange struct {
	ExchangeID int
	Group      string
	Formula    string
}

// Provider is the read-only inventory capability consumed by the compute
// core. Implementations must present a consistent snapshot for the duration
// of a calculation.
type Provider interface {
	// Node returns the node identified by key, or ErrNodeNotFound.
	Node(key Key) (Node, error)
	// Nodes returns the nodes of db in code order, or ErrDatabaseNotFound.
	Nodes(db string) ([]Node, error)
	// Exchanges returns the exchanges of key selected by dir, in id order.
	Exchanges(key Key, dir Direction) ([]Exchange, error)
	// Exchange returns one exchange by id, or ErrExchangeNotFound.
	Exchange(id int) (Exchange, error)
	// Method returns the impact method with identity id, or ErrMethodNotFound.
	Method(id MethodID) (Method, error)
	// Methods lists every method identity in insertion order.
	Methods() []MethodID
	// Parameters returns every parameter of the given scope, in insertion order.
	Parameters(scope ParamType) ([]Parameter, error)
	// ParameterizedExchanges returns the formula bindings of group.
	ParameterizedExchanges(group string) ([]ParameterizedExchange, error)
	// ParameterizedGroups lists the groups that own parameterized exchanges.
	ParameterizedGroups() []string
	// Databases lists database names in sorted order.
	Databases() []string
	// Biosphere returns the configured biosphere database name.
	Biosphere() string
	// Dependencies returns the sorted set of databases reachable from the
	// databases of seeds through exchanges (seed databases included).
	Dependencies(seeds []Key) ([]string, error)
}
