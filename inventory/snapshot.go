package inventory

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvlca/uncertainty"
)

// Snapshot is the serialized form of a Store, used for YAML files and as
// the exchange format of inventory/sqlitestore.
type Snapshot struct {
	Biosphere  string        `yaml:"biosphere,omitempty"`
	Databases  []DatabaseDoc `yaml:"databases"`
	Methods    []MethodDoc   `yaml:"methods,omitempty"`
	Parameters ParametersDoc `yaml:"parameters,omitempty"`
}

// DatabaseDoc holds one database and its nodes.
type DatabaseDoc struct {
	Name  string    `yaml:"name"`
	Nodes []NodeDoc `yaml:"nodes"`
}

// NodeDoc is one node with the exchanges it owns (those whose output it is).
type NodeDoc struct {
	Code             string              `yaml:"code"`
	Name             string              `yaml:"name"`
	Type             NodeType            `yaml:"type,omitempty"`
	Unit             string              `yaml:"unit,omitempty"`
	Location         string              `yaml:"location,omitempty"`
	ReferenceProduct string              `yaml:"reference_product,omitempty"`
	Categories       []string            `yaml:"categories,omitempty"`
	Properties       map[string]Property `yaml:"properties,omitempty"`
	ParameterGroup   string              `yaml:"parameter_group,omitempty"`
	Exchanges        []ExchangeDoc       `yaml:"exchanges,omitempty"`
}

// KeyDoc is a key written as a two-element sequence [database, code].
type KeyDoc [2]string

// Key converts d into a Key.
func (d KeyDoc) Key() Key { return Key{Database: d[0], Code: d[1]} }

// ExchangeDoc is one exchange. A non-empty Formula makes it a
// parameterized exchange of Group, which defaults to the owning node's
// parameter group, or its database when the node has none.
type ExchangeDoc struct {
	Input       KeyDoc          `yaml:"input"`
	Type        ExchangeType    `yaml:"type"`
	Amount      *float64        `yaml:"amount"`
	Formula     string          `yaml:"formula,omitempty"`
	Group       string          `yaml:"group,omitempty"`
	Uncertainty *UncertaintyDoc `yaml:"uncertainty,omitempty"`
	Pedigree    []int           `yaml:"pedigree,omitempty,flow"`
}

// UncertaintyDoc is a descriptor with optional numeric fields (absent = NaN).
type UncertaintyDoc struct {
	Type     int      `yaml:"type"`
	Loc      *float64 `yaml:"loc,omitempty"`
	Scale    *float64 `yaml:"scale,omitempty"`
	Shape    *float64 `yaml:"shape,omitempty"`
	Minimum  *float64 `yaml:"minimum,omitempty"`
	Maximum  *float64 `yaml:"maximum,omitempty"`
	Negative bool     `yaml:"negative,omitempty"`
}

// MethodDoc is one impact method.
type MethodDoc struct {
	ID   []string `yaml:"id,flow"`
	Unit string   `yaml:"unit,omitempty"`
	CFs  []CFDoc  `yaml:"cfs"`
}

// CFDoc is one characterization factor.
type CFDoc struct {
	Flow        KeyDoc          `yaml:"flow,flow"`
	Amount      float64         `yaml:"amount"`
	Uncertainty *UncertaintyDoc `yaml:"uncertainty,omitempty"`
}

// ParametersDoc groups parameters by scope.
type ParametersDoc struct {
	Project  []ParameterDoc `yaml:"project,omitempty"`
	Database []ParameterDoc `yaml:"database,omitempty"`
	Activity []ParameterDoc `yaml:"activity,omitempty"`
}

// ParameterDoc is one parameter. Group is required for database and
// activity scope; Database is required for activity scope.
type ParameterDoc struct {
	Name        string          `yaml:"name"`
	Group       string          `yaml:"group,omitempty"`
	Database    string          `yaml:"database,omitempty"`
	Amount      float64         `yaml:"amount"`
	Formula     string          `yaml:"formula,omitempty"`
	Uncertainty *UncertaintyDoc `yaml:"uncertainty,omitempty"`
	Pedigree    []int           `yaml:"pedigree,omitempty,flow"`
}

// LoadYAML decodes a snapshot from r and builds a Store from it.
func LoadYAML(r io.Reader, opts ...StoreOption) (*Store, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("LoadYAML: %w", err)
	}

	return FromSnapshot(snap, opts...)
}

// LoadYAMLFile is LoadYAML over a file path.
func LoadYAMLFile(path string, opts ...StoreOption) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadYAML(f, opts...)
}

// WriteYAML encodes the snapshot of s to w.
func WriteYAML(w io.Writer, s *Store) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("WriteYAML: %w", err)
	}

	return enc.Close()
}

// FromSnapshot builds a Store: databases and nodes first, then exchanges,
// methods, parameters and finally parameterized exchanges. The snapshot's
// biosphere name applies unless opts override it.
func FromSnapshot(snap Snapshot, opts ...StoreOption) (*Store, error) {
	var all []StoreOption
	if snap.Biosphere != "" {
		all = append(all, WithBiosphere(snap.Biosphere))
	}
	s := NewStore(append(all, opts...)...)

	for _, db := range snap.Databases {
		if err := s.AddDatabase(db.Name); err != nil {
			return nil, err
		}
		for _, nd := range db.Nodes {
			n := Node{
				Key:              Key{Database: db.Name, Code: nd.Code},
				Name:             nd.Name,
				Type:             nd.Type,
				Unit:             nd.Unit,
				Location:         nd.Location,
				ReferenceProduct: nd.ReferenceProduct,
				Categories:       nd.Categories,
				Properties:       nd.Properties,
				ParameterGroup:   nd.ParameterGroup,
			}
			if err := s.AddNode(n); err != nil {
				return nil, err
			}
		}
	}

	type pending struct {
		id      int
		group   string
		formula string
	}
	var bound []pending
	for _, db := range snap.Databases {
		for _, nd := range db.Nodes {
			out := Key{Database: db.Name, Code: nd.Code}
			for _, xd := range nd.Exchanges {
				e, err := xd.exchange(out)
				if err != nil {
					return nil, err
				}
				id, err := s.AddExchange(e)
				if err != nil {
					return nil, err
				}
				if xd.Formula == "" {
					continue
				}
				group := xd.Group
				if group == "" {
					group = nd.ParameterGroup
				}
				if group == "" {
					group = db.Name
				}
				bound = append(bound, pending{id: id, group: group, formula: xd.Formula})
			}
		}
	}

	for _, md := range snap.Methods {
		m := Method{ID: md.ID, Unit: md.Unit, CFs: make([]CF, len(md.CFs))}
		for i, cd := range md.CFs {
			m.CFs[i] = CF{Flow: cd.Flow.Key(), Amount: cd.Amount, Uncertainty: cd.Uncertainty.descriptor()}
		}
		if err := s.AddMethod(m); err != nil {
			return nil, err
		}
	}

	scopes := []struct {
		kind ParamType
		docs []ParameterDoc
	}{
		{ProjectParam, snap.Parameters.Project},
		{DatabaseParam, snap.Parameters.Database},
		{ActivityParam, snap.Parameters.Activity},
	}
	for _, sc := range scopes {
		for _, pd := range sc.docs {
			p, err := pd.parameter(sc.kind)
			if err != nil {
				return nil, err
			}
			if err = s.AddParameter(p); err != nil {
				return nil, err
			}
		}
	}

	for _, b := range bound {
		pe := ParameterizedExchange{ExchangeID: b.id, Group: b.group, Formula: b.formula}
		if err := s.AddParameterizedExchange(pe); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (xd ExchangeDoc) exchange(out Key) (Exchange, error) {
	if xd.Amount == nil {
		return Exchange{}, fmt.Errorf("exchange %v->%v: %w: missing amount", xd.Input.Key(), out, ErrInvalidExchange)
	}
	if xd.Type == "" {
		return Exchange{}, fmt.Errorf("exchange %v->%v: %w: missing type", xd.Input.Key(), out, ErrInvalidExchange)
	}
	e := Exchange{
		Input:       xd.Input.Key(),
		Output:      out,
		Type:        xd.Type,
		Amount:      *xd.Amount,
		Formula:     xd.Formula,
		Uncertainty: xd.Uncertainty.descriptor(),
	}
	ped, err := pedigreeOf(xd.Pedigree)
	if err != nil {
		return Exchange{}, fmt.Errorf("exchange %v->%v: %w: %w", xd.Input.Key(), out, ErrInvalidExchange, err)
	}
	e.Pedigree = ped

	return e, nil
}

func (pd ParameterDoc) parameter(kind ParamType) (Parameter, error) {
	ped, err := pedigreeOf(pd.Pedigree)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameter %s: %w: %w", pd.Name, ErrInvalidParameter, err)
	}

	return Parameter{
		Name:        pd.Name,
		Group:       pd.Group,
		Type:        kind,
		Database:    pd.Database,
		Amount:      pd.Amount,
		Formula:     pd.Formula,
		Uncertainty: pd.Uncertainty.descriptor(),
		Pedigree:    ped,
	}, nil
}

func pedigreeOf(scores []int) (*uncertainty.Pedigree, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	if len(scores) != len(uncertainty.Pedigree{}) {
		return nil, fmt.Errorf("%w: want 6 scores, got %d", uncertainty.ErrInvalidPedigree, len(scores))
	}
	var p uncertainty.Pedigree
	copy(p[:], scores)

	return &p, p.Validate()
}

func (ud *UncertaintyDoc) descriptor() *uncertainty.Descriptor {
	if ud == nil {
		return nil
	}
	d := uncertainty.New(uncertainty.ID(ud.Type))
	d.Loc = valueOrNaN(ud.Loc)
	d.Scale = valueOrNaN(ud.Scale)
	d.Shape = valueOrNaN(ud.Shape)
	d.Minimum = valueOrNaN(ud.Minimum)
	d.Maximum = valueOrNaN(ud.Maximum)
	d.Negative = ud.Negative

	return &d
}

func uncertaintyDoc(d *uncertainty.Descriptor) *UncertaintyDoc {
	if d == nil {
		return nil
	}

	return &UncertaintyDoc{
		Type:     int(d.Type),
		Loc:      ptrOrNil(d.Loc),
		Scale:    ptrOrNil(d.Scale),
		Shape:    ptrOrNil(d.Shape),
		Minimum:  ptrOrNil(d.Minimum),
		Maximum:  ptrOrNil(d.Maximum),
		Negative: d.Negative,
	}
}

func valueOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}

	return *p
}

func ptrOrNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}

	return &v
}

func pedigreeScores(p *uncertainty.Pedigree) []int {
	if p == nil {
		return nil
	}

	return append([]int(nil), p[:]...)
}

// Snapshot captures the full content of s in serializable form. Databases
// and nodes are sorted; exchanges follow id order within their node.
func (s *Store) Snapshot() Snapshot {
	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()

	groupOf := make(map[int]string, len(s.paramizedBy))
	for group, list := range s.paramized {
		for _, pe := range list {
			groupOf[pe.ExchangeID] = group
		}
	}

	snap := Snapshot{Biosphere: s.biosphere}
	for _, db := range sortedKeys(s.databases) {
		dd := DatabaseDoc{Name: db, Nodes: []NodeDoc{}}
		for _, k := range s.databases[db] {
			n := s.nodes[k]
			nd := NodeDoc{
				Code:             k.Code,
				Name:             n.Name,
				Type:             n.Type,
				Unit:             n.Unit,
				Location:         n.Location,
				ReferenceProduct: n.ReferenceProduct,
				Categories:       n.Categories,
				Properties:       n.Properties,
				ParameterGroup:   n.ParameterGroup,
			}
			for _, id := range s.byOutput[k] {
				e := s.exchanges[id]
				amount := e.Amount
				xd := ExchangeDoc{
					Input:       KeyDoc{e.Input.Database, e.Input.Code},
					Type:        e.Type,
					Amount:      &amount,
					Formula:     e.Formula,
					Uncertainty: uncertaintyDoc(e.Uncertainty),
					Pedigree:    pedigreeScores(e.Pedigree),
				}
				if g, ok := groupOf[id]; ok {
					def := n.ParameterGroup
					if def == "" {
						def = db
					}
					if g != def {
						xd.Group = g
					}
				} else {
					xd.Formula = ""
				}
				nd.Exchanges = append(nd.Exchanges, xd)
			}
			dd.Nodes = append(dd.Nodes, nd)
		}
		snap.Databases = append(snap.Databases, dd)
	}

	for _, id := range s.methodOrder {
		m := s.methods[id.mapKey()]
		md := MethodDoc{ID: m.ID, Unit: m.Unit, CFs: make([]CFDoc, len(m.CFs))}
		for i, cf := range m.CFs {
			md.CFs[i] = CFDoc{Flow: KeyDoc{cf.Flow.Database, cf.Flow.Code}, Amount: cf.Amount, Uncertainty: uncertaintyDoc(cf.Uncertainty)}
		}
		snap.Methods = append(snap.Methods, md)
	}

	docs := func(kind ParamType) []ParameterDoc {
		var out []ParameterDoc
		for _, p := range s.params[kind] {
			pd := ParameterDoc{
				Name:        p.Name,
				Amount:      p.Amount,
				Formula:     p.Formula,
				Uncertainty: uncertaintyDoc(p.Uncertainty),
				Pedigree:    pedigreeScores(p.Pedigree),
			}
			if kind != ProjectParam {
				pd.Group = p.Group
			}
			if kind == ActivityParam {
				pd.Database = p.Database
			}
			out = append(out, pd)
		}
		return out
	}
	snap.Parameters = ParametersDoc{
		Project:  docs(ProjectParam),
		Database: docs(DatabaseParam),
		Activity: docs(ActivityParam),
	}

	return snap
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
