package inventory

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/katalvlaran/lvlca/depgraph"
	"github.com/katalvlaran/lvlca/formula"
	"github.com/katalvlaran/lvlca/uncertainty"
)

// StoreOption configures a Store before creation.
type StoreOption func(s *Store)

// WithBiosphere sets the name of the biosphere database.
// Panics on an empty name.
func WithBiosphere(name string) StoreOption {
	if name == "" {
		panic("inventory: WithBiosphere: empty database name")
	}

	return func(s *Store) { s.biosphere = name }
}

// Store is the in-memory, concurrency-safe Provider.
//
// muNodes guards databases and nodes; muLinks guards exchanges, methods and
// parameters. When both are needed muNodes is taken first.
type Store struct {
	muNodes sync.RWMutex
	muLinks sync.RWMutex

	biosphere string

	databases map[string][]Key // db → keys in code order
	nodes     map[Key]*Node

	exchanges []Exchange    // id == index
	byOutput  map[Key][]int // activity → exchange ids
	byInput   map[Key][]int // node → exchange ids consuming it

	methods     map[string]*Method
	methodOrder []MethodID

	params      map[ParamType][]Parameter
	paramIndex  map[string]struct{} // type|group|name
	paramized   map[string][]ParameterizedExchange
	paramizedBy map[int]struct{}
}

var _ Provider = (*Store)(nil)

// NewStore creates an empty Store. The biosphere database defaults to
// DefaultBiosphere.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		biosphere:   DefaultBiosphere,
		databases:   make(map[string][]Key),
		nodes:       make(map[Key]*Node),
		byOutput:    make(map[Key][]int),
		byInput:     make(map[Key][]int),
		methods:     make(map[string]*Method),
		params:      make(map[ParamType][]Parameter),
		paramIndex:  make(map[string]struct{}),
		paramized:   make(map[string][]ParameterizedExchange),
		paramizedBy: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Biosphere returns the biosphere database name.
func (s *Store) Biosphere() string { return s.biosphere }

// AddDatabase registers an empty database. Idempotent.
func (s *Store) AddDatabase(name string) error {
	if name == "" {
		return fmt.Errorf("AddDatabase: %w: empty name", ErrDatabaseNotFound)
	}
	s.muNodes.Lock()
	defer s.muNodes.Unlock()
	if _, ok := s.databases[name]; !ok {
		s.databases[name] = nil
	}

	return nil
}

// AddNode inserts n, registering its database if needed. An empty Type
// defaults to emission inside the biosphere database and process elsewhere.
//
// Errors:
//   - ErrInvalidKey for an empty database or code.
//   - ErrDuplicate if the key already exists.
//   - ErrIncompatibleDatabaseNaming if a flow type sits outside the
//     biosphere database or an activity type inside it.
func (s *Store) AddNode(n Node) error {
	if n.Key.Database == "" || n.Key.Code == "" {
		return fmt.Errorf("AddNode: %w: %v", ErrInvalidKey, n.Key)
	}
	inBio := n.Key.Database == s.biosphere
	if n.Type == "" {
		n.Type = TypeProcess
		if inBio {
			n.Type = TypeEmission
		}
	}
	if !n.Type.Valid() {
		return fmt.Errorf("AddNode %v: %w: unknown type %q", n.Key, ErrInvalidExchange, n.Type)
	}
	if n.Type.IsBiosphere() != inBio {
		return fmt.Errorf("AddNode %v: %w: type %q in database %q", n.Key, ErrIncompatibleDatabaseNaming, n.Type, n.Key.Database)
	}

	s.muNodes.Lock()
	defer s.muNodes.Unlock()
	if _, ok := s.nodes[n.Key]; ok {
		return fmt.Errorf("AddNode %v: %w", n.Key, ErrDuplicate)
	}
	c := n.Clone()
	s.nodes[n.Key] = &c
	keys := s.databases[n.Key.Database]
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Code >= n.Key.Code })
	s.databases[n.Key.Database] = slices.Insert(keys, i, n.Key)

	return nil
}

// AddExchange validates e and stores it, returning the assigned id.
//
// Errors:
//   - ErrInvalidExchange for an unknown type, a NaN/Inf amount or an
//     invalid uncertainty descriptor.
//   - ErrNodeNotFound if either endpoint is unknown.
//   - ErrIncompatibleDatabaseNaming if the output is a biosphere flow, a
//     biosphere exchange does not come from the biosphere database, or a
//     technosphere exchange does.
func (s *Store) AddExchange(e Exchange) (int, error) {
	if !e.Type.Valid() {
		return 0, fmt.Errorf("AddExchange %v->%v: %w: type %q", e.Input, e.Output, ErrInvalidExchange, e.Type)
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return 0, fmt.Errorf("AddExchange %v->%v: %w: amount %v", e.Input, e.Output, ErrInvalidExchange, e.Amount)
	}
	if e.Uncertainty != nil {
		if err := e.Uncertainty.Validate(); err != nil {
			return 0, fmt.Errorf("AddExchange %v->%v: %w: %w", e.Input, e.Output, ErrInvalidExchange, err)
		}
	}
	if e.Pedigree != nil {
		if err := e.Pedigree.Validate(); err != nil {
			return 0, fmt.Errorf("AddExchange %v->%v: %w: %w", e.Input, e.Output, ErrInvalidExchange, err)
		}
	}

	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	for _, k := range []Key{e.Output, e.Input} {
		if _, ok := s.nodes[k]; !ok {
			return 0, fmt.Errorf("AddExchange: %w: %v", ErrNodeNotFound, k)
		}
	}
	if e.Output.Database == s.biosphere {
		return 0, fmt.Errorf("AddExchange %v: %w: output in biosphere database", e.Output, ErrIncompatibleDatabaseNaming)
	}
	inBio := e.Input.Database == s.biosphere
	if (e.Type == Biosphere) != inBio {
		return 0, fmt.Errorf("AddExchange %v->%v: %w: %s exchange with input in %q", e.Input, e.Output, ErrIncompatibleDatabaseNaming, e.Type, e.Input.Database)
	}

	s.muLinks.Lock()
	defer s.muLinks.Unlock()
	e.ID = len(s.exchanges)
	e.Uncertainty = cloneDescriptor(e.Uncertainty)
	e.Pedigree = clonePedigree(e.Pedigree)
	s.exchanges = append(s.exchanges, e)
	s.byOutput[e.Output] = append(s.byOutput[e.Output], e.ID)
	if e.Input != e.Output {
		s.byInput[e.Input] = append(s.byInput[e.Input], e.ID)
	}

	return e.ID, nil
}

// AddMethod stores an impact method.
func (s *Store) AddMethod(m Method) error {
	if len(m.ID) == 0 {
		return fmt.Errorf("AddMethod: %w: empty identity", ErrMethodNotFound)
	}
	for _, cf := range m.CFs {
		if math.IsNaN(cf.Amount) || math.IsInf(cf.Amount, 0) {
			return fmt.Errorf("AddMethod %v: %w: characterization factor of %v is %v", m.ID, ErrInvalidExchange, cf.Flow, cf.Amount)
		}
		if cf.Uncertainty != nil {
			if err := cf.Uncertainty.Validate(); err != nil {
				return fmt.Errorf("AddMethod %v: %w: %w", m.ID, ErrInvalidExchange, err)
			}
		}
	}
	s.muLinks.Lock()
	defer s.muLinks.Unlock()
	k := m.ID.mapKey()
	if _, ok := s.methods[k]; ok {
		return fmt.Errorf("AddMethod %v: %w", m.ID, ErrDuplicate)
	}
	c := cloneMethod(m)
	s.methods[k] = &c
	s.methodOrder = append(s.methodOrder, slices.Clone(m.ID))

	return nil
}

// AddParameter stores a parameter after validating its name, scope and
// formula syntax. Project parameters are forced into ProjectGroup.
func (s *Store) AddParameter(p Parameter) error {
	if p.Name == "" || formula.IsReserved(p.Name) {
		return fmt.Errorf("AddParameter: %w: name %q", ErrInvalidParameter, p.Name)
	}
	if p.Formula != "" {
		if _, err := formula.Parse(p.Formula); err != nil {
			return fmt.Errorf("AddParameter %s: %w: %w", p.Name, ErrInvalidParameter, err)
		}
	}
	if p.Uncertainty != nil {
		if err := p.Uncertainty.Validate(); err != nil {
			return fmt.Errorf("AddParameter %s: %w: %w", p.Name, ErrInvalidParameter, err)
		}
	}

	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	switch p.Type {
	case ProjectParam:
		p.Group = ProjectGroup
	case DatabaseParam:
		if _, ok := s.databases[p.Group]; !ok {
			return fmt.Errorf("AddParameter %s: %w: %q", p.Name, ErrDatabaseNotFound, p.Group)
		}
	case ActivityParam:
		if p.Group == "" || p.Group == ProjectGroup {
			return fmt.Errorf("AddParameter %s: %w: activity group %q", p.Name, ErrInvalidParameter, p.Group)
		}
		if _, clash := s.databases[p.Group]; clash {
			return fmt.Errorf("AddParameter %s: %w: activity group %q shadows a database", p.Name, ErrInvalidParameter, p.Group)
		}
		if _, ok := s.databases[p.Database]; !ok {
			return fmt.Errorf("AddParameter %s: %w: %q", p.Name, ErrDatabaseNotFound, p.Database)
		}
	default:
		return fmt.Errorf("AddParameter %s: %w: scope %q", p.Name, ErrInvalidParameter, p.Type)
	}

	s.muLinks.Lock()
	defer s.muLinks.Unlock()
	idx := string(p.Type) + "\x1f" + p.Group + "\x1f" + p.Name
	if _, ok := s.paramIndex[idx]; ok {
		return fmt.Errorf("AddParameter %s/%s: %w", p.Group, p.Name, ErrDuplicate)
	}
	s.paramIndex[idx] = struct{}{}
	p.Uncertainty = cloneDescriptor(p.Uncertainty)
	p.Pedigree = clonePedigree(p.Pedigree)
	s.params[p.Type] = append(s.params[p.Type], p)

	return nil
}

// AddParameterizedExchange binds exchange pe.ExchangeID to a formula. The
// stored exchange's Formula field is updated as well.
func (s *Store) AddParameterizedExchange(pe ParameterizedExchange) error {
	if pe.Group == "" {
		return fmt.Errorf("AddParameterizedExchange %d: %w: empty group", pe.ExchangeID, ErrInvalidParameter)
	}
	if _, err := formula.Parse(pe.Formula); err != nil {
		return fmt.Errorf("AddParameterizedExchange %d: %w: %w", pe.ExchangeID, ErrInvalidParameter, err)
	}
	s.muLinks.Lock()
	defer s.muLinks.Unlock()
	if pe.ExchangeID < 0 || pe.ExchangeID >= len(s.exchanges) {
		return fmt.Errorf("AddParameterizedExchange: %w: %d", ErrExchangeNotFound, pe.ExchangeID)
	}
	if _, ok := s.paramizedBy[pe.ExchangeID]; ok {
		return fmt.Errorf("AddParameterizedExchange %d: %w", pe.ExchangeID, ErrDuplicate)
	}
	s.paramizedBy[pe.ExchangeID] = struct{}{}
	s.paramized[pe.Group] = append(s.paramized[pe.Group], pe)
	s.exchanges[pe.ExchangeID].Formula = pe.Formula

	return nil
}

// Node implements Provider.
func (s *Store) Node(key Key) (Node, error) {
	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	n, ok := s.nodes[key]
	if !ok {
		return Node{}, fmt.Errorf("%w: %v", ErrNodeNotFound, key)
	}

	return n.Clone(), nil
}

// Nodes implements Provider.
func (s *Store) Nodes(db string) ([]Node, error) {
	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	keys, ok := s.databases[db]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatabaseNotFound, db)
	}
	out := make([]Node, len(keys))
	for i, k := range keys {
		out[i] = s.nodes[k].Clone()
	}

	return out, nil
}

// Exchanges implements Provider.
func (s *Store) Exchanges(key Key, dir Direction) ([]Exchange, error) {
	s.muNodes.RLock()
	_, ok := s.nodes[key]
	s.muNodes.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNodeNotFound, key)
	}

	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	ids := s.byOutput[key]
	if dir == Out {
		ids = s.byInput[key]
	}
	out := make([]Exchange, 0, len(ids))
	for _, id := range ids {
		e := s.exchanges[id]
		switch dir {
		case ProductionOnly:
			if e.Type != Production {
				continue
			}
		case BiosphereOnly:
			if e.Type != Biosphere {
				continue
			}
		case TechnosphereOnly:
			if e.Type != Technosphere && e.Type != Substitution {
				continue
			}
		}
		out = append(out, cloneExchange(e))
	}

	return out, nil
}

// Exchange implements Provider.
func (s *Store) Exchange(id int) (Exchange, error) {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	if id < 0 || id >= len(s.exchanges) {
		return Exchange{}, fmt.Errorf("%w: %d", ErrExchangeNotFound, id)
	}

	return cloneExchange(s.exchanges[id]), nil
}

// NumExchanges returns the number of stored exchanges; ids are 0..n-1.
func (s *Store) NumExchanges() int {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()

	return len(s.exchanges)
}

// Method implements Provider.
func (s *Store) Method(id MethodID) (Method, error) {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	m, ok := s.methods[id.mapKey()]
	if !ok {
		return Method{}, fmt.Errorf("%w: %v", ErrMethodNotFound, id)
	}

	return cloneMethod(*m), nil
}

// Methods implements Provider.
func (s *Store) Methods() []MethodID {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	out := make([]MethodID, len(s.methodOrder))
	for i, id := range s.methodOrder {
		out[i] = slices.Clone(id)
	}

	return out
}

// Parameters implements Provider.
func (s *Store) Parameters(scope ParamType) ([]Parameter, error) {
	switch scope {
	case ProjectParam, DatabaseParam, ActivityParam:
	default:
		return nil, fmt.Errorf("%w: scope %q", ErrInvalidParameter, scope)
	}
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	src := s.params[scope]
	out := make([]Parameter, len(src))
	for i, p := range src {
		p.Uncertainty = cloneDescriptor(p.Uncertainty)
		p.Pedigree = clonePedigree(p.Pedigree)
		out[i] = p
	}

	return out, nil
}

// ParameterizedExchanges implements Provider. An unknown group yields an
// empty list.
func (s *Store) ParameterizedExchanges(group string) ([]ParameterizedExchange, error) {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()

	return slices.Clone(s.paramized[group]), nil
}

// ParameterizedGroups implements Provider.
func (s *Store) ParameterizedGroups() []string {
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()
	out := make([]string, 0, len(s.paramized))
	for g := range s.paramized {
		out = append(out, g)
	}
	sort.Strings(out)

	return out
}

// Databases implements Provider.
func (s *Store) Databases() []string {
	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	out := make([]string, 0, len(s.databases))
	for db := range s.databases {
		out = append(out, db)
	}
	sort.Strings(out)

	return out
}

// Dependencies implements Provider. The database graph has an edge
// output-db → input-db for every exchange; the result is the closure of the
// seeds' databases.
func (s *Store) Dependencies(seeds []Key) ([]string, error) {
	s.muNodes.RLock()
	defer s.muNodes.RUnlock()
	s.muLinks.RLock()
	defer s.muLinks.RUnlock()

	g := depgraph.New()
	for db := range s.databases {
		if err := g.AddNode(db); err != nil {
			return nil, err
		}
	}
	for _, e := range s.exchanges {
		if e.Output.Database != e.Input.Database {
			if err := g.AddEdge(e.Output.Database, e.Input.Database); err != nil {
				return nil, err
			}
		}
	}
	start := make([]string, 0, len(seeds))
	for _, k := range seeds {
		if _, ok := s.nodes[k]; !ok {
			return nil, fmt.Errorf("Dependencies: %w: %v", ErrNodeNotFound, k)
		}
		start = append(start, k.Database)
	}

	return depgraph.Reachable(g, start)
}

func cloneDescriptor(d *uncertainty.Descriptor) *uncertainty.Descriptor {
	if d == nil {
		return nil
	}
	c := *d

	return &c
}

func clonePedigree(p *uncertainty.Pedigree) *uncertainty.Pedigree {
	if p == nil {
		return nil
	}
	c := *p

	return &c
}

func cloneExchange(e Exchange) Exchange {
	e.Uncertainty = cloneDescriptor(e.Uncertainty)
	e.Pedigree = clonePedigree(e.Pedigree)

	return e
}

func cloneMethod(m Method) Method {
	m.ID = slices.Clone(m.ID)
	m.CFs = slices.Clone(m.CFs)
	for i := range m.CFs {
		m.CFs[i].Uncertainty = cloneDescriptor(m.CFs[i].Uncertainty)
	}

	return m
}
