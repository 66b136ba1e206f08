package scenario

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/katalvlaran/lvlca/inventory"
)

type processKey struct{ name, product, location, db string }

type flowKey struct{ name, categories, db string }

// nodeIndex resolves node keys from metadata, one database at a time.
// When several nodes share the same metadata the last one in provider order
// is used and every candidate is kept for reporting.
type nodeIndex struct {
	prov      inventory.Provider
	loaded    map[string]bool
	processes map[processKey]inventory.Key
	flows     map[flowKey]inventory.Key
	procDups  map[processKey][]inventory.Key
	flowDups  map[flowKey][]inventory.Key
}

func newNodeIndex(prov inventory.Provider) *nodeIndex {
	return &nodeIndex{
		prov:      prov,
		loaded:    make(map[string]bool),
		processes: make(map[processKey]inventory.Key),
		flows:     make(map[flowKey]inventory.Key),
		procDups:  make(map[processKey][]inventory.Key),
		flowDups:  make(map[flowKey][]inventory.Key),
	}
}

func collide[K comparable](idx map[K]inventory.Key, dups map[K][]inventory.Key, k K, v inventory.Key) {
	if prev, ok := idx[k]; ok {
		if len(dups[k]) == 0 {
			dups[k] = []inventory.Key{prev}
		}
		dups[k] = append(dups[k], v)
	}
	idx[k] = v
}

func (ix *nodeIndex) load(db string) error {
	if ix.loaded[db] {
		return nil
	}
	nodes, err := ix.prov.Nodes(db)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.Type.IsBiosphere() {
			collide(ix.flows, ix.flowDups, flowKey{n.Name, strings.Join(n.Categories, "\x1f"), db}, n.Key)
			continue
		}
		collide(ix.processes, ix.procDups, processKey{n.Name, n.ReferenceProduct, n.Location, db}, n.Key)
	}
	ix.loaded[db] = true

	return nil
}

// lookup resolves s from its metadata. flow selects the biosphere index
// first. candidates is non-nil when the metadata matches several nodes.
func (ix *nodeIndex) lookup(s Side, flow bool) (k inventory.Key, candidates []inventory.Key, ok bool, err error) {
	if err = ix.load(s.Database); err != nil {
		return inventory.Key{}, nil, false, err
	}
	pk := processKey{s.Name, s.ReferenceProduct, s.Location, s.Database}
	fk := flowKey{s.Name, strings.Join(s.Categories, "\x1f"), s.Database}
	byProcess := func() (inventory.Key, []inventory.Key, bool) {
		k, ok := ix.processes[pk]
		return k, ix.procDups[pk], ok
	}
	byFlow := func() (inventory.Key, []inventory.Key, bool) {
		k, ok := ix.flows[fk]
		return k, ix.flowDups[fk], ok
	}
	first, second := byProcess, byFlow
	if flow {
		first, second = byFlow, byProcess
	}
	if k, candidates, ok = first(); ok {
		return k, candidates, true, nil
	}
	k, candidates, ok = second()

	return k, candidates, ok, nil
}

// relink rewrites unknown database names through the relinker. It returns
// whether any row was rewritten.
func (e *Engine) relink(t *Table) (bool, error) {
	available := e.prov.Databases()
	known := make(map[string]bool, len(available))
	for _, db := range available {
		known[db] = true
	}
	missing := make(map[string][]Offender)
	for _, r := range t.Rows {
		for _, s := range []Side{r.From, r.To} {
			if db := s.database(); db != "" && !known[db] {
				missing[db] = append(missing[db], Offender{Line: r.Line, Detail: db})
			}
		}
	}
	if len(missing) == 0 {
		return false, nil
	}
	names := slices.Sorted(maps.Keys(missing))
	var all []Offender
	for _, db := range names {
		all = append(all, missing[db]...)
	}
	if e.o.relink == nil {
		return false, newOffenderError(ErrDatabaseNotFound, all)
	}
	mapping, ok := e.o.relink(names, available)
	if !ok {
		return false, newOffenderError(ErrDatabaseNotFound, all)
	}
	for _, db := range names {
		if !known[mapping[db]] {
			return false, newOffenderError(ErrDatabaseNotFound, missing[db])
		}
	}
	for i := range t.Rows {
		relinkSide(&t.Rows[i].From, mapping)
		relinkSide(&t.Rows[i].To, mapping)
	}
	e.o.log.Info("relinked scenario databases", "mapping", mapping)

	return true, nil
}

// relinkSide moves s to the mapped database. A relinked key is dropped so
// that it is resolved again from metadata.
func relinkSide(s *Side, mapping map[string]string) {
	if to, ok := mapping[s.Database]; ok {
		s.Database = to
	}
	if to, ok := mapping[s.Key.Database]; ok && !s.Key.IsZero() {
		if s.Database == "" {
			s.Database = to
		}
		s.Key = inventory.Key{}
	}
}

// fillKeys resolves every missing key and checks the given ones.
//
// Errors:
//   - *OffenderError wrapping ErrDatabaseNotFound for unknown databases
//     that are not relinked.
//   - *OffenderError wrapping ErrExchangeNotFound, or ErrLinkingFailed
//     after a relink, for unresolved rows.
//   - *OffenderError wrapping ErrAmbiguousNode when metadata matches
//     several nodes and the confirm policy declines.
func (e *Engine) fillKeys(ctx context.Context, t *Table) error {
	relinked, err := e.relink(t)
	if err != nil {
		return err
	}
	kind := ErrExchangeNotFound
	if relinked {
		kind = ErrLinkingFailed
	}

	ix := newNodeIndex(e.prov)
	bio := e.prov.Biosphere()
	var offenders, ambiguous []Offender
	for i := range t.Rows {
		if i%e.o.cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r := &t.Rows[i]
		flow := r.FlowType == inventory.Biosphere || r.From.database() == bio
		for _, side := range []struct {
			s    *Side
			flow bool
			name string
		}{{&r.From, flow, "from"}, {&r.To, false, "to"}} {
			desc := describe(*side.s)
			candidates, err := e.resolveSide(ix, side.s, side.flow)
			if err != nil {
				if !errors.Is(err, inventory.ErrNodeNotFound) {
					return err
				}
				offenders = append(offenders, Offender{Line: r.Line, Detail: fmt.Sprintf("%s %s", side.name, desc)})
				continue
			}
			if len(candidates) > 1 {
				ambiguous = append(ambiguous, Offender{Line: r.Line, Detail: fmt.Sprintf("%s %s matches %d nodes, using %v", side.name, desc, len(candidates), side.s.Key)})
			}
		}
	}
	if len(offenders) > 0 {
		return newOffenderError(kind, offenders)
	}
	if len(ambiguous) > 0 {
		return e.o.warn(newOffenderError(ErrAmbiguousNode, ambiguous))
	}

	return nil
}

// resolveSide fills s.Key. It returns the competing candidates when the
// metadata was ambiguous.
func (e *Engine) resolveSide(ix *nodeIndex, s *Side, flow bool) ([]inventory.Key, error) {
	if !s.Key.IsZero() {
		if _, err := e.prov.Node(s.Key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if s.Database == "" {
		return nil, inventory.ErrNodeNotFound
	}
	k, candidates, ok, err := ix.lookup(*s, flow)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, inventory.ErrNodeNotFound
	}
	s.Key = k

	return candidates, nil
}

func describe(s Side) string {
	if !s.Key.IsZero() {
		return s.Key.String()
	}
	parts := []string{s.Name}
	if s.ReferenceProduct != "" {
		parts = append(parts, s.ReferenceProduct)
	}
	if s.Location != "" {
		parts = append(parts, s.Location)
	}
	if len(s.Categories) > 0 {
		parts = append(parts, inventory.FormatTuple(s.Categories))
	}

	return inventory.FormatTuple(append(parts, s.Database))
}
