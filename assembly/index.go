package assembly

import "github.com/katalvlaran/lvlca/inventory"

// Index is an ordered bijection between keys and matrix positions.
type Index struct {
	keys []inventory.Key
	pos  map[inventory.Key]int
}

// NewIndex indexes keys in the given order. Duplicates keep their first
// position.
func NewIndex(keys []inventory.Key) Index {
	ix := Index{pos: make(map[inventory.Key]int, len(keys))}
	for _, k := range keys {
		if _, dup := ix.pos[k]; dup {
			continue
		}
		ix.pos[k] = len(ix.keys)
		ix.keys = append(ix.keys, k)
	}

	return ix
}

// Len returns the number of indexed keys.
func (ix Index) Len() int { return len(ix.keys) }

// Get returns the position of k.
func (ix Index) Get(k inventory.Key) (int, bool) {
	i, ok := ix.pos[k]
	return i, ok
}

// Key returns the key at position i; it panics when i is out of range.
func (ix Index) Key(i int) inventory.Key { return ix.keys[i] }

// Keys returns a copy of the keys in position order.
func (ix Index) Keys() []inventory.Key { return append([]inventory.Key(nil), ix.keys...) }
