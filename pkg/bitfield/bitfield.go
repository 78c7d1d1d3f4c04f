// Package bitfield packs a fixed, ordered catalog of named flags into a single integer.
//
// A catalog may hold more than 64 flags, so the value is backed by math/big. Sets are
// immutable: every combinator returns a new Set.
package bitfield

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrUnknownFlagName is returned when a name is not part of the catalog.
var ErrUnknownFlagName = errors.New("unknown flag name")

// Catalog is the ordered list of flag names. Bit i corresponds to the i-th name.
type Catalog struct {
	names []string
	index map[string]int
}

// NewCatalog builds a catalog. It panics on duplicate or empty names, since catalogs are
// declared as package-level values.
func NewCatalog(names ...string) *Catalog {
	c := &Catalog{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if n == "" {
			panic("bitfield: empty flag name")
		}
		if _, dup := c.index[n]; dup {
			panic(fmt.Sprintf("bitfield: duplicate flag name %q", n))
		}
		c.index[n] = i
	}
	return c
}

// Len returns the number of flags.
func (c *Catalog) Len() int { return len(c.names) }

// Names returns a copy of the catalog order.
func (c *Catalog) Names() []string { return append([]string(nil), c.names...) }

// Bit returns the bit position of name.
func (c *Catalog) Bit(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Definition ties a Set type to its catalog and default policy. Implementations are
// usually empty structs, which keeps sets of different catalogs distinct types.
type Definition interface {
	Catalog() *Catalog
	Defaults() []string
}

// Set is an immutable set of flags of catalog D.
type Set[D Definition] struct {
	bits *big.Int
}

func catalogOf[D Definition]() *Catalog {
	var d D
	return d.Catalog()
}

func (s Set[D]) value() *big.Int {
	if s.bits == nil {
		return new(big.Int)
	}
	return s.bits
}

// None returns the empty set.
func None[D Definition]() Set[D] { return Set[D]{} }

// All returns the set with every catalog flag.
func All[D Definition]() Set[D] {
	n := catalogOf[D]().Len()
	v := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return Set[D]{bits: v.Sub(v, big.NewInt(1))}
}

// Default returns the catalog's default policy.
func Default[D Definition]() Set[D] {
	var d D
	s, err := FromNames[D](d.Defaults()...)
	if err != nil {
		panic(fmt.Sprintf("bitfield: invalid default policy: %v", err))
	}
	return s
}

// FromNames ORs the bit of every name. Order does not matter.
func FromNames[D Definition](names ...string) (Set[D], error) {
	cat := catalogOf[D]()
	v := new(big.Int)
	for _, n := range names {
		bit, ok := cat.Bit(n)
		if !ok {
			return Set[D]{}, fmt.Errorf("%w: %q", ErrUnknownFlagName, n)
		}
		v.SetBit(v, bit, 1)
	}
	return Set[D]{bits: v}, nil
}

// FromInt builds a set from a raw integer. Bits beyond the catalog are dropped and reported
// through the returned count so callers can log the integrity fault.
func FromInt[D Definition](raw *big.Int) (Set[D], int) {
	if raw == nil || raw.Sign() <= 0 {
		return Set[D]{}, 0
	}
	mask := All[D]().value()
	v := new(big.Int).And(raw, mask)
	extra := new(big.Int).AndNot(raw, mask)
	dropped := 0
	for i := 0; i < extra.BitLen(); i++ {
		if extra.Bit(i) == 1 {
			dropped++
		}
	}
	return Set[D]{bits: v}, dropped
}

// Parse decodes the decimal representation produced by String.
func Parse[D Definition](s string) (Set[D], int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Set[D]{}, 0, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return Set[D]{}, 0, fmt.Errorf("bitfield: invalid value %q", s)
	}
	set, dropped := FromInt[D](v)
	return set, dropped, nil
}

// Names returns the flags present in the set, in catalog order.
func (s Set[D]) Names() []string {
	cat := catalogOf[D]()
	v := s.value()
	out := make([]string, 0)
	for i, n := range cat.names {
		if v.Bit(i) == 1 {
			out = append(out, n)
		}
	}
	return out
}

// Has reports whether name is set. Unknown names are never set.
func (s Set[D]) Has(name string) bool {
	bit, ok := catalogOf[D]().Bit(name)
	return ok && s.value().Bit(bit) == 1
}

// HasAll reports whether every name is set.
func (s Set[D]) HasAll(names ...string) bool {
	other, err := FromNames[D](names...)
	if err != nil {
		return false
	}
	and := new(big.Int).And(s.value(), other.value())
	return and.Cmp(other.value()) == 0
}

// Union returns s | other.
func (s Set[D]) Union(other Set[D]) Set[D] {
	return Set[D]{bits: new(big.Int).Or(s.value(), other.value())}
}

// Equal compares two sets.
func (s Set[D]) Equal(other Set[D]) bool {
	return s.value().Cmp(other.value()) == 0
}

// Len returns the number of flags set.
func (s Set[D]) Len() int {
	return len(s.Names())
}

// Int returns a copy of the underlying integer.
func (s Set[D]) Int() *big.Int {
	return new(big.Int).Set(s.value())
}

// String renders the decimal integer, which is the storage format.
func (s Set[D]) String() string {
	return s.value().String()
}

// MarshalText implements encoding.TextMarshaler so JSON carries the value as a string.
func (s Set[D]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown bits are dropped.
func (s *Set[D]) UnmarshalText(b []byte) error {
	set, _, err := Parse[D](string(b))
	if err != nil {
		return err
	}
	*s = set
	return nil
}
