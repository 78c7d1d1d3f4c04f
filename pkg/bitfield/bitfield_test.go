package bitfield

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wideCatalog = func() *Catalog {
	names := make([]string, 0, 90)
	for i := 0; i < 90; i++ {
		names = append(names, fmt.Sprintf("FLAG_%02d", i))
	}
	return NewCatalog(names...)
}()

type wideDef struct{}

func (wideDef) Catalog() *Catalog  { return wideCatalog }
func (wideDef) Defaults() []string { return []string{"FLAG_01", "FLAG_70"} }

type wide = Set[wideDef]

func TestFromNamesToNamesRoundTrip(t *testing.T) {
	set, err := FromNames[wideDef]("FLAG_80", "FLAG_00", "FLAG_65")
	require.NoError(t, err)
	assert.Equal(t, []string{"FLAG_00", "FLAG_65", "FLAG_80"}, set.Names())
	assert.True(t, set.Has("FLAG_80"))
	assert.False(t, set.Has("FLAG_81"))
	assert.False(t, set.Has("NOPE"))
}

func TestFromNamesRejectsUnknown(t *testing.T) {
	_, err := FromNames[wideDef]("FLAG_00", "BOGUS")
	require.ErrorIs(t, err, ErrUnknownFlagName)
}

func TestHasAllRequiresEveryName(t *testing.T) {
	set, err := FromNames[wideDef]("FLAG_02", "FLAG_03")
	require.NoError(t, err)
	assert.True(t, set.HasAll("FLAG_02", "FLAG_03"))
	assert.False(t, set.HasAll("FLAG_02", "FLAG_04"))
	assert.True(t, set.HasAll())
}

func TestDefaultDiffersFromAllAndNone(t *testing.T) {
	def := Default[wideDef]()
	assert.Equal(t, []string{"FLAG_01", "FLAG_70"}, def.Names())
	assert.False(t, def.Equal(All[wideDef]()))
	assert.False(t, def.Equal(None[wideDef]()))
	assert.Equal(t, 90, All[wideDef]().Len())
	assert.Equal(t, 0, None[wideDef]().Len())
}

func TestUnionAndEqual(t *testing.T) {
	a, _ := FromNames[wideDef]("FLAG_10")
	b, _ := FromNames[wideDef]("FLAG_75", "FLAG_10")
	u := a.Union(b)
	want, _ := FromNames[wideDef]("FLAG_75", "FLAG_10")
	assert.True(t, u.Equal(want))
	assert.True(t, None[wideDef]().Union(a).Equal(a))
}

func TestParseDropsBitsOutsideCatalog(t *testing.T) {
	raw := new(big.Int).SetBit(new(big.Int), 95, 1)
	raw.SetBit(raw, 3, 1)

	set, dropped, err := Parse[wideDef](raw.String())
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"FLAG_03"}, set.Names())

	_, _, err = Parse[wideDef]("-4")
	assert.Error(t, err)
	_, _, err = Parse[wideDef]("abc")
	assert.Error(t, err)

	empty, dropped, err := Parse[wideDef]("")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.True(t, empty.Equal(None[wideDef]()))
}

func TestJSONCarriesDecimalString(t *testing.T) {
	set, _ := FromNames[wideDef]("FLAG_00", "FLAG_64")
	b, err := json.Marshal(struct {
		Filters wide `json:"filters"`
	}{set})
	require.NoError(t, err)

	var decoded struct {
		Filters wide `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, decoded.Filters.Equal(set))
}

func TestNamesBijectionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Names(FromNames(S)) == S", prop.ForAll(
		func(idx []int) bool {
			seen := map[int]bool{}
			var want []int
			for _, i := range idx {
				if !seen[i] {
					seen[i] = true
					want = append(want, i)
				}
			}
			sort.Ints(want)

			names := make([]string, 0, len(idx))
			for _, i := range idx {
				names = append(names, wideCatalog.names[i])
			}
			set, err := FromNames[wideDef](names...)
			if err != nil {
				return false
			}
			got := set.Names()
			if len(got) != len(want) {
				return false
			}
			for k, i := range want {
				if got[k] != wideCatalog.names[i] {
					return false
				}
			}
			reparsed, _, err := Parse[wideDef](set.String())
			return err == nil && reparsed.Equal(set)
		},
		gen.SliceOf(gen.IntRange(0, wideCatalog.Len()-1)),
	))

	properties.TestingRun(t)
}

func TestNewCatalogPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() { NewCatalog("A", "B", "A") })
	assert.Panics(t, func() { NewCatalog("") })
}
