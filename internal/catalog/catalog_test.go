package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NormalizesCodes(t *testing.T) {
	c, err := New([]Sector{
		{Code: " grl ", Name: "Granel"},
		{Code: "Gfr", Name: "Gofrería"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GRL", "GFR"}, c.Codes())
	pos, ok := c.Position("gfr")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		sectors []Sector
		errMsg  string
	}{
		{"empty catalog", nil, "no sectors"},
		{"empty code", []Sector{{Code: " ", Name: "x"}}, "empty code"},
		{"bad code", []Sector{{Code: "GR-L", Name: "x"}}, "1-8 letters"},
		{"long code", []Sector{{Code: "ABCDEFGHI", Name: "x"}}, "1-8 letters"},
		{"empty name", []Sector{{Code: "GRL", Name: ""}}, "empty name"},
		{"duplicate", []Sector{{Code: "GRL", Name: "a"}, {Code: "grl", Name: "b"}}, "positions 1 and 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.sectors)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNew_TooManySectors(t *testing.T) {
	sectors := make([]Sector, MaxSectors+1)
	for i := range sectors {
		sectors[i] = Sector{Code: "S" + string(rune('A'+i%26)) + string(rune('A'+i/26)), Name: "n"}
	}
	_, err := New(sectors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the maximum")
}

func TestAt(t *testing.T) {
	c := MustNew([]Sector{{Code: "GRL", Name: "Granel"}, {Code: "GFR", Name: "Gofrería"}})

	s, ok := c.At(1)
	require.True(t, ok)
	assert.Equal(t, "GRL", s.Code)

	_, ok = c.At(0)
	assert.False(t, ok)
	_, ok = c.At(3)
	assert.False(t, ok)

	assert.Equal(t, "GRL", c.First().Code)
}

func TestLookup(t *testing.T) {
	c := Default()

	s, ok := c.Lookup(" pan ")
	require.True(t, ok)
	assert.Equal(t, Sector{Code: "PAN", Name: "Panadería"}, s)
	assert.True(t, c.Contains("bol"))

	_, ok = c.Lookup("ZZZ")
	assert.False(t, ok)
	assert.False(t, c.Contains("ZZZ"))

	assert.Equal(t, []string{"GRL", "GFR", "PAN", "BOL", "PAS", "SAL", "BEB"}, c.Codes())
}

func TestSectors_ReturnsCopy(t *testing.T) {
	c := MustNew([]Sector{{Code: "GRL", Name: "Granel"}})
	s := c.Sectors()
	s[0].Code = "XXX"
	assert.Equal(t, "GRL", c.First().Code)
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 7, c.Len())

	pos, ok := c.Position("GRL")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = c.Position("GFR")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestLoadCUE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.cue")
	src := `sectors: [
	{code: "grl", name: "Granel"},
	{code: "PAN", name: "Panadería"},
]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRL", "PAN"}, c.Codes())
}

func TestLoadCUE_SchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.cue")
	src := `sectors: [{code: "G-1", name: "Granel"}]`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	_, err := LoadCUE(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
}

func TestLoadCUE_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.cue")
	src := `sectors: [{code: "GRL", name: "Granel", colour: "red"}]`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	_, err := LoadCUE(path)
	require.Error(t, err)
}

func TestLoadCUE_Incomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.cue")
	src := `sectors: [{code: "GRL", name: string}]`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	_, err := LoadCUE(path)
	require.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	src := `sectors:
  - code: GRL
    name: Granel
  - code: GFR
    name: Gofrería
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRL", "GFR"}, c.Codes())
}

func TestLoadYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("sectors:\n  - code: GRL\n    name: Granel\n    label: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("sectors.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
}
