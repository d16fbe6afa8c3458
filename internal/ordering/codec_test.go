package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_GFR7(t *testing.T) {
	c := NewCodec(testCatalog())

	order, err := c.Encode("GFR", 7)
	require.NoError(t, err)
	assert.Equal(t, 2007, order)

	assert.Equal(t, "GFR", c.DecodeSector(2007))
	assert.Equal(t, 7, c.DecodeSequence(2007))

	text, err := c.Format(order)
	require.NoError(t, err)
	assert.Equal(t, "02007", text)

	parsed, err := c.Parse("02007")
	require.NoError(t, err)
	assert.Equal(t, 2007, parsed)
}

func TestEncode_RoundTrip(t *testing.T) {
	c := NewCodec(testCatalog())

	for _, code := range c.Catalog().Codes() {
		for seq := MinSequence; seq <= MaxSequence; seq++ {
			order, err := c.Encode(code, seq)
			require.NoError(t, err)
			require.Equal(t, code, c.DecodeSector(order))
			require.Equal(t, seq, c.DecodeSequence(order))
			require.True(t, c.InRange(order))
		}
	}
}

func TestEncode_NormalizesCode(t *testing.T) {
	c := NewCodec(testCatalog())
	order, err := c.Encode(" pan ", 12)
	require.NoError(t, err)
	assert.Equal(t, 3012, order)
}

func TestEncode_RejectsSequenceOutOfRange(t *testing.T) {
	c := NewCodec(testCatalog())

	for _, seq := range []int{0, -1, 1000, 1234} {
		_, err := c.Encode("GRL", seq)
		require.Error(t, err, "sequence %d", seq)
		assert.True(t, IsOutOfRange(err))
	}
}

func TestEncode_UnknownSector(t *testing.T) {
	c := NewCodec(testCatalog())

	_, err := c.Encode("XXX", 1)
	require.Error(t, err)
	assert.True(t, IsInvalidSector(err))
	assert.Contains(t, err.Error(), "sector=XXX")
}

func TestCheckSector(t *testing.T) {
	c := NewCodec(testCatalog())

	code, err := c.CheckSector(" gfr")
	require.NoError(t, err)
	assert.Equal(t, "GFR", code)

	_, err = c.CheckSector("BEB")
	assert.True(t, IsInvalidSector(err))
}

func TestDecodeSector_FallsBackToFirstSector(t *testing.T) {
	c := NewCodec(testCatalog())

	for _, order := range []int{5, 4001, 99001, -3} {
		assert.Equal(t, "GRL", c.DecodeSector(order), "order %d", order)
		assert.False(t, c.InRange(order), "order %d", order)

		_, err := c.DecodeSectorStrict(order)
		require.Error(t, err)
		assert.True(t, IsInvalidSector(err))
	}
}

func TestFormat_Bounds(t *testing.T) {
	c := NewCodec(testCatalog())

	text, err := c.Format(0)
	require.NoError(t, err)
	assert.Equal(t, "00000", text)

	text, err = c.Format(MaxOrder)
	require.NoError(t, err)
	assert.Equal(t, "99999", text)

	_, err = c.Format(-1)
	assert.True(t, IsOutOfRange(err))
	_, err = c.Format(MaxOrder + 1)
	assert.True(t, IsOutOfRange(err))
}

func TestParse_Rejects(t *testing.T) {
	c := NewCodec(testCatalog())

	for _, text := range []string{"", "2007", "020070", "0a007", "-2007"} {
		_, err := c.Parse(text)
		assert.Error(t, err, "text %q", text)
	}
}
