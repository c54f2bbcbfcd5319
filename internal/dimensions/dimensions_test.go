package dimensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/errors"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   Map
		want string
	}{
		{"nil map", nil, "{}"},
		{"empty map", Map{}, "{}"},
		{"single", Map{"D1": "K1"}, "{D1=K1}"},
		{"sorted keys", Map{"device": "mobile", "country": "us"}, "{country=us,device=mobile}"},
		{"empty value", Map{"D1": ""}, "{D1=}"},
		{"escaped value", Map{"D1": "K1,D2=K2"}, `{D1=K1\,D2\=K2}`},
		{"escaped key", Map{"a{b}": `c\d`}, `{a\{b\}=c\\d}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalizeIsStable(t *testing.T) {
	m := Map{"D1": "K1"}
	first, err := Canonicalize(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Canonicalize(Map{"D1": "K1"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, first, m.String())
}

func TestCanonicalizeNoCollision(t *testing.T) {
	a, err := Canonicalize(Map{"D1": "K1,D2=K2"})
	require.NoError(t, err)
	b, err := Canonicalize(Map{"D1": "K1", "D2": "K2"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCanonicalizeEmptyKey(t *testing.T) {
	_, err := Canonicalize(Map{"": "K1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))
	assert.True(t, errors.IsValidation(err))
}

func TestParseRoundTrip(t *testing.T) {
	maps := []Map{
		{},
		{"D1": "K1"},
		{"D1": "K1,D2=K2"},
		{"country": "us", "device": "mobile", "browser": ""},
		{`we\ird`: "{}", "x=y": ",,"},
	}
	for _, m := range maps {
		sig, err := Canonicalize(m)
		require.NoError(t, err)

		got, err := Parse(sig)
		require.NoError(t, err, sig)
		assert.Equal(t, m, got, sig)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, sig := range []string{
		"",
		"D1=K1",
		"{D1=K1",
		"{D1}",
		"{=K1}",
		"{D1=K1,}",
		"{D1=K1,D1=K2}",
		`{D1=K1\}`,
		"{D1=K{1}",
	} {
		t.Run(sig, func(t *testing.T) {
			_, err := Parse(sig)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))
		})
	}
}

func TestParseAllowsEqualsInValue(t *testing.T) {
	m, err := Parse("{D1=a=b}")
	require.NoError(t, err)
	assert.Equal(t, Map{"D1": "a=b"}, m)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("{device=mobile,country=us}")
	require.NoError(t, err)
	assert.Equal(t, "{country=us,device=mobile}", got)

	got, err = Normalize("{D1=K1}")
	require.NoError(t, err)
	assert.Equal(t, "{D1=K1}", got)
}

func TestParsePairs(t *testing.T) {
	m, err := ParsePairs([]string{"D1=K1", "D2=a=b"})
	require.NoError(t, err)
	assert.Equal(t, Map{"D1": "K1", "D2": "a=b"}, m)

	_, err = ParsePairs([]string{"D1"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))

	_, err = ParsePairs([]string{"=K1"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))
}
