package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		price    *float64
		original *float64
		want     int
	}{
		{"half off", Float(500), Float(1000), 50},
		{"twenty percent", Float(800), Float(1000), 20},
		{"free is fully discounted", Float(0), Float(1000), 100},
		{"nil price is fully discounted", nil, nil, 100},
		{"no original price", Float(500), nil, 0},
		{"rounds to nearest", Float(596), Float(1000), 40},
		{"rounds half up", Float(875), Float(1000), 13},
		{"price above original rounds toward positive", Float(1125), Float(1000), -12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Listing{Kind: KindProduct, Price: tt.price, OriginalPrice: tt.original}
			assert.Equal(t, tt.want, l.Discount())
		})
	}
}

func TestPriceRange(t *testing.T) {
	p := Listing{Kind: KindProduct, Price: Float(10)}
	lo, hi := p.PriceRange()
	require.NotNil(t, lo)
	assert.Equal(t, 10.0, *lo)
	assert.Equal(t, 10.0, *hi)

	s := Listing{Kind: KindService, MaxPrice: Float(300)}
	lo, hi = s.PriceRange()
	require.NotNil(t, lo)
	assert.Equal(t, 300.0, *lo)
	assert.Equal(t, 300.0, *hi)

	d := Listing{Kind: KindDemand}
	lo, hi = d.PriceRange()
	assert.Nil(t, lo)
	assert.Nil(t, hi)
}

func TestMatchesCategory(t *testing.T) {
	d := Listing{Kind: KindDemand, ServiceCategory: "TUTORING"}
	assert.True(t, d.MatchesCategory("TUTORING"))
	assert.False(t, d.MatchesCategory("BOOKS"))

	empty := Listing{Kind: KindDemand}
	assert.False(t, empty.MatchesCategory("BOOKS"))

	p := Listing{Kind: KindProduct, Category: "BOOKS"}
	assert.True(t, p.MatchesCategory("BOOKS"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("services")
	require.NoError(t, err)
	assert.Equal(t, KindService, k)
	assert.Equal(t, "services", k.Plural())

	_, err = ParseKind("cars")
	assert.Error(t, err)
}
