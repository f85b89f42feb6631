package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantPer    int
		wantOffset int
	}{
		{name: "defaults", query: "", wantPage: 1, wantPer: 20, wantOffset: 0},
		{name: "custom", query: "page=3&per_page=50", wantPage: 3, wantPer: 50, wantOffset: 100},
		{name: "per_page above max", query: "per_page=500", wantPage: 1, wantPer: 20, wantOffset: 0},
		{name: "negative page", query: "page=-2", wantPage: 1, wantPer: 20, wantOffset: 0},
		{name: "garbage", query: "page=abc&per_page=x", wantPage: 1, wantPer: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)

			p := FromQuery(q)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPer, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 5, Params{Page: 2, PerPage: 2})
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)

	last := NewPage([]string{"e"}, 5, Params{Page: 3, PerPage: 2})
	assert.False(t, last.HasNext)

	empty := NewPage[int](nil, 0, Params{Page: 1, PerPage: 20})
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}
