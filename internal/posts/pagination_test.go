package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaginationMeta(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		page      Page
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty result", 0, Page{Number: 1, Size: 10}, 0, false, false},
		{"single partial page", 7, Page{Number: 1, Size: 10}, 1, false, false},
		{"exact multiple", 20, Page{Number: 1, Size: 10}, 2, true, false},
		{"first of many", 25, Page{Number: 1, Size: 10}, 3, true, false},
		{"middle page", 25, Page{Number: 2, Size: 10}, 3, true, true},
		{"last page", 25, Page{Number: 3, Size: 10}, 3, false, true},
		{"beyond last page", 25, Page{Number: 5, Size: 10}, 3, false, true},
		{"page size one", 3, Page{Number: 3, Size: 1}, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := NewPaginationMeta(tt.total, tt.page)
			require.NoError(t, err)

			assert.Equal(t, tt.total, meta.TotalCount)
			assert.Equal(t, tt.page.Number, meta.CurrentPage)
			assert.Equal(t, tt.page.Size, meta.PageSize)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.wantNext, meta.HasNext)
			assert.Equal(t, tt.wantPrev, meta.HasPrev)
		})
	}
}

func TestNewPaginationMeta_Invalid(t *testing.T) {
	for _, page := range []Page{{Number: 1, Size: 0}, {Number: 1, Size: -5}, {Number: 0, Size: 10}} {
		_, err := NewPaginationMeta(10, page)
		assert.ErrorIs(t, err, ErrInvalidPagination)
	}
}

func TestPage_Validate(t *testing.T) {
	page := Page{Number: 2, Size: 500}
	require.NoError(t, page.Validate())
	assert.Equal(t, MaxPageSize, page.Size)
	assert.Equal(t, MaxPageSize, page.Offset())

	bad := Page{Number: 0, Size: 10}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPagination)

	bad = Page{Number: 1, Size: 0}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPagination)
}
