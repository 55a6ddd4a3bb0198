package sessions

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numbered(n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(strconv.Itoa(i + 1))
	}
	return items
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		page      int
		size      int
		wantItems int
		wantFirst string
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"first page", 45, 1, 20, 20, "1", 3, true, false},
		{"middle page", 45, 2, 20, 20, "21", 3, true, true},
		{"last partial page", 45, 3, 20, 5, "41", 3, false, true},
		{"past the end", 45, 4, 20, 0, "", 3, false, true},
		{"page below one", 45, 0, 20, 20, "1", 3, true, false},
		{"default size", 45, 1, 0, 20, "1", 3, true, false},
		{"exact multiple", 40, 2, 20, 20, "21", 2, false, true},
		{"empty list", 0, 1, 20, 0, "", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(numbered(tt.total), tt.page, tt.size)
			assert.Len(t, p.Items, tt.wantItems)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, string(p.Items[0]))
			}
			assert.NotNil(t, p.Items)
			assert.Equal(t, tt.total, p.TotalItems)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrev)
		})
	}
}
