package sessions

import "encoding/json"

// DefaultPageSize is the number of sessions per page.
const DefaultPageSize = 20

// Page is one slice of the session list.
type Page struct {
	Items       []json.RawMessage `json:"items"`
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	TotalItems  int               `json:"total_items"`
	HasNext     bool              `json:"has_next"`
	HasPrev     bool              `json:"has_prev"`
}

// Paginate returns page number page (1-based) of items. Pages past the end
// are empty; a page below 1 is treated as 1 and a size below 1 as
// DefaultPageSize.
func Paginate(items []json.RawMessage, page, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	total := (len(items) + size - 1) / size
	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))
	return Page{
		Items:       append([]json.RawMessage{}, items[start:end]...),
		CurrentPage: page,
		TotalPages:  total,
		TotalItems:  len(items),
		HasNext:     page < total,
		HasPrev:     page > 1,
	}
}
