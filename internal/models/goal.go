package models

// Goal is one prioritized financial goal. Its position in the list IS
// its priority: OriginalID records the backend's 1-based priority key
// from the last fetch (empty for an unsaved goal), but submitted
// priorities are always re-derived from list order.
type Goal struct {
	ID          string `json:"id"`
	OriginalID  string `json:"original_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// IsBlank reports whether both title and description are empty. Blank
// goals are never persisted.
func (g Goal) IsBlank() bool {
	return g.Title == "" && g.Description == ""
}
