package goals

import "findash/internal/models"

// Reorder returns a copy of list with the element at from moved to to.
// Equal or out-of-range indices are a no-op (the input is still
// copied). OriginalID is untouched: position alone determines the
// priority submitted by Encode.
func Reorder(list []models.Goal, from, to int) []models.Goal {
	out := make([]models.Goal, len(list))
	copy(out, list)

	if from == to || from < 0 || to < 0 || from >= len(out) || to >= len(out) {
		return out
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)

	rest := make([]models.Goal, 0, len(list))
	rest = append(rest, out[:to]...)
	rest = append(rest, moved)
	rest = append(rest, out[to:]...)
	return rest
}
