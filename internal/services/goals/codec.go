// Package goals converts between the backend's ordered goal map
// ({"1": {...}, "2": {...}}) and the in-memory prioritized list, and
// provides the pure reordering used by the edit surface.
package goals

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"findash/internal/api"
	"findash/internal/models"
)

var titleCaser = cases.Title(language.English)

// goalValue is the canonical object shape of a stored goal.
type goalValue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Decode turns the backend goal map into an ordered list. Keys are
// sorted numerically ascending ("2" before "10"); non-numeric keys
// sort after numeric ones, lexically. Legacy bare-string values get a
// title humanized from the key; anything else falls back to a generic
// title with the raw value as description.
func Decode(apiGoals map[string]json.RawMessage) []models.Goal {
	if len(apiGoals) == 0 {
		return []models.Goal{}
	}

	keys := make([]string, 0, len(apiGoals))
	for k := range apiGoals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	out := make([]models.Goal, 0, len(keys))
	for _, k := range keys {
		out = append(out, decodeValue(k, apiGoals[k]))
	}
	return out
}

func decodeValue(key string, raw json.RawMessage) models.Goal {
	g := models.Goal{
		ID:         uuid.NewString(),
		OriginalID: key,
	}

	var obj goalValue
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Title != "" || obj.Description != "") {
		g.Title = obj.Title
		g.Description = obj.Description
		return g
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		g.Title = HumanizeKey(key)
		g.Description = s
		return g
	}

	g.Title = "Goal Detail"
	g.Description = strings.TrimSpace(string(raw))
	return g
}

// Encode emits the canonical map shape with keys "1".."N" strictly by
// list order. Blank goals are dropped before numbering so the keys
// stay contiguous. Decode tolerates legacy shapes but Encode always
// emits the canonical one; that asymmetry migrates old data forward
// without a server-side migration.
func Encode(list []models.Goal) map[string]api.GoalPayload {
	out := make(map[string]api.GoalPayload)
	n := 0
	for _, g := range list {
		if g.IsBlank() {
			continue
		}
		n++
		out[strconv.Itoa(n)] = api.GoalPayload{
			Title:       g.Title,
			Description: g.Description,
		}
	}
	return out
}

// HumanizeKey turns a legacy map key like "emergency_fund" into a
// display title like "Emergency Fund".
func HumanizeKey(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}
