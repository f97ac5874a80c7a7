package goals

import (
	"encoding/json"
	"testing"

	"findash/internal/models"
)

func rawGoals(pairs map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(pairs))
	for k, v := range pairs {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestDecodeOrdersKeysNumerically(t *testing.T) {
	in := rawGoals(map[string]string{
		"10": `{"title":"Tenth","description":"j"}`,
		"2":  `{"title":"Second","description":"b"}`,
		"1":  `{"title":"First","description":"a"}`,
	})

	got := Decode(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 goals, got %d", len(got))
	}

	wantTitles := []string{"First", "Second", "Tenth"}
	for i, want := range wantTitles {
		if got[i].Title != want {
			t.Errorf("goal %d title = %q, want %q", i, got[i].Title, want)
		}
	}
	if got[2].OriginalID != "10" {
		t.Errorf("OriginalID = %q, want %q", got[2].OriginalID, "10")
	}
}

func TestDecodeLegacyStringValue(t *testing.T) {
	in := rawGoals(map[string]string{
		"emergency_fund": `"Save $5000 for emergencies"`,
	})

	got := Decode(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(got))
	}
	if got[0].Title != "Emergency Fund" {
		t.Errorf("Title = %q, want %q", got[0].Title, "Emergency Fund")
	}
	if got[0].Description != "Save $5000 for emergencies" {
		t.Errorf("Description = %q", got[0].Description)
	}
}

func TestDecodeUnrecognizedValue(t *testing.T) {
	in := rawGoals(map[string]string{"1": `42`})

	got := Decode(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(got))
	}
	if got[0].Title != "Goal Detail" {
		t.Errorf("Title = %q, want %q", got[0].Title, "Goal Detail")
	}
	if got[0].Description != "42" {
		t.Errorf("Description = %q, want %q", got[0].Description, "42")
	}
}

func TestDecodeEmpty(t *testing.T) {
	if got := Decode(nil); len(got) != 0 {
		t.Errorf("Decode(nil) = %v, want empty", got)
	}
}

func TestEncodeNumbersByListOrder(t *testing.T) {
	list := []models.Goal{
		{ID: "a", OriginalID: "3", Title: "House", Description: "deposit"},
		{ID: "b", Title: "Car", Description: "replace"},
		{ID: "c", OriginalID: "1", Title: "Travel", Description: ""},
	}

	got := Encode(list)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got["1"].Title != "House" || got["2"].Title != "Car" || got["3"].Title != "Travel" {
		t.Errorf("unexpected ordering: %+v", got)
	}
}

func TestEncodeDropsBlankGoals(t *testing.T) {
	list := []models.Goal{
		{ID: "a", Title: "House", Description: "deposit"},
		{ID: "b", Title: "", Description: ""},
		{ID: "c", Title: "Travel", Description: "asia"},
	}

	got := Encode(list)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// Keys must stay contiguous after the blank is dropped.
	if got["1"].Title != "House" || got["2"].Title != "Travel" {
		t.Errorf("unexpected entries: %+v", got)
	}
	if _, ok := got["3"]; ok {
		t.Error("blank goal leaked into the encoded map")
	}
}

func TestEncodeAfterDecodeRoundTrip(t *testing.T) {
	in := rawGoals(map[string]string{
		"1": `{"title":"First","description":"a"}`,
		"2": `{"title":"Second","description":"b"}`,
		"3": `{"title":"Third","description":"c"}`,
	})

	got := Encode(Decode(in))
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for key, want := range map[string]string{"1": "First", "2": "Second", "3": "Third"} {
		if got[key].Title != want {
			t.Errorf("key %s title = %q, want %q", key, got[key].Title, want)
		}
	}
}

func TestHumanizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"emergency_fund", "Emergency Fund"},
		{"vacation", "Vacation"},
		{"pay_off_debt", "Pay Off Debt"},
	}
	for _, tt := range tests {
		if got := HumanizeKey(tt.input); got != tt.expected {
			t.Errorf("HumanizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
