package models

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"lost": KindLost, " FOUND ": KindFound, "Lost": KindLost} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("stolen"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if KindLost.Opposite() != KindFound || KindFound.Opposite() != KindLost {
		t.Error("Opposite is wrong")
	}
}

func TestItemInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      ItemInput
		wantErr bool
	}{
		{"valid", ItemInput{Kind: "lost", Title: "Black wallet"}, false},
		{"bad kind", ItemInput{Kind: "misplaced", Title: "x"}, true},
		{"blank title", ItemInput{Kind: "found", Title: "   "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error should wrap ErrInvalidInput: %v", err)
			}
		})
	}
}

func TestMatchQuery_Normalize(t *testing.T) {
	q := &MatchQuery{ItemID: "a"}
	if err := q.Normalize(10, 50, 60); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 10 || q.MinScore == nil || *q.MinScore != 60 {
		t.Errorf("defaults not applied: %+v", q)
	}

	zero := 0
	q = &MatchQuery{ItemID: "a", Limit: 500, MinScore: &zero}
	if err := q.Normalize(10, 50, 60); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 50 || *q.MinScore != 0 {
		t.Errorf("explicit zero min score must survive, limit capped: %+v", q)
	}

	bad := 101
	if err := (&MatchQuery{ItemID: "a", MinScore: &bad}).Normalize(10, 50, 60); err == nil {
		t.Error("expected error for min_score > 100")
	}
	if err := (&MatchQuery{}).Normalize(10, 50, 60); err == nil {
		t.Error("expected error for empty item id")
	}
}

func TestSearchQuery_Validate(t *testing.T) {
	q := &SearchQuery{Query: "umbrella", Kind: "FOUND", Limit: 500}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Kind != KindFound || q.Limit != 100 {
		t.Errorf("got %+v", q)
	}
	if err := (&SearchQuery{}).Validate(); err == nil {
		t.Error("expected error for empty query")
	}
	if err := (&SearchQuery{Query: "x", Kind: "nope"}).Validate(); err == nil {
		t.Error("expected error for bad kind")
	}
}
