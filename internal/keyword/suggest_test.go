package keyword

import (
	"context"
	"errors"
	"testing"
)

type mapDictionary map[string]int

func (m mapDictionary) Terms() (map[string]int, error) { return m, nil }

type failingDictionary struct{}

func (failingDictionary) Terms() (map[string]int, error) { return nil, errors.New("boom") }

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"febre", "febre", 0},
		{"questao", "questão", 1},
		{"tórax", "torax", 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	dict := mapDictionary{"febre": 4, "fibra": 1, "exantema": 2, "criança": 3}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"known terms unchanged", "febre exantema", ""},
		{"closest term wins", "fobre", "febre"},
		{"frequency breaks distance tie", "fibre", "febre"},
		{"only unknown term replaced", "Febre exantemq", "febre exantema"},
		{"too far", "xyzxyz", ""},
		{"accent", "crianca", "criança"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Suggest(dict, tt.query, 2)
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}

	if _, err := Suggest(failingDictionary{}, "febre", 2); err == nil {
		t.Error("expected dictionary error")
	}
}

func TestBleveIndex_Terms(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.IndexExtraction(context.Background(), "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction: %v", err)
	}
	terms, err := idx.Terms()
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	for _, want := range []string{"febre", "sarampo", "dispneia"} {
		if terms[want] == 0 {
			t.Errorf("Terms missing %q", want)
		}
	}

	got, err := Suggest(idx, "sarampu", 2)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got != "sarampo" {
		t.Errorf("Suggest = %q, want sarampo", got)
	}
}
