package ranking

import (
	"reflect"
	"testing"

	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/models"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		terms   []string
		phrases []string
		negated []string
	}{
		{"single word", "Dengue", []string{"dengue"}, []string{}, []string{}},
		{"punctuation trimmed", "febre, amarela?", []string{"febre", "amarela"}, []string{}, []string{}},
		{"hyphen kept", "pré-eclâmpsia", []string{"pré-eclâmpsia"}, []string{}, []string{}},
		{"phrase", `conduta "febre  Amarela"`, []string{"conduta"}, []string{"febre amarela"}, []string{}},
		{"dash negation", "dengue -grave", []string{"dengue"}, []string{}, []string{"grave"}},
		{"NOT negation", "dengue NOT grave", []string{"dengue"}, []string{}, []string{"grave"}},
		{"boolean operators skipped", "dengue AND zika OR chikungunya", []string{"dengue", "zika", "chikungunya"}, []string{}, []string{}},
		{"lone dash ignored", "dengue -", []string{"dengue"}, []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.query)
			if !reflect.DeepEqual(got.Terms, tt.terms) {
				t.Errorf("Terms = %q, want %q", got.Terms, tt.terms)
			}
			if !reflect.DeepEqual(got.Phrases, tt.phrases) {
				t.Errorf("Phrases = %q, want %q", got.Phrases, tt.phrases)
			}
			if !reflect.DeepEqual(got.NegatedTerms, tt.negated) {
				t.Errorf("NegatedTerms = %q, want %q", got.NegatedTerms, tt.negated)
			}
		})
	}
}

func TestMatchText(t *testing.T) {
	if got := Analyze(`febre "febre amarela" -grave`).MatchText(); got != "febre amarela" {
		t.Errorf("MatchText = %q", got)
	}
	if got := Analyze("-grave NOT leve").MatchText(); got != "" {
		t.Errorf("negation-only MatchText = %q, want empty", got)
	}
}

func TestIndexWordPrefix(t *testing.T) {
	tests := []struct {
		text, term string
		from, want int
	}{
		{"dor abdominal", "dor", 0, 0},
		{"condor e dor", "dor", 0, 9},
		{"hipertensão arterial", "hipert", 0, 0},
		{"tensão", "ensão", 0, -1},
		{"dor e dor", "dor", 1, 6},
		{"", "dor", 0, -1},
		{"dor", "", 0, -1},
	}
	for _, tt := range tests {
		if got := indexWordPrefix(tt.text, tt.term, tt.from); got != tt.want {
			t.Errorf("indexWordPrefix(%q, %q, %d) = %d, want %d", tt.text, tt.term, tt.from, got, tt.want)
		}
	}
}

func TestTermsInOrder(t *testing.T) {
	if !termsInOrder([]string{"febre", "amarela"}, "quadro de febre amarela") {
		t.Error("expected terms in order")
	}
	if termsInOrder([]string{"amarela", "febre"}, "quadro de febre amarela") {
		t.Error("reversed terms should not be in order")
	}
	if termsInOrder(nil, "x") {
		t.Error("no terms should not be in order")
	}
}

func TestRanker_Excluded(t *testing.T) {
	r := NewRanker(nil)
	q := &models.Question{Stem: "Paciente com dengue", Options: models.Options{C: "Dengue grave"}}
	if !r.Excluded(Analyze("dengue -grave"), q) {
		t.Error("negated term in an option should exclude")
	}
	if r.Excluded(Analyze("dengue -zika"), q) {
		t.Error("absent negated term should not exclude")
	}
	if r.Excluded(Analyze("dengue"), q) {
		t.Error("query without negation should not exclude")
	}
}

func TestRanker_Score(t *testing.T) {
	r := NewRanker(nil)
	query := Analyze("febre amarela")

	stemMatch := &models.Question{Stem: "Criança com febre amarela confirmada."}
	optionMatch := &models.Question{Stem: "Qual o diagnóstico?", Options: models.Options{A: "Febre amarela"}}
	partial := &models.Question{Stem: "Criança com febre há três dias."}
	none := &models.Question{Stem: "Sem relação."}

	sStem := r.Score(query, stemMatch, 1)
	sOption := r.Score(query, optionMatch, 1)
	sPartial := r.Score(query, partial, 1)
	sNone := r.Score(query, none, 1)

	if !(sStem > sOption && sOption > sNone) {
		t.Errorf("stem %v, option %v, none %v: want stem > option > none", sStem, sOption, sNone)
	}
	if !(sStem > sPartial && sPartial > sNone) {
		t.Errorf("stem %v, partial %v, none %v: want stem > partial > none", sStem, sPartial, sNone)
	}
	if sNone != 1 {
		t.Errorf("no match should keep the keyword score, got %v", sNone)
	}
	if got := r.Score(query, stemMatch, 0); got != 0 {
		t.Errorf("zero keyword score = %v, want 0", got)
	}
}

func TestRanker_PhraseBeatsScatteredTerms(t *testing.T) {
	r := NewRanker(nil)
	query := Analyze(`"febre amarela"`)
	phrase := &models.Question{Stem: "Caso de febre amarela."}
	scattered := &models.Question{Stem: "Caso de febre com pele amarela."}
	if r.Score(query, phrase, 1) <= r.Score(query, scattered, 1) {
		t.Error("exact phrase should outscore scattered terms")
	}
}

func TestRanker_PositionBoost(t *testing.T) {
	r := NewRanker(&config.RankingConfig{PositionBoostRunes: 10, PositionBoostMultiplier: 2})
	query := Analyze("sepse")
	early := &models.Question{Stem: "Sepse em idoso."}
	late := &models.Question{Stem: "Idoso internado há dez dias evolui com sepse."}
	if r.Score(query, early, 1) <= r.Score(query, late, 1) {
		t.Error("early match should be boosted")
	}
}

func TestRanker_Rerank(t *testing.T) {
	r := NewRanker(nil)
	query := Analyze("dengue -grave")
	results := []*models.SearchResult{
		{ExtractionID: "a", Question: &models.Question{Number: 1, Stem: "Qual o diagnóstico?", Options: models.Options{A: "Dengue"}}, Score: 1, Rank: 1},
		{ExtractionID: "b", Question: &models.Question{Number: 2, Stem: "Dengue grave com choque."}, Score: 1, Rank: 2},
		{ExtractionID: "c", Question: &models.Question{Number: 3, Stem: "Dengue clássica."}, Score: 1, Rank: 3},
		{ExtractionID: "d", Question: nil, Score: 5, Rank: 4},
	}
	got := r.Rerank(query, results)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ExtractionID != "c" || got[1].ExtractionID != "a" {
		t.Errorf("order = %s, %s; want c, a", got[0].ExtractionID, got[1].ExtractionID)
	}
	if got[0].Rank != 1 || got[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", got[0].Rank, got[1].Rank)
	}
}
