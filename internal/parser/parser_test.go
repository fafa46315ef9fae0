package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/revalida/internal/models"
)

var examPages = []string{
	"PRIMEIRA EDIÇÃO\nQUESTÃO 1\nPaciente de 30 anos com febre.\nQual a conduta?\nA Solicitar exames.\nB Iniciar antibiótico\nC Observar\nD Internar\nE Alta\n",
	"QUESTÃO 2\nQual o diagnóstico?\nA Dengue\nB Zika\nC Chikungunya\nD Malária\nE Febre amarela\nÁREA LIVRE\n",
	"QUESTAO 250\nfora do intervalo\nGABARITO\n1 - A\n2 - C\n",
}

func TestJoinPages(t *testing.T) {
	got := JoinPages([]string{"um", "dois três"})
	want := "\n--- PAGE 1 ---\num\n--- PAGE 2 ---\ndois três"
	if got != want {
		t.Errorf("JoinPages = %q, want %q", got, want)
	}
}

func TestSplitBlocks(t *testing.T) {
	p := New(Config{})
	blocks := p.SplitBlocks(JoinPages(examPages))
	if len(blocks) != 2 {
		t.Fatalf("blocks: got %d, want 2", len(blocks))
	}
	if blocks[0].Number != 1 || blocks[0].Page != 1 {
		t.Errorf("block 0: number=%d page=%d", blocks[0].Number, blocks[0].Page)
	}
	if blocks[1].Number != 2 || blocks[1].Page != 2 {
		t.Errorf("block 1: number=%d page=%d", blocks[1].Number, blocks[1].Page)
	}
	if strings.Contains(blocks[1].Text, "fora do intervalo") {
		t.Error("block 2 should end at the out-of-range header")
	}
}

func TestSplitBlocks_noPageMarker(t *testing.T) {
	blocks := New(Config{}).SplitBlocks("\nQuestão 7: texto")
	if len(blocks) != 1 {
		t.Fatalf("blocks: got %d, want 1", len(blocks))
	}
	if blocks[0].Number != 7 || blocks[0].Page != 1 {
		t.Errorf("got number=%d page=%d", blocks[0].Number, blocks[0].Page)
	}
}

func TestSplitBlocks_maxQuestionNumber(t *testing.T) {
	blocks := New(Config{MaxQuestionNumber: 5}).SplitBlocks("\nQUESTÃO 5\na\nQUESTÃO 6\nb\nQUESTÃO 0\nc")
	if len(blocks) != 1 || blocks[0].Number != 5 {
		t.Fatalf("got %+v", blocks)
	}
}

func TestParseBlock(t *testing.T) {
	p := New(Config{})
	tests := []struct {
		name     string
		block    string
		wantStem string
		want     models.Options
	}{
		{
			name:     "options on own lines",
			block:    "\nQUESTÃO 1\nQual a conduta?\nA Solicitar exames.\nB Iniciar antibiótico\nC Observar\nD Internar\nE Alta\n\n--- PAGE 2 ---",
			wantStem: "Qual a conduta?",
			want:     models.Options{A: "Solicitar exames", B: "Iniciar antibiótico", C: "Observar", D: "Internar", E: "Alta"},
		},
		{
			name:     "no options",
			block:    "\nQUESTÃO 5 - Texto   sem\nalternativas",
			wantStem: "Texto sem alternativas",
		},
		{
			name:     "carriage returns",
			block:    "QUESTÃO 3:\r\nEnunciado\r\nA um\r\nB dois.",
			wantStem: "Enunciado",
			want:     models.Options{A: "um", B: "dois"},
		},
		{
			name:     "later duplicate wins",
			block:    "\nQUESTÃO 1\nStem\nA one\nA two",
			wantStem: "Stem",
			want:     models.Options{A: "two"},
		},
		{
			name:     "noise only option is dropped",
			block:    "\nQUESTÃO 1\nStem\nA ÁREA LIVRE\nB real",
			wantStem: "Stem",
			want:     models.Options{B: "real"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, options := p.ParseBlock(tt.block)
			if stem != tt.wantStem {
				t.Errorf("stem = %q, want %q", stem, tt.wantStem)
			}
			if options != tt.want {
				t.Errorf("options = %+v, want %+v", options, tt.want)
			}
		})
	}
}

func TestParseBlock_stemCap(t *testing.T) {
	stem, _ := New(Config{MaxStemChars: 5}).ParseBlock("\nQUESTÃO 1\nÁbcdefgh")
	if stem != "Ábcde" {
		t.Errorf("stem = %q, want %q", stem, "Ábcde")
	}
}

func TestCleanOption(t *testing.T) {
	got := CleanOption("Texto   da opção ÁREA LIVRE --- PAGE 12 --- Revalida 2024/1 SEGUNDA EDIÇÃO fim área livre")
	if got != "Texto da opção fim" {
		t.Errorf("CleanOption = %q", got)
	}
}

func TestParseAnswerKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		text string
		want map[int]string
	}{
		{"dash separated", Config{}, "GABARITO\n1 - A\n2 - C\n", map[int]string{1: "A", 2: "C"}},
		{"compact", Config{}, "Gabarito: 3A 4.B 5 E", map[int]string{3: "A", 4: "B", 5: "E"}},
		{"last heading wins", Config{}, "respostas preliminares 1 A\nGABARITO DEFINITIVO 1 B 2 C", map[int]string{1: "B", 2: "C"}},
		{"resposta oficial", Config{}, "Resposta Oficial 9 D", map[int]string{9: "D"}},
		{"later pair wins", Config{}, "gabarito 1 A 1 B", map[int]string{1: "B"}},
		{"out of range ignored", Config{}, "gabarito 0 A 201 B 7 C", map[int]string{7: "C"}},
		{"accented word is not a letter", Config{}, "gabarito Ação 12 Alergia 4 - E", map[int]string{4: "E"}},
		{"tail without heading", Config{AnswerKeyTailChars: 10}, "1 A " + strings.Repeat("x", 50) + " 2 B", map[int]string{2: "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.cfg).ParseAnswerKey(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAnswerKey = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p := New(Config{})
	images := map[int][]string{1: {"page_1_img_1.png"}, 3: {"page_3_img_1.jpg"}}
	questions := p.Parse(examPages, images, "")
	if len(questions) != 2 {
		t.Fatalf("questions: got %d, want 2", len(questions))
	}

	q1 := questions[0]
	if q1.Number != 1 || q1.Stem != "Paciente de 30 anos com febre. Qual a conduta?" {
		t.Errorf("q1: %+v", q1)
	}
	if q1.Options.A != "Solicitar exames" || q1.Options.E != "Alta" {
		t.Errorf("q1 options: %+v", q1.Options)
	}
	if q1.CorrectLetter != "A" {
		t.Errorf("q1 correct letter = %q, want A", q1.CorrectLetter)
	}
	if !q1.HasImage || !reflect.DeepEqual(q1.Images, []string{"page_1_img_1.png"}) {
		t.Errorf("q1 images: %v", q1.Images)
	}

	q2 := questions[1]
	if q2.Options.E != "Febre amarela" {
		t.Errorf("q2 option E = %q", q2.Options.E)
	}
	if q2.CorrectLetter != "C" {
		t.Errorf("q2 correct letter = %q, want C", q2.CorrectLetter)
	}
	if q2.HasImage || q2.Images == nil || len(q2.Images) != 0 {
		t.Errorf("q2 images should be empty and non-nil: %v", q2.Images)
	}
}

func TestParse_separateAnswerKey(t *testing.T) {
	questions := New(Config{}).Parse(examPages, nil, "Gabarito\n1 B")
	if questions[0].CorrectLetter != "B" {
		t.Errorf("q1 correct letter = %q, want B", questions[0].CorrectLetter)
	}
	if questions[1].CorrectLetter != "" {
		t.Errorf("q2 correct letter = %q, want empty", questions[1].CorrectLetter)
	}
}

func TestParse_sortedStable(t *testing.T) {
	pages := []string{"QUESTÃO 3\nterceira\nQUESTÃO 1\nprimeira\nQUESTÃO 3\nrepetida"}
	questions := New(Config{}).Parse(pages, nil, "")
	var got []string
	for _, q := range questions {
		got = append(got, q.Stem)
	}
	want := []string{"primeira", "terceira", "repetida"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
