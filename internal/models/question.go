// Package models defines core data structures for extractions, questions, and search results.
package models

// Letters are the option letters of a multiple-choice question, in order.
var Letters = []string{"A", "B", "C", "D", "E"}

// Options holds the text of each option letter. Missing options are empty strings.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
	E string `json:"E"`
}

// Get returns the option text for letter, or "" for an unknown letter.
func (o *Options) Get(letter string) string {
	switch letter {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	case "E":
		return o.E
	}
	return ""
}

// Set stores text for letter. Unknown letters are ignored.
func (o *Options) Set(letter, text string) {
	switch letter {
	case "A":
		o.A = text
	case "B":
		o.B = text
	case "C":
		o.C = text
	case "D":
		o.D = text
	case "E":
		o.E = text
	}
}

// Empty reports whether no option has text.
func (o *Options) Empty() bool {
	return o.A == "" && o.B == "" && o.C == "" && o.D == "" && o.E == ""
}

// Question is one parsed multiple-choice question.
type Question struct {
	Number        int      `json:"number"`
	Stem          string   `json:"stem"`
	Options       Options  `json:"options"`
	CorrectLetter string   `json:"correct_letter"`
	HasImage      bool     `json:"has_image"`
	Images        []string `json:"images"`
}

// QuestionsFile is the on-disk shape of output/questions_<id>.json.
type QuestionsFile struct {
	Questions []Question `json:"questions"`
}
