// Package parser turns the plain text of an exam into multiple-choice questions.
//
// The text of every page is joined behind a "--- PAGE n ---" marker, split into
// blocks at each "QUESTÃO n" header, and each block is split into a stem and
// options A to E. Answers come from the last answer-key section of the exam or of
// a separate answer-key document; images are attached by page.
package parser

import (
	"sort"

	"github.com/hyperjump/revalida/internal/models"
)

// Defaults used when a Config field is zero.
const (
	DefaultMaxQuestionNumber  = 200
	DefaultMaxStemChars       = 8000
	DefaultAnswerKeyTailChars = 3000
)

// Config tunes parsing limits.
type Config struct {
	// MaxQuestionNumber is the highest accepted question number; lower bound is 1.
	MaxQuestionNumber int
	// MaxStemChars caps the stem length in characters.
	MaxStemChars int
	// AnswerKeyTailChars is how much of the end of the text is scanned when no
	// answer-key section heading is found.
	AnswerKeyTailChars int
}

// Parser parses exam text. It is safe for concurrent use.
type Parser struct {
	cfg Config
}

// New returns a Parser, filling zero Config fields with defaults.
func New(cfg Config) *Parser {
	if cfg.MaxQuestionNumber <= 0 {
		cfg.MaxQuestionNumber = DefaultMaxQuestionNumber
	}
	if cfg.MaxStemChars <= 0 {
		cfg.MaxStemChars = DefaultMaxStemChars
	}
	if cfg.AnswerKeyTailChars <= 0 {
		cfg.AnswerKeyTailChars = DefaultAnswerKeyTailChars
	}
	return &Parser{cfg: cfg}
}

func (p *Parser) validNumber(n int) bool {
	return n >= 1 && n <= p.cfg.MaxQuestionNumber
}

// Parse extracts the questions of an exam. pages holds the text of each page,
// pageImages the image filenames per 1-based page, and answerKeyText the text of a
// separate answer key ("" to look for the key in the exam itself).
// Questions are sorted by number; the sort is stable so repeated numbers keep
// document order.
func (p *Parser) Parse(pages []string, pageImages map[int][]string, answerKeyText string) []models.Question {
	text := JoinPages(pages)
	blocks := p.SplitBlocks(text)

	keySource := answerKeyText
	if keySource == "" {
		keySource = text
	}
	answers := p.ParseAnswerKey(keySource)

	questions := make([]models.Question, 0, len(blocks))
	for _, b := range blocks {
		stem, options := p.ParseBlock(b.Text)
		images := AssociateImages(b, pageImages)
		questions = append(questions, models.Question{
			Number:        b.Number,
			Stem:          stem,
			Options:       options,
			CorrectLetter: answers[b.Number],
			HasImage:      len(images) > 0,
			Images:        images,
		})
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Number < questions[j].Number
	})
	return questions
}

// AssociateImages returns a copy of the images of the block's page, never nil.
func AssociateImages(b Block, pageImages map[int][]string) []string {
	images := make([]string, len(pageImages[b.Page]))
	copy(images, pageImages[b.Page])
	return images
}
