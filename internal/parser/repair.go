package parser

import (
	"regexp"
	"strings"

	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/pkg/utils"
)

var (
	// Candidates for the start of option A, tried in order.
	optionAStarts = []*regexp.Regexp{
		regexp.MustCompile(`(?m)(?:^|\n)\s*A\s+[A-ZÁÀÂÃÉÈÊÍÏÓÔÕÖÚÇÑ]`),
		regexp.MustCompile(`\s+A\s+`),
		regexp.MustCompile(`(?m)(?:^|\n)A\s`),
	}
	inlineOption  = regexp.MustCompile(`\s+([A-E])\s+`)
	leadingPeriod = regexp.MustCompile(`^\.\s*`)
	optionTails   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*ÁREA\s+LIVRE.*$`),
		regexp.MustCompile(`(?i)\s*---\s*PAGE\s+\d+\s*---.*$`),
		regexp.MustCompile(`(?i)\s*PRIMEIRA\s+EDI[ÇC][ÃA]O.*$`),
		regexp.MustCompile(`(?i)\s*SEGUNDA\s+EDI[ÇC][ÃA]O.*$`),
	}
)

// NeedsRepair reports whether both options A and B are empty.
func NeedsRepair(q *models.Question) bool {
	return q.Options.A == "" && q.Options.B == ""
}

// SplitOptionsFromStem recovers options that were left inside a stem. It returns the
// stem without the options and the recovered options; ok is false when no option A
// start could be found.
func SplitOptionsFromStem(stem string) (string, models.Options, bool) {
	var options models.Options
	start := -1
	for _, re := range optionAStarts {
		if loc := re.FindStringIndex(stem); loc != nil {
			start = loc[0]
			break
		}
	}
	if start < 0 {
		return stem, options, false
	}

	clean := strings.TrimSpace(stem[:start])
	// The leading space lets the first "A" be matched as a separator.
	section := " " + strings.TrimSpace(stem[start:])

	markers := inlineOption.FindAllStringSubmatchIndex(section, -1)
	for i, m := range markers {
		end := len(section)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		raw := strings.TrimSpace(section[m[1]:end])
		if raw == "" {
			continue
		}
		options.Set(section[m[2]:m[3]], cleanRecoveredOption(raw))
	}
	return clean, options, true
}

func cleanRecoveredOption(text string) string {
	text = utils.NormalizeSpace(text)
	text = leadingPeriod.ReplaceAllString(text, "")
	for _, re := range optionTails {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// RepairEmptyOptions re-splits the stem of every question whose options A and B are
// both empty. A question is only rewritten when option A or B is recovered. It
// returns the numbers of the repaired questions.
func RepairEmptyOptions(questions []models.Question) []int {
	var repaired []int
	for i := range questions {
		q := &questions[i]
		if !NeedsRepair(q) {
			continue
		}
		stem, options, ok := SplitOptionsFromStem(q.Stem)
		if !ok || (options.A == "" && options.B == "") {
			continue
		}
		q.Stem = stem
		q.Options = options
		repaired = append(repaired, q.Number)
	}
	return repaired
}
