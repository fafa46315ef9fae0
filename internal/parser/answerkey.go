package parser

import (
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/revalida/pkg/utils"
)

var (
	answerKeyHeading = regexp.MustCompile(`(?i)gabarito|respostas|resposta oficial`)
	// Word boundaries are checked by hand so accented letters count as word characters.
	answerPair = regexp.MustCompile(`(\d{1,3})\s*[-\s.]?\s*([A-E])`)
)

// ParseAnswerKey maps question numbers to answer letters. The scan starts at the last
// "gabarito", "respostas" or "resposta oficial" heading, or covers the last
// AnswerKeyTailChars characters when there is none. Later pairs win.
func (p *Parser) ParseAnswerKey(text string) map[int]string {
	section := answerKeySection(text, p.cfg.AnswerKeyTailChars)
	answers := make(map[int]string)
	for pos := 0; pos < len(section); {
		loc := answerPair.FindStringSubmatchIndex(section[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			loc[i] += pos
		}
		if !wordBoundaryBefore(section, loc[0]) || !wordBoundaryAfter(section, loc[1]) {
			_, size := utf8.DecodeRuneInString(section[loc[0]:])
			pos = loc[0] + size
			continue
		}
		n, err := strconv.Atoi(section[loc[2]:loc[3]])
		if err == nil && p.validNumber(n) {
			answers[n] = section[loc[4]:loc[5]]
		}
		pos = loc[1]
	}
	return answers
}

func answerKeySection(text string, tailChars int) string {
	matches := answerKeyHeading.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return utils.LastRunes(text, tailChars)
	}
	return text[matches[len(matches)-1][0]:]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}
