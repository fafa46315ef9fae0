package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/pkg/utils"
)

// pageMarker is counted to find the page a block starts on.
const pageMarker = "--- PAGE "

var (
	questionHeader = regexp.MustCompile(`(?i)\n\s*QUEST[ÃAÀ]O\s*(\d{1,3})\s*[\s:\-]?`)
	leadingHeader  = regexp.MustCompile(`(?i)^\s*QUEST[ÃAÀ]O\s*\d{1,3}\s*[\s:\-]?\s*`)
	optionMarker   = regexp.MustCompile(`\n([A-E])\s+`)
	trailingPeriod = regexp.MustCompile(`\.\s*$`)
	optionNoise    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)---\s*PAGE\s+\d+\s*---`),
		regexp.MustCompile(`(?i)ÃREA\s+LIVRE`),
		regexp.MustCompile(`(?i)ÁREA\s+LIVRE`),
		regexp.MustCompile(`(?i)PRIMEIRA\s+EDI[ÇC][ÃA]O`),
		regexp.MustCompile(`(?i)SEGUNDA\s+EDI[ÇC][ÃA]O`),
		regexp.MustCompile(`(?i)Revalida\s*\d+/\d+`),
	}
)

// Block is the raw text of one question.
type Block struct {
	Number int
	// Page is the 1-based page the question header is on.
	Page int
	Text string
}

// JoinPages concatenates page texts, each preceded by "\n--- PAGE n ---\n".
// Unicode spaces such as NBSP are folded to ASCII spaces first.
func JoinPages(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		b.WriteString("\n")
		b.WriteString(pageMarker)
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ---\n")
		b.WriteString(foldSpaces(page))
	}
	return b.String()
}

// foldSpaces maps whitespace outside the ASCII set regexp's \s knows to a plain space.
func foldSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// SplitBlocks cuts text at every question header. A block runs from its header to
// the next header, valid or not, or to the end of the text. Headers numbered outside
// 1..MaxQuestionNumber produce no block.
func (p *Parser) SplitBlocks(text string) []Block {
	matches := questionHeader.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]Block, 0, len(matches))
	for i, m := range matches {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || !p.validNumber(n) {
			continue
		}
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		page := strings.Count(text[:start], pageMarker)
		if page < 1 {
			page = 1
		}
		blocks = append(blocks, Block{Number: n, Page: page, Text: text[start:end]})
	}
	return blocks
}

// ParseBlock splits a question block into its stem and options. Without any
// "\n<letter> " option marker the whole block is the stem.
func (p *Parser) ParseBlock(block string) (string, models.Options) {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = strings.ReplaceAll(block, "\r", "\n")
	block = leadingHeader.ReplaceAllString(block, "")

	var options models.Options
	var stem string
	first := optionMarker.FindStringIndex(block)
	if first == nil {
		stem = block
	} else {
		stem = block[:first[0]]
		section := block[first[0]:]
		markers := optionMarker.FindAllStringSubmatchIndex(section, -1)
		for i, m := range markers {
			end := len(section)
			if i+1 < len(markers) {
				end = markers[i+1][0]
			}
			text := strings.TrimSpace(section[m[1]:end])
			text = trailingPeriod.ReplaceAllString(text, "")
			text = CleanOption(text)
			if text != "" {
				options.Set(section[m[2]:m[3]], text)
			}
		}
	}
	stem = utils.TruncateRunes(utils.NormalizeSpace(stem), p.cfg.MaxStemChars)
	return stem, options
}

// CleanOption strips page markers, "ÁREA LIVRE" and running headers from option
// text and normalises whitespace.
func CleanOption(text string) string {
	for _, re := range optionNoise {
		text = re.ReplaceAllString(text, "")
	}
	return utils.NormalizeSpace(text)
}
