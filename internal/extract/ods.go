package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const odsContentPath = "content.xml"

var (
	odsRow  = regexp.MustCompile(`(?s)<table:table-row(?:\s[^>]*[^/>])?>(.*?)</table:table-row>`)
	odsCell = regexp.MustCompile(`(?s)<table:table-cell(?:\s[^>]*[^/>])?>(.*?)</table:table-cell>`)
	odsText = regexp.MustCompile(`<text:(?:p|span)(?:\s[^>]*)?>([^<]+)`)
)

// extractODS returns the cells of an OpenDocument spreadsheet, rows joined by newlines
// and cells by tabs, matching the .xlsx layout.
func extractODS(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", fmt.Errorf("extract ODS: %w", err)
	}
	contentXML, err := readZipEntry(zr, odsContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODS: %w", err)
	}

	var b strings.Builder
	for _, row := range odsRow.FindAllStringSubmatch(string(contentXML), -1) {
		var cells []string
		for _, cell := range odsCell.FindAllStringSubmatch(row[1], -1) {
			var parts []string
			for _, t := range odsText.FindAllStringSubmatch(cell[1], -1) {
				if s := strings.TrimSpace(t[1]); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}
