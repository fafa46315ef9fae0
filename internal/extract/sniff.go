package extract

import "github.com/gabriel-vasile/mimetype"

// IsPDF reports whether content looks like a PDF document.
func IsPDF(content []byte) bool {
	return mimetype.Detect(content).Is("application/pdf")
}
