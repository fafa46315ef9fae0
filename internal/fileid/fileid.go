// Package fileid provides extraction identifiers, content digests and safe filenames.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the time portion of an extraction ID.
const TimestampLayout = "20060102_150405"

var extractionIDPattern = regexp.MustCompile(`^\d{8}_\d{6}(_[0-9a-f]{8})?$`)

// NewExtractionID returns an ID of the form YYYYMMDD_HHMMSS_<8 hex>.
// The suffix keeps two uploads within the same second apart.
func NewExtractionID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return t.Format(TimestampLayout) + "_" + suffix
}

// ValidExtractionID reports whether id is a well-formed extraction ID.
// IDs without the random suffix are accepted.
func ValidExtractionID(id string) bool {
	return extractionIDPattern.MatchString(id)
}

// ExtractionTime parses the timestamp embedded in id.
func ExtractionTime(id string) (time.Time, bool) {
	if !ValidExtractionID(id) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, id[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ContentDigest returns the hex sha256 of content.
func ContentDigest(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

var unsafeFilename = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"..", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename strips directories and unsafe characters from an uploaded filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(unsafeFilename.Replace(name))
	if name == "" || name == "." || name == "_" {
		return "upload"
	}
	return name
}
