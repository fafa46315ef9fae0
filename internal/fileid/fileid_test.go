package fileid

import (
	"strings"
	"testing"
	"time"
)

func TestNewExtractionID(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	id := NewExtractionID(ts)
	if !strings.HasPrefix(id, "20240309_140507_") {
		t.Errorf("unexpected prefix: %q", id)
	}
	if len(id) != len("20240309_140507_")+8 {
		t.Errorf("unexpected length: %q", id)
	}
	if !ValidExtractionID(id) {
		t.Errorf("generated ID should be valid: %q", id)
	}
}

func TestNewExtractionID_sameSecondDiffers(t *testing.T) {
	ts := time.Now()
	if NewExtractionID(ts) == NewExtractionID(ts) {
		t.Error("IDs generated in the same second should differ")
	}
}

func TestValidExtractionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"20240309_140507_0a1b2c3d", true},
		{"20240309_140507", true},
		{"20240309_140507_0A1B2C3D", false},
		{"20240309_140507_0a1b", false},
		{"../20240309_140507", false},
		{"20240309-140507", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ValidExtractionID(tt.id); got != tt.want {
				t.Errorf("ValidExtractionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestExtractionTime(t *testing.T) {
	got, ok := ExtractionTime("20240309_140507_0a1b2c3d")
	if !ok {
		t.Fatal("expected timestamp to parse")
	}
	want := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ExtractionTime = %v, want %v", got, want)
	}
	if _, ok := ExtractionTime("nope"); ok {
		t.Error("invalid ID should not parse")
	}
}

func TestContentDigest(t *testing.T) {
	d1 := ContentDigest([]byte("abc"))
	if d1 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected digest: %s", d1)
	}
	if ContentDigest([]byte("abd")) == d1 {
		t.Error("different content should give different digests")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"prova.pdf", "prova.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\exams\prova 2023.pdf`, "prova 2023.pdf"},
		{"a:b*c?.pdf", "a_b_c_.pdf"},
		{"", "upload"},
		{"..", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
