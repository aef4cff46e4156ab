package attachment

import (
	"strings"
	"testing"
)

func TestKeyDeterminism(t *testing.T) {
	content := []byte("attachment body bytes")

	tests := []struct {
		name      string
		aContent  []byte
		aFilename string
		bContent  []byte
		bFilename string
		sameKey   bool
	}{
		{
			name:      "same bytes different filename same extension",
			aContent:  content,
			aFilename: "report.pdf",
			bContent:  content,
			bFilename: "invoice.pdf",
			sameKey:   true,
		},
		{
			name:      "same bytes case-folded extension",
			aContent:  content,
			aFilename: "photo.JPG",
			bContent:  content,
			bFilename: "other.jpg",
			sameKey:   true,
		},
		{
			name:      "same bytes different extension",
			aContent:  content,
			aFilename: "data.csv",
			bContent:  content,
			bFilename: "data.txt",
			sameKey:   false,
		},
		{
			name:      "different bytes same filename",
			aContent:  []byte("one"),
			aFilename: "a.bin",
			bContent:  []byte("two"),
			bFilename: "a.bin",
			sameKey:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Key(tt.aContent, tt.aFilename)
			b := Key(tt.bContent, tt.bFilename)
			if (a == b) != tt.sameKey {
				t.Errorf("Key equality = %v; want %v (a=%s b=%s)", a == b, tt.sameKey, a, b)
			}
		})
	}
}

func TestKeyShape(t *testing.T) {
	key := Key([]byte("x"), "file.PNG")
	if !strings.HasPrefix(key, "att/") {
		t.Errorf("Key = %s; want att/ prefix", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("Key = %s; want lowercased .png suffix", key)
	}
	// att/ + 64 hex chars + .png
	if len(key) != len("att/")+64+len(".png") {
		t.Errorf("Key length = %d; want %d", len(key), len("att/")+64+len(".png"))
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"a.pdf", ".pdf"},
		{"archive.tar.GZ", ".gz"},
		{"noext", ""},
		{"trailingdot.", ""},
		{"", ""},
		{" spaced.TXT ", ".txt"},
	}
	for _, tt := range tests {
		if got := Ext(tt.filename); got != tt.expected {
			t.Errorf("Ext(%q) = %q; want %q", tt.filename, got, tt.expected)
		}
	}
}
