// Package attachment derives content-addressed object keys for message
// attachments. The key is a pure function of the attachment bytes plus the
// file extension, so identical content shares one storage object no matter
// what the file was called.
package attachment

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const keyPrefix = "att/"

// Key returns the storage key for an attachment: prefix, hex sha256 of the
// content, and the lowercased extension taken from filename.
func Key(content []byte, filename string) string {
	sum := sha256.Sum256(content)
	return keyPrefix + hex.EncodeToString(sum[:]) + Ext(filename)
}

// Ext returns the normalized file extension including the dot, or "" when
// the filename has none.
func Ext(filename string) string {
	ext := filepath.Ext(strings.TrimSpace(filename))
	if ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}
