package seaweed

import (
	"path/filepath"
	"regexp"
	"strings"
)

var contentDispositionFilename = regexp.MustCompile(`filename="?([^";]+)"?`)

var contentTypeSuffixes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/zip": ".zip",
	"text/plain":      ".txt",
}

// magicSignatures is checked in order; the first matching prefix wins.
var magicSignatures = []struct {
	prefix []byte
	suffix string
}{
	{[]byte("%PDF"), ".pdf"},
	{[]byte("\x89PNG"), ".png"},
	{[]byte("\xff\xd8"), ".jpg"},
	{[]byte("PK\x03\x04"), ".zip"},
	{[]byte("GIF87a"), ".gif"},
	{[]byte("GIF89a"), ".gif"},
}

// DetectSuffix resolves a file suffix for downloaded content. Header-declared
// metadata is trusted first because it reflects server-side knowledge the
// client cannot infer from a truncated sample:
//
//	Content-Disposition filename -> Content-Type mapping -> magic bytes ->
//	ASCII text heuristic -> ".bin"
func DetectSuffix(content []byte, contentType, contentDisposition string) string {
	if m := contentDispositionFilename.FindStringSubmatch(contentDisposition); m != nil {
		if ext := filepath.Ext(m[1]); ext != "" {
			return strings.ToLower(ext)
		}
	}

	// Strip parameters like "; charset=utf-8".
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if suffix, ok := contentTypeSuffixes[strings.TrimSpace(strings.ToLower(ct))]; ok {
		return suffix
	}

	for _, sig := range magicSignatures {
		if len(content) >= len(sig.prefix) && string(content[:len(sig.prefix)]) == string(sig.prefix) {
			return sig.suffix
		}
	}

	if looksLikeText(content) {
		return ".txt"
	}
	return ".bin"
}

// looksLikeText samples up to 512 bytes: all-ASCII content containing a
// newline is treated as plain text.
func looksLikeText(content []byte) bool {
	sample := content
	if len(sample) > 512 {
		sample = sample[:512]
	}
	if len(sample) == 0 {
		return false
	}
	hasNewline := false
	for _, b := range sample {
		if b >= 128 {
			return false
		}
		if b == '\n' {
			hasNewline = true
		}
	}
	return hasNewline
}
