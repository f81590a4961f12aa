// Package cleaner converts heterogeneous raw document payloads into one
// canonical text representation suitable for LLM extraction.
package cleaner

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
)

// Provenance tags identify which strategy produced the canonical text.
const (
	SourceMergedDocuments = "merged_documents"
	SourceElements        = "elements"
	SourceRawText         = "raw_text"
	SourcePages           = "pages"
	SourceImages          = "image_descriptions"
	SourcePlainText       = "plain_text"
	SourceNone            = "none"
)

// Normalize converts a raw payload (structured document JSON or plain text)
// to canonical text. It never fails: an unrecognized or empty payload yields
// an empty string tagged SourceNone, which callers record as a warning.
func Normalize(raw []byte) (string, string) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", SourceNone
	}

	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			text, source := CleanDocumentJSON(doc)
			if text == "" {
				return "", SourceNone
			}
			return text, source
		}
	}

	return CleanMarkdown(trimmed), SourcePlainText
}

// CleanDocumentJSON extracts text from a parsed document object, applying
// content-recovery strategies in strict priority order. Merged documents are
// the highest-fidelity representation and are used exclusively when present;
// image descriptions are used alone only when no textual strategy matched,
// and are appended otherwise.
func CleanDocumentJSON(doc map[string]any) (string, string) {
	parts, source := textParts(doc)

	images := imageDescriptions(doc)
	switch {
	case len(parts) == 0 && len(images) > 0:
		log.Printf("cleaner: using %d image descriptions as content", len(images))
		return CleanMarkdown(strings.Join(images, "\n\n")), SourceImages
	case len(parts) > 0 && len(images) > 0 && source != SourceMergedDocuments:
		parts = append(parts, images...)
	}

	if len(parts) == 0 {
		log.Printf("cleaner: no content found in document payload")
		return "", SourceNone
	}
	return CleanMarkdown(strings.Join(parts, "\n\n")), source
}

// textParts runs strategies 1-4 and returns the first non-empty result.
func textParts(doc map[string]any) ([]string, string) {
	type strategy struct {
		source  string
		extract func(map[string]any) []string
	}
	// Ordered list, tried until one yields content.
	strategies := []strategy{
		{SourceMergedDocuments, mergedDocuments},
		{SourceElements, listField("elements", "text", "content")},
		{SourceRawText, listField("raw_text", "text")},
		{SourcePages, listField("pages", "text", "content")},
	}
	for _, s := range strategies {
		if parts := s.extract(doc); len(parts) > 0 {
			return parts, s.source
		}
	}
	return nil, SourceNone
}

// mergedDocuments handles a list of {content} objects, bare strings, or a
// single {content} object.
func mergedDocuments(doc map[string]any) []string {
	raw, ok := doc["merged_documents"]
	if !ok {
		return nil
	}
	var parts []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			switch d := item.(type) {
			case map[string]any:
				if content, ok := d["content"].(string); ok && strings.TrimSpace(content) != "" {
					parts = append(parts, content)
				}
			case string:
				if strings.TrimSpace(d) != "" {
					parts = append(parts, d)
				}
			}
		}
	case map[string]any:
		if content, ok := v["content"].(string); ok && strings.TrimSpace(content) != "" {
			parts = append(parts, content)
		}
	}
	return parts
}

// listField extracts non-empty text from an array of objects, checking the
// given keys in order on each entry.
func listField(field string, keys ...string) func(map[string]any) []string {
	return func(doc map[string]any) []string {
		items, ok := doc[field].([]any)
		if !ok {
			return nil
		}
		var parts []string
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range keys {
				if text, ok := entry[key].(string); ok && strings.TrimSpace(text) != "" {
					parts = append(parts, strings.TrimSpace(text))
					break
				}
			}
		}
		return parts
	}
}

func imageDescriptions(doc map[string]any) []string {
	items, ok := doc["image_descriptions"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			if content, ok := entry["content"].(string); ok && strings.TrimSpace(content) != "" {
				out = append(out, content)
			}
		}
	}
	return out
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	brTags         = regexp.MustCompile(`<br\s*/?>`)
	pipeLeading    = regexp.MustCompile(`\|[ \t]+`)
	pipeTrailing   = regexp.MustCompile(`[ \t]+\|`)
)

// CleanMarkdown normalizes markdown-ish text: collapses runs of 3+ newlines
// to one blank line, replaces <br> tags with a space, tightens whitespace
// around table-cell pipes, and trims. Pure and idempotent.
func CleanMarkdown(text string) string {
	if text == "" {
		return ""
	}
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = brTags.ReplaceAllString(text, " ")
	text = pipeLeading.ReplaceAllString(text, "| ")
	text = pipeTrailing.ReplaceAllString(text, " |")
	return strings.TrimSpace(text)
}
