package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanDocumentJSON_MergedDocumentsWins(t *testing.T) {
	doc := map[string]any{
		"merged_documents": []any{
			map[string]any{"content": "merged page one"},
			map[string]any{"content": "merged page two"},
		},
		"elements": []any{
			map[string]any{"text": "element text that must be ignored"},
		},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceMergedDocuments, source)
	assert.Contains(t, text, "merged page one")
	assert.Contains(t, text, "merged page two")
	assert.NotContains(t, text, "element text")
}

func TestCleanDocumentJSON_MergedSingleObject(t *testing.T) {
	doc := map[string]any{
		"merged_documents": map[string]any{"content": "solo content"},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceMergedDocuments, source)
	assert.Equal(t, "solo content", text)
}

func TestCleanDocumentJSON_Elements(t *testing.T) {
	doc := map[string]any{
		"elements": []any{
			map[string]any{"text": "first"},
			map[string]any{"content": "second"},
			map[string]any{"text": "   "},
		},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceElements, source)
	assert.Equal(t, "first\n\nsecond", text)
}

func TestCleanDocumentJSON_RawTextPages(t *testing.T) {
	doc := map[string]any{
		"raw_text": []any{
			map[string]any{"text": "page 1"},
			map[string]any{"text": "page 2"},
		},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceRawText, source)
	assert.Equal(t, "page 1\n\npage 2", text)
}

func TestCleanDocumentJSON_ImagesAloneWhenNoText(t *testing.T) {
	doc := map[string]any{
		"image_descriptions": []any{
			map[string]any{"content": "table extracted from image"},
		},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceImages, source)
	assert.Equal(t, "table extracted from image", text)
}

func TestCleanDocumentJSON_ImagesAppendedToElements(t *testing.T) {
	doc := map[string]any{
		"elements": []any{
			map[string]any{"text": "body text"},
		},
		"image_descriptions": []any{
			map[string]any{"content": "image table"},
		},
	}
	text, source := CleanDocumentJSON(doc)
	assert.Equal(t, SourceElements, source)
	assert.Equal(t, "body text\n\nimage table", text)
}

func TestCleanDocumentJSON_Empty(t *testing.T) {
	text, source := CleanDocumentJSON(map[string]any{"unrelated": 1})
	assert.Equal(t, "", text)
	assert.Equal(t, SourceNone, source)
}

func TestCleanMarkdown_CollapseNewlines(t *testing.T) {
	got := CleanMarkdown("a\n\n\n\n\nb")
	assert.Equal(t, "a\n\nb", got)
}

func TestCleanMarkdown_Idempotent(t *testing.T) {
	input := "a\n\n\n\nb<br>c  |  d\n\n\n"
	once := CleanMarkdown(input)
	twice := CleanMarkdown(once)
	assert.Equal(t, once, twice)
}

func TestCleanMarkdown_BrTags(t *testing.T) {
	assert.Equal(t, "a b", CleanMarkdown("a<br>b"))
	assert.Equal(t, "a b", CleanMarkdown("a<br/>b"))
	assert.Equal(t, "a b", CleanMarkdown("a<br />b"))
}

func TestCleanMarkdown_TableCells(t *testing.T) {
	got := CleanMarkdown("| 1  |   VIP   | 80.000  |")
	assert.Equal(t, "| 1 | VIP | 80.000 |", got)
}

func TestCleanMarkdown_PreservesRowBreaks(t *testing.T) {
	got := CleanMarkdown("| a |\n| b |")
	assert.Equal(t, "| a |\n| b |", got)
}

func TestNormalize_PlainText(t *testing.T) {
	text, source := Normalize([]byte("hello\n\n\n\nworld"))
	assert.Equal(t, SourcePlainText, source)
	assert.Equal(t, "hello\n\nworld", text)
}

func TestNormalize_JSONDocument(t *testing.T) {
	raw := []byte(`{"raw_text":[{"text":"trang 1"}]}`)
	text, source := Normalize(raw)
	assert.Equal(t, SourceRawText, source)
	assert.Equal(t, "trang 1", text)
}

func TestNormalize_EmptyPayload(t *testing.T) {
	text, source := Normalize([]byte("   \n "))
	assert.Equal(t, "", text)
	assert.Equal(t, SourceNone, source)
}

func TestNormalize_JSONWithoutContent(t *testing.T) {
	text, source := Normalize([]byte(`{"statistics":{"num_pages":3}}`))
	assert.Equal(t, "", text)
	assert.Equal(t, SourceNone, source)
}
