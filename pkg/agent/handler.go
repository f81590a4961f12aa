package agent

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	apperrors "telimport/pkg/common/errors"
	"telimport/pkg/cleaner"
	"telimport/pkg/extract"
	"telimport/pkg/seaweed"
	"telimport/pkg/store"
)

// Downloader fetches blob content with its response headers.
type Downloader interface {
	Download(ctx context.Context, fid string) ([]byte, http.Header, error)
}

// Extractor turns canonical text into package records.
type Extractor interface {
	Extract(ctx context.Context, text string) []extract.Package
}

// Recorder persists extracted records.
type Recorder interface {
	Upsert(ctx context.Context, packages []extract.Package) (store.UpsertResult, error)
}

// Handler runs the import pipeline for one request. It is shared by the
// queue listener and the HTTP import endpoint.
type Handler struct {
	blobs     Downloader
	extractor Extractor
	records   Recorder
}

func NewHandler(blobs Downloader, extractor Extractor, records Recorder) *Handler {
	return &Handler{blobs: blobs, extractor: extractor, records: records}
}

// Handle dispatches a request and always produces a correlated response;
// failures become error results, never panics or dropped messages.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	log.Printf("agent: handling request %s method=%s", req.ID, req.Method)
	if req.Method != "import_file" {
		return errorResponse(req.ID, fmt.Sprintf("Unknown method: %s", req.Method))
	}

	blobID, _ := req.Params["blob_id"].(string)
	if blobID == "" {
		return errorResponse(req.ID, "Missing blob_id")
	}
	return h.importFile(ctx, req.ID, blobID)
}

func (h *Handler) importFile(ctx context.Context, id, blobID string) Response {
	content, headers, err := h.blobs.Download(ctx, blobID)
	if err != nil {
		log.Printf("agent: download of %s failed: %v", blobID, err)
		return errorResponse(id, apperrors.Message(err))
	}

	suffix := seaweed.DetectSuffix(content,
		headers.Get("Content-Type"), headers.Get("Content-Disposition"))

	// Stage the blob on disk the way downstream tooling expects, removed on
	// every exit path.
	tmp, err := os.CreateTemp("", "import-*"+suffix)
	if err != nil {
		return errorResponse(id, "failed to stage downloaded content")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errorResponse(id, "failed to stage downloaded content")
	}
	tmp.Close()
	log.Printf("agent: staged %s as %s (%d bytes)", blobID, tmp.Name(), len(content))

	var warnings []string

	switch suffix {
	case ".png", ".jpg", ".gif", ".zip":
		return errorResponse(id, fmt.Sprintf("Unsupported content type: %s", suffix))
	case ".bin":
		// ASCII sniffing misses multi-byte text such as Vietnamese; any valid
		// UTF-8 payload is still treated as text.
		if !utf8.Valid(content) {
			return errorResponse(id, "Unsupported content type: binary")
		}
	case ".pdf":
		warnings = append(warnings, "PDF rendering not available; content read as text")
	}

	text, source := cleaner.Normalize(content)
	if strings.TrimSpace(text) == "" {
		warnings = append(warnings, "document produced no text")
	}
	log.Printf("agent: normalized %s via %s (%d chars)", blobID, source, len(text))

	packages := h.extractor.Extract(ctx, text)
	for _, pkg := range packages {
		if pkg.PartnerName == "" {
			warnings = append(warnings, fmt.Sprintf("package %q missing partner_name", pkg.Name))
		}
	}

	result, err := h.records.Upsert(ctx, packages)
	if err != nil {
		log.Printf("agent: upsert for %s failed: %v", blobID, err)
		return errorResponse(id, apperrors.Message(err))
	}
	if result.Errors > 0 {
		warnings = append(warnings, fmt.Sprintf("%d packages failed to store", result.Errors))
	}

	if warnings == nil {
		warnings = []string{}
	}
	return successResponse(id, map[string]any{
		"packages":        packages,
		"extracted_count": len(packages),
		"inserted":        result.Inserted,
		"updated":         result.Updated,
		"warnings":        warnings,
	})
}
