package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxDocumentBytes caps the size of a document sent inline to the
// extraction model.
const MaxDocumentBytes = 20 << 20

// Document is a source file loaded for question extraction.
type Document struct {
	Path string
	MIME string
	Data []byte
}

// IsText reports whether the document can be sent as plain prompt text
// rather than an inline attachment.
func (d Document) IsText() bool {
	return strings.HasPrefix(d.MIME, "text/")
}

// mimeByExtension maps supported file extensions to MIME types.
var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// LoadDocument reads and classifies a source file.
func LoadDocument(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeByExtension[ext]
	if !ok {
		return Document{}, &IngestionError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported file type %q (supported: pdf, txt, md, png, jpg, webp)", ext),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &IngestionError{Path: path, Reason: "cannot read file", Err: err}
	}
	if len(data) == 0 {
		return Document{}, &IngestionError{Path: path, Reason: "file is empty"}
	}
	if len(data) > MaxDocumentBytes {
		return Document{}, &IngestionError{
			Path:   path,
			Reason: fmt.Sprintf("file too large (%d bytes, limit %d)", len(data), MaxDocumentBytes),
		}
	}

	return Document{Path: path, MIME: mime, Data: data}, nil
}

// IngestionError indicates a document could not be turned into a
// question set. It is terminal for the submission; the session returns
// to idle and the student may try another document.
type IngestionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ingest %s: %s", e.Path, e.Reason)
	}
	return "ingest: " + e.Reason
}

func (e *IngestionError) Unwrap() error { return e.Err }
