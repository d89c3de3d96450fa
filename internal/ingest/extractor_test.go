package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhisek/viva/internal/llm"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadDocument(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantMIME string
		wantErr  bool
	}{
		{"markdown", "notes.md", "## Questions\n1. What is ATP?", "text/markdown", false},
		{"plain text", "notes.txt", "What is ATP?", "text/plain", false},
		{"unsupported extension", "notes.docx", "content", "", true},
		{"empty file", "empty.txt", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.filename, tt.content)
			doc, err := LoadDocument(path)
			if tt.wantErr {
				var ie *IngestionError
				if !errors.As(err, &ie) {
					t.Fatalf("err = %v, want IngestionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadDocument: %v", err)
			}
			if doc.MIME != tt.wantMIME {
				t.Errorf("MIME = %q, want %q", doc.MIME, tt.wantMIME)
			}
		})
	}
}

func TestLoadDocumentMissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.txt"))
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IngestionError", err)
	}
}

func extractionResponse(t *testing.T, questions ...map[string]string) json.RawMessage {
	t.Helper()
	payload := map[string]any{"questions": questions}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal canned response: %v", err)
	}
	return raw
}

func TestExtractOrdersAndNumbersQuestions(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: extractionResponse(t,
			map[string]string{"question": "What is ATP?", "spoken_question": "Can you tell me what ATP is?", "answer": "Adenosine triphosphate."},
			map[string]string{"question": "Define osmosis.", "spoken_question": "", "answer": "Diffusion of water across a membrane."},
		),
	})
	ex := New(provider, DefaultConfig())

	doc := Document{Path: "notes.md", MIME: "text/markdown", Data: []byte("...")}
	qs, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	if qs[0].ID != "q1" || qs[1].ID != "q2" {
		t.Errorf("ids = %s, %s, want q1, q2", qs[0].ID, qs[1].ID)
	}
	if qs[0].Narration() != "Can you tell me what ATP is?" {
		t.Errorf("narration = %q, want the spoken rephrasing", qs[0].Narration())
	}
	if qs[1].Narration() != "Define osmosis." {
		t.Errorf("narration = %q, want the prompt when no rephrasing", qs[1].Narration())
	}
}

func TestExtractTextDocumentTravelsInPrompt(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: extractionResponse(t,
			map[string]string{"question": "Q", "spoken_question": "", "answer": "A"},
		),
	})
	ex := New(provider, DefaultConfig())

	doc := Document{Path: "notes.txt", MIME: "text/plain", Data: []byte("1. What is ATP?")}
	if _, err := ex.Extract(context.Background(), doc); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	call := provider.Calls[0]
	if call.HasMedia() {
		t.Error("text document sent as media attachment")
	}
	if call.Messages[0].Content == "" {
		t.Error("document text missing from prompt")
	}
	if call.Schema == nil || call.Schema.Name != "question-set" {
		t.Errorf("schema = %+v, want question-set", call.Schema)
	}
}

func TestExtractBinaryDocumentTravelsAsMedia(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: extractionResponse(t,
			map[string]string{"question": "Q", "spoken_question": "", "answer": "A"},
		),
	})
	ex := New(provider, DefaultConfig())

	doc := Document{Path: "notes.pdf", MIME: "application/pdf", Data: []byte{0x25, 0x50, 0x44, 0x46}}
	if _, err := ex.Extract(context.Background(), doc); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	call := provider.Calls[0]
	if !call.HasMedia() {
		t.Fatal("pdf not sent as media attachment")
	}
	if call.Messages[0].Media[0].MIME != "application/pdf" {
		t.Errorf("media MIME = %q, want application/pdf", call.Messages[0].Media[0].MIME)
	}
}

func TestExtractNoQuestionsIsIngestionError(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: extractionResponse(t),
	})
	ex := New(provider, DefaultConfig())

	_, err := ex.Extract(context.Background(), Document{Path: "blank.txt", MIME: "text/plain", Data: []byte("nothing here")})
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IngestionError", err)
	}
}

func TestExtractSkipsBlankEntries(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: extractionResponse(t,
			map[string]string{"question": "  ", "spoken_question": "", "answer": "A"},
			map[string]string{"question": "Real question?", "spoken_question": "", "answer": "Real answer."},
		),
	})
	ex := New(provider, DefaultConfig())

	qs, err := ex.Extract(context.Background(), Document{Path: "n.txt", MIME: "text/plain", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "q1" {
		t.Errorf("questions = %+v, want the single real question numbered q1", qs)
	}
}

func TestExtractProviderFailureWrapped(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	ex := New(provider, DefaultConfig())

	_, err := ex.Extract(context.Background(), Document{Path: "n.txt", MIME: "text/plain", Data: []byte("x")})
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IngestionError", err)
	}
	var unavailable *llm.ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("cause %v not preserved", err)
	}
}
