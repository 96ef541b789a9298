package docs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"jobtailor/internal/errors"
)

// fakeGoogle records calls against fake Docs and Drive endpoints
type fakeGoogle struct {
	mu    sync.Mutex
	calls []string

	document     map[string]any
	failCreate   bool
	insertedText string
	addedParents string
}

func (f *fakeGoogle) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGoogle) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/documents/"):
		f.record("docs.get")
		if f.document == nil {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(f.document)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/documents":
		f.record("docs.create")
		if f.failCreate {
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{"documentId": "new-doc", "title": body.Title})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		f.record("docs.batchUpdate")
		var body struct {
			Requests []struct {
				InsertText struct {
					Location struct {
						Index int64 `json:"index"`
					} `json:"location"`
					Text string `json:"text"`
				} `json:"insertText"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Requests) == 1 && body.Requests[0].InsertText.Location.Index == 1 {
			f.insertedText = body.Requests[0].InsertText.Text
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"documentId": "new-doc"})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGoogle) driveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPatch && r.URL.Path == "/files/new-doc":
		f.record("drive.update")
		f.addedParents = r.URL.Query().Get("addParents")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "new-doc"})

	case r.Method == http.MethodGet && r.URL.Path == "/files/new-doc":
		f.record("drive.get")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"webViewLink": "https://docs.google.com/document/d/new-doc/edit",
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeGoogle) *Client {
	t.Helper()

	docsServer := httptest.NewServer(http.HandlerFunc(fake.docsHandler))
	t.Cleanup(docsServer.Close)
	driveServer := httptest.NewServer(http.HandlerFunc(fake.driveHandler))
	t.Cleanup(driveServer.Close)

	ctx := context.Background()
	logger := errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

	client, err := NewClient(ctx, logger,
		option.WithEndpoint(docsServer.URL+"/"),
		option.WithHTTPClient(docsServer.Client()))
	require.NoError(t, err)

	// Drive needs its own endpoint
	driveOnly, err := NewClient(ctx, logger,
		option.WithEndpoint(driveServer.URL+"/"),
		option.WithHTTPClient(driveServer.Client()))
	require.NoError(t, err)
	client.drive = driveOnly.drive

	return client
}

func TestGetDocumentContent(t *testing.T) {
	fake := &fakeGoogle{
		document: map[string]any{
			"documentId": "resume",
			"title":      "My Resume",
			"body": map[string]any{
				"content": []any{
					map[string]any{"sectionBreak": map[string]any{}},
					map[string]any{"paragraph": map[string]any{"elements": []any{
						map[string]any{"textRun": map[string]any{"content": "Jane Doe\n"}},
					}}},
					map[string]any{"table": map[string]any{"tableRows": []any{
						map[string]any{"tableCells": []any{
							map[string]any{"content": []any{
								map[string]any{"paragraph": map[string]any{"elements": []any{
									map[string]any{"textRun": map[string]any{"content": "Go\n"}},
								}}},
							}},
							map[string]any{"content": []any{
								map[string]any{"paragraph": map[string]any{"elements": []any{
									map[string]any{"textRun": map[string]any{"content": "Kubernetes\n"}},
								}}},
							}},
						}},
					}}},
					map[string]any{"paragraph": map[string]any{"elements": []any{
						map[string]any{"textRun": map[string]any{"content": "Experience "}},
						map[string]any{"inlineObjectElement": map[string]any{}},
						map[string]any{"textRun": map[string]any{"content": "section\n"}},
					}}},
				},
			},
		},
	}
	client := newTestClient(t, fake)

	text, err := client.GetDocumentContent(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo\nKubernetes\nExperience section\n", text)
}

func TestGetDocumentContentErrors(t *testing.T) {
	client := newTestClient(t, &fakeGoogle{})

	t.Run("missing document", func(t *testing.T) {
		_, err := client.GetDocumentContent(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDocument))

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.ErrCodeDocumentFetchFailed, appErr.Code)
		assert.Equal(t, "missing", appErr.Context["document_id"])
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := client.GetDocumentContent(context.Background(), "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})
}

func TestCreateDocument(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		folderID  string
		wantCalls []string
	}{
		{
			name:      "with folder",
			content:   "Tailored resume",
			folderID:  "folder-1",
			wantCalls: []string{"docs.create", "docs.batchUpdate", "drive.update", "drive.get"},
		},
		{
			name:      "without folder",
			content:   "Tailored resume",
			wantCalls: []string{"docs.create", "docs.batchUpdate", "drive.get"},
		},
		{
			name:      "empty content skips insert",
			wantCalls: []string{"docs.create", "drive.get"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGoogle{}
			client := newTestClient(t, fake)

			link, err := client.CreateDocument(context.Background(), "Resume - Acme - Engineer", tt.content, tt.folderID)
			require.NoError(t, err)

			assert.Equal(t, "https://docs.google.com/document/d/new-doc/edit", link)
			assert.Equal(t, tt.wantCalls, fake.calls)
			assert.Equal(t, tt.content, fake.insertedText)
			assert.Equal(t, tt.folderID, fake.addedParents)
		})
	}
}

func TestCreateDocumentFailure(t *testing.T) {
	fake := &fakeGoogle{failCreate: true}
	client := newTestClient(t, fake)

	_, err := client.CreateDocument(context.Background(), "Cover Letter - Acme - Engineer", "text", "")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeDocumentCreateFailed, appErr.Code)
	assert.Equal(t, []string{"docs.create"}, fake.calls)
}

func TestDocumentTextNil(t *testing.T) {
	assert.Empty(t, DocumentText(nil))
}
