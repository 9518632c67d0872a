package ingest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/server/middleware"
)

func newTestRouter(svc *Service, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	NewHandler(svc, maxBytes).RegisterRoutes(r.Group("/resume"))
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	} else if err := w.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postExtract(t *testing.T, r http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/resume/extract/", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return payload.Error
}

func TestExtractHandlerScenarios(t *testing.T) {
	quietLogs(t)
	tests := []struct {
		name       string
		field      string
		filename   string
		ex         *fakeExtractor
		ai         *fakeAI
		validate   bool
		wantStatus int
		wantError  string
		wantBody   string
	}{
		{
			name:       "unsupported format",
			field:      "file",
			filename:   "resume.txt",
			ex:         &fakeExtractor{},
			ai:         &fakeAI{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Unsupported file format",
		},
		{
			name:       "missing file field",
			field:      "",
			ex:         &fakeExtractor{},
			ai:         &fakeAI{},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "file under another field name",
			field:      "document",
			filename:   "resume.pdf",
			ex:         &fakeExtractor{},
			ai:         &fakeAI{},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "empty text passes through",
			field:      "file",
			filename:   "blank.pdf",
			ex:         &fakeExtractor{text: ""},
			ai:         &fakeAI{reply: `{"structured":"data"}`},
			wantStatus: http.StatusOK,
			wantBody:   `{"structured":"data"}`,
		},
		{
			name:       "ai failure",
			field:      "file",
			filename:   "cv.docx",
			ex:         &fakeExtractor{text: "text"},
			ai:         &fakeAI{err: errServiceDown},
			wantStatus: http.StatusInternalServerError,
			wantError:  "service unavailable",
		},
		{
			name:       "garbage reply",
			field:      "file",
			filename:   "cv.pdf",
			ex:         &fakeExtractor{text: "text"},
			ai:         &fakeAI{reply: "Here is your resume!"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to parse AI response: ",
		},
		{
			name:       "schema mismatch",
			field:      "file",
			filename:   "cv.pdf",
			ex:         &fakeExtractor{text: "text"},
			ai:         &fakeAI{reply: `{"structured":"data"}`},
			validate:   true,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to parse AI response: ",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := NewService(tt.ex, tt.ai, Options{TempDir: dir, ValidateSchema: tt.validate})
			r := newTestRouter(svc, 1<<20)

			body, ct := multipartBody(t, tt.field, tt.filename, []byte("file-bytes"))
			w := postExtract(t, r, body, ct)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
			if tt.wantError != "" && !strings.HasPrefix(errorBody(t, w), tt.wantError) {
				t.Fatalf("error = %q, want prefix %q", errorBody(t, w), tt.wantError)
			}
			assertDirEmpty(t, dir)
		})
	}
}

var errServiceDown = &serviceDownError{}

type serviceDownError struct{}

func (*serviceDownError) Error() string { return "service unavailable" }

func TestExtractHandlerNotMultipart(t *testing.T) {
	quietLogs(t)
	svc := NewService(&fakeExtractor{}, &fakeAI{}, Options{TempDir: t.TempDir()})
	r := newTestRouter(svc, 1<<20)

	w := postExtract(t, r, bytes.NewBufferString(`{"file":"x"}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := errorBody(t, w); got != MsgNoFile {
		t.Fatalf("error = %q", got)
	}
}

func TestExtractHandlerTimeout(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	svc := NewService(&fakeExtractor{text: "text"}, &fakeAI{block: true}, Options{TempDir: dir, AITimeout: 20 * time.Millisecond})
	r := newTestRouter(svc, 1<<20)

	body, ct := multipartBody(t, "file", "cv.pdf", []byte("pdf"))
	w := postExtract(t, r, body, ct)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
	if got := errorBody(t, w); got != MsgAITimeout {
		t.Fatalf("error = %q", got)
	}
	assertDirEmpty(t, dir)
}

func TestExtractHandlerTooLarge(t *testing.T) {
	quietLogs(t)
	ai := &fakeAI{reply: `{}`}
	svc := NewService(&fakeExtractor{}, ai, Options{TempDir: t.TempDir()})
	r := newTestRouter(svc, 512)

	body, ct := multipartBody(t, "file", "big.pdf", bytes.Repeat([]byte("a"), 4096))
	w := postExtract(t, r, body, ct)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if len(ai.prompts) != 0 {
		t.Fatalf("ai should not be called")
	}
}
