package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Jadir123-w/repli-post/internal/agent/media"
	"github.com/Jadir123-w/repli-post/internal/agent/service"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
)

type fakeConversation struct {
	lastThread string
	lastText   string
	lastFile   media.File
	err        error
}

func (f *fakeConversation) Start(ctx context.Context) (*service.TurnReply, error) {
	return &service.TurnReply{ThreadID: "api_0000abcd", Message: "¡Hola!"}, f.err
}

func (f *fakeConversation) SendText(ctx context.Context, threadID, text string) (*service.TurnReply, error) {
	f.lastThread, f.lastText = threadID, text
	if f.err != nil {
		return nil, f.err
	}
	return &service.TurnReply{ThreadID: threadID, Message: "eco: " + text}, nil
}

func (f *fakeConversation) SendFile(ctx context.Context, threadID, text string, file media.File) (*service.FileReply, error) {
	f.lastThread, f.lastText, f.lastFile = threadID, text, file
	return &service.FileReply{TurnReply: service.TurnReply{ThreadID: threadID, Message: "archivo recibido"}, FileText: "texto"}, f.err
}

func (f *fakeConversation) SendVoice(ctx context.Context, threadID string, file media.File) (*service.VoiceReply, error) {
	f.lastFile = file
	if threadID == "" {
		threadID = "voice_0000abcd"
	}
	return &service.VoiceReply{TurnReply: service.TurnReply{ThreadID: threadID, Message: "ok"}, Transcript: "hola"}, f.err
}

func (f *fakeConversation) History(ctx context.Context, threadID string) ([]service.HistoryEntry, error) {
	return []service.HistoryEntry{{Role: "user", Content: "Hola"}}, f.err
}

func (f *fakeConversation) Export(ctx context.Context, threadID string) (*service.ExportPaths, error) {
	return &service.ExportPaths{TXT: "exports/conversation_" + threadID + ".txt", JSON: "exports/conversation_" + threadID + ".json"}, f.err
}

func newTestRouter(fc *fakeConversation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		ConversationHandler: NewConversationHandler(fc, 1<<20),
		HealthHandler:       NewHealthHandler(map[string]Checker{"store": func(context.Context) error { return nil }}),
	})
}

func do(r http.Handler, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestGetConversation(t *testing.T) {
	r := newTestRouter(&fakeConversation{})

	tests := []struct {
		name    string
		path    string
		status  int
		success bool
	}{
		{"history without thread", "/conversation?action=history", http.StatusBadRequest, false},
		{"history", "/conversation?thread_id=api_1", http.StatusOK, true},
		{"export on api prefix", "/api/conversation?thread_id=api_1&action=export", http.StatusOK, true},
		{"unknown action", "/conversation?thread_id=api_1&action=delete", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, http.MethodGet, tt.path, "", nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if body["success"] != tt.success {
				t.Fatalf("success = %v", body["success"])
			}
		})
	}
}

func TestPostJSON(t *testing.T) {
	fc := &fakeConversation{}
	r := newTestRouter(fc)

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{"start without thread", `{}`, http.StatusOK, func(t *testing.T, body map[string]any) {
			if body["thread_id"] != "api_0000abcd" || body["type"] != "text" {
				t.Fatalf("body = %v", body)
			}
		}},
		{"text turn", `{"thread_id":"api_1","message":"Hola"}`, http.StatusOK, func(t *testing.T, body map[string]any) {
			if body["message"] != "eco: Hola" || body["conversation_ended"] != false {
				t.Fatalf("body = %v", body)
			}
		}},
		{"empty thread", `{"thread_id":"","message":"Hola"}`, http.StatusBadRequest, nil},
		{"missing message", `{"thread_id":"api_1"}`, http.StatusBadRequest, nil},
		{"malformed", `{"thread_id":`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, http.MethodPost, "/conversation", "application/json", []byte(tt.body))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK && body["success"] != false {
				t.Fatalf("failure without success:false: %v", body)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestPostUnsupportedContentType(t *testing.T) {
	r := newTestRouter(&fakeConversation{})
	w, body := do(r, http.MethodPost, "/conversation", "text/plain", []byte("hola"))
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(body["error"].(string), "Content-Type no soportado") {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	_ = mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}

func TestPostMultipart(t *testing.T) {
	fc := &fakeConversation{}
	r := newTestRouter(fc)

	body, ct := multipartBody(t, nil, "audio", "nota.webm", []byte{1, 2, 3})
	w, out := do(r, http.MethodPost, "/conversation", ct, body)
	if w.Code != http.StatusOK || out["type"] != "voice" || out["thread_id"] != "voice_0000abcd" {
		t.Fatalf("voice: %d %v", w.Code, out)
	}

	body, ct = multipartBody(t, nil, "file", "cv.pdf", []byte("%PDF"))
	w, out = do(r, http.MethodPost, "/conversation", ct, body)
	if w.Code != http.StatusBadRequest || out["success"] != false {
		t.Fatalf("file without thread: %d %v", w.Code, out)
	}

	body, ct = multipartBody(t, map[string]string{"thread_id": "api_1", "message": "mi CV"}, "file", "cv.pdf", []byte("%PDF"))
	w, out = do(r, http.MethodPost, "/conversation", ct, body)
	if w.Code != http.StatusOK || out["type"] != "file" || out["file_text"] != "texto" {
		t.Fatalf("file: %d %v", w.Code, out)
	}
	if fc.lastFile.Name != "cv.pdf" || string(fc.lastFile.Data) != "%PDF" || fc.lastText != "mi CV" {
		t.Fatalf("upload not forwarded: %+v", fc.lastFile)
	}

	body, ct = multipartBody(t, map[string]string{"thread_id": "api_1", "message": "Hola"}, "", "", nil)
	w, out = do(r, http.MethodPost, "/conversation", ct, body)
	if w.Code != http.StatusOK || out["type"] != "text" {
		t.Fatalf("text: %d %v", w.Code, out)
	}

	body, ct = multipartBody(t, map[string]string{"message": "Hola"}, "", "", nil)
	w, _ = do(r, http.MethodPost, "/conversation", ct, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("text without thread: %d", w.Code)
	}
}

func TestIntegrationFailureIs500(t *testing.T) {
	fc := &fakeConversation{err: errx.WrapMongo(errors.New("connection refused"))}
	r := newTestRouter(fc)
	w, body := do(r, http.MethodPost, "/conversation", "application/json", []byte(`{"thread_id":"api_1","message":"Hola"}`))
	if w.Code != http.StatusInternalServerError || body["success"] != false {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if strings.Contains(body["error"].(string), "connection refused") {
		t.Fatalf("internal error leaked: %v", body["error"])
	}
}

func TestHealthAndIndex(t *testing.T) {
	r := newTestRouter(&fakeConversation{})
	w, body := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", w.Code, body)
	}
	w, body = do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK || body["status"] != "online" {
		t.Fatalf("index: %d %v", w.Code, body)
	}

	down := NewRouter(RouterConfig{HealthHandler: NewHealthHandler(map[string]Checker{
		"qdrant": func(context.Context) error { return errors.New("unreachable") },
	})})
	w, body = do(down, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("degraded health: %d %v", w.Code, body)
	}
}
