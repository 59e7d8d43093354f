package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "123:abc"

// fakeAPI records calls and answers with canned responses per method
type fakeAPI struct {
	t         *testing.T
	mu        sync.Mutex
	calls     []string
	payloads  map[string]map[string]any
	responses map[string]string
	form      map[string]string
	upload    []byte
	uploadAs  string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{
		t:         t,
		payloads:  make(map[string]map[string]any),
		responses: make(map[string]string),
		form:      make(map[string]string),
	}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, method)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		mr, err := r.MultipartReader()
		if err != nil {
			a.t.Errorf("multipart reader: %v", err)
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				a.t.Errorf("next part: %v", err)
				return
			}
			data, _ := io.ReadAll(part)
			if part.FileName() != "" {
				a.upload = data
				a.uploadAs = part.FormName() + ":" + part.FileName()
				continue
			}
			a.form[part.FormName()] = string(data)
		}
	} else {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			a.t.Errorf("decode payload: %v", err)
		}
		a.payloads[method] = payload
	}

	body, ok := a.responses[method]
	if !ok {
		body = `{"ok":true,"result":true}`
	}
	if strings.Contains(body, `"ok":false`) {
		w.WriteHeader(http.StatusBadRequest)
	}
	io.WriteString(w, body)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(testToken, srv.URL+"/", time.Second, -1)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("t", "", 0, 0)
	if c.apiBase != DefaultAPIBase {
		t.Errorf("Expected default api base, got %q", c.apiBase)
	}
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", c.http.Timeout)
	}
	if c.limiter.Limit() != DefaultRate {
		t.Errorf("Expected default rate, got %v", c.limiter.Limit())
	}
	if got := c.apiURL("getMe"); got != "https://api.telegram.org/bott/getMe" {
		t.Errorf("Unexpected api url %q", got)
	}

	short := NewClient("t", "", time.Second, 0)
	if short.http.Timeout <= PollTimeout*time.Second {
		t.Errorf("Expected timeout above the long poll, got %v", short.http.Timeout)
	}
}

func TestSendMessage(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.responses["sendMessage"] = `{"ok":true,"result":{"message_id":77,"chat":{"id":5,"type":"private"}}}`
	c := newTestClient(srv)

	markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "🎵 A - B", CallbackData: "https://www.deezer.com/track/1"}},
	}}
	id, err := c.SendMessage(context.Background(), 5, "hola", markup, 12)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if id != 77 {
		t.Errorf("Expected message id 77, got %d", id)
	}

	p := api.payloads["sendMessage"]
	if p["chat_id"] != float64(5) || p["text"] != "hola" || p["reply_to_message_id"] != float64(12) {
		t.Errorf("Unexpected payload %v", p)
	}
	rows := p["reply_markup"].(map[string]any)["inline_keyboard"].([]any)
	button := rows[0].([]any)[0].(map[string]any)
	if button["callback_data"] != "https://www.deezer.com/track/1" {
		t.Errorf("Unexpected button %v", button)
	}
}

func TestSendMessageWithoutReply(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.responses["sendMessage"] = `{"ok":true,"result":{"message_id":1,"chat":{"id":5,"type":"private"}}}`
	c := newTestClient(srv)

	if _, err := c.SendMessage(context.Background(), 5, "x", nil, 0); err != nil {
		t.Fatal(err)
	}
	p := api.payloads["sendMessage"]
	if _, ok := p["reply_to_message_id"]; ok {
		t.Error("Expected no reply_to_message_id")
	}
	if _, ok := p["reply_markup"]; ok {
		t.Error("Expected no reply_markup")
	}
}

func TestEditMessageText(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
	}{
		{name: "ok", response: `{"ok":true,"result":true}`},
		{name: "not modified", response: `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`},
		{name: "not found", response: `{"ok":false,"error_code":400,"description":"Bad Request: message to edit not found"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.responses["editMessageText"] = tt.response
			c := newTestClient(srv)

			err := c.EditMessageText(context.Background(), 5, 9, "Terminado! Envié 1 archivos")
			if (err != nil) != tt.wantErr {
				t.Fatalf("EditMessageText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Code != 400 {
					t.Errorf("Expected APIError with code 400, got %v", err)
				}
			}
			if api.payloads["editMessageText"]["message_id"] != float64(9) {
				t.Errorf("Unexpected payload %v", api.payloads["editMessageText"])
			}
		})
	}
}

func TestEditMessageTextSkipsZeroID(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv)

	if err := c.EditMessageText(context.Background(), 5, 0, "x"); err != nil {
		t.Fatal(err)
	}
	if len(api.calls) != 0 {
		t.Errorf("Expected no calls, got %v", api.calls)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv)

	if err := c.AnswerCallbackQuery(context.Background(), "cb-1"); err != nil {
		t.Fatal(err)
	}
	if api.payloads["answerCallbackQuery"]["callback_query_id"] != "cb-1" {
		t.Errorf("Unexpected payload %v", api.payloads["answerCallbackQuery"])
	}
}

func TestGetUpdates(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.responses["getUpdates"] = `{"ok":true,"result":[
		{"update_id":10,"message":{"message_id":1,"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"daft punk"}},
		{"update_id":11,"callback_query":{"id":"q","from":{"id":7},"message":{"message_id":2,"chat":{"id":7,"type":"private"}},"data":"https://www.deezer.com/album/302127"}}
	]}`
	c := newTestClient(srv)

	updates, err := c.GetUpdates(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "daft punk" || updates[0].Message.From.ID != 7 {
		t.Errorf("Unexpected first update %+v", updates[0])
	}
	if cb := updates[1].CallbackQuery; cb == nil || cb.Data != "https://www.deezer.com/album/302127" || cb.Message.MessageID != 2 {
		t.Errorf("Unexpected second update %+v", updates[1])
	}
	if api.payloads["getUpdates"]["offset"] != float64(10) {
		t.Errorf("Expected offset 10, got %v", api.payloads["getUpdates"]["offset"])
	}
}

func TestAPIErrorRetryAfter(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.responses["getUpdates"] = `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`
	c := newTestClient(srv)

	_, err := c.GetUpdates(context.Background(), 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 3*time.Second {
		t.Errorf("Unexpected APIError %+v", apiErr)
	}
}

func TestSendAudio(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv)

	path := filepath.Join(t.TempDir(), "01 - One More Time.flac")
	if err := os.WriteFile(path, []byte("fLaC-data"), 0644); err != nil {
		t.Fatal(err)
	}

	err := c.SendAudio(context.Background(), AudioUpload{
		ChatID:    5,
		ReplyToID: 3,
		Path:      path,
		Caption:   "Calidad: FLAC",
		Title:     "01 - One More Time",
		Performer: "Daft Punk",
	})
	if err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}

	want := map[string]string{
		"chat_id":             "5",
		"reply_to_message_id": "3",
		"caption":             "Calidad: FLAC",
		"title":               "01 - One More Time",
		"performer":           "Daft Punk",
	}
	for k, v := range want {
		if api.form[k] != v {
			t.Errorf("Field %s = %q, want %q", k, api.form[k], v)
		}
	}
	if string(api.upload) != "fLaC-data" {
		t.Errorf("Unexpected upload body %q", api.upload)
	}
	if api.uploadAs != "audio:01 - One More Time.flac" {
		t.Errorf("Unexpected upload part %q", api.uploadAs)
	}
}

func TestSendAudioOmitsEmptyFields(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv)

	path := filepath.Join(t.TempDir(), "x.mp3")
	if err := os.WriteFile(path, []byte("id3"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.SendAudio(context.Background(), AudioUpload{ChatID: 5, Path: path}); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"performer", "title", "caption", "reply_to_message_id"} {
		if _, ok := api.form[k]; ok {
			t.Errorf("Expected %s to be omitted", k)
		}
	}
}

func TestSendAudioMissingFile(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv)

	err := c.SendAudio(context.Background(), AudioUpload{ChatID: 5, Path: filepath.Join(t.TempDir(), "gone.flac")})
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if len(api.calls) != 0 {
		t.Errorf("Expected no request, got %v", api.calls)
	}
}

func TestSendAudioRejected(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.responses["sendAudio"] = `{"ok":false,"error_code":413,"description":"Request Entity Too Large"}`
	c := newTestClient(srv)

	path := filepath.Join(t.TempDir(), "big.flac")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	err := c.SendAudio(context.Background(), AudioUpload{ChatID: 5, Path: path})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 413 {
		t.Errorf("Expected 413 APIError, got %v", err)
	}
}
