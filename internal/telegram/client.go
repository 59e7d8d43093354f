package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIBase = "https://api.telegram.org"
	DefaultTimeout = 60 * time.Second

	// PollTimeout is the long-poll wait passed to getUpdates, in seconds
	PollTimeout = 30

	// DefaultRate is the outbound request budget per second
	DefaultRate = 25

	notModified = "message is not modified"
)

// APIError is an error reported by the Bot API itself
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s error %d: %s", e.Method, e.Code, e.Description)
}

// Client talks to the Bot API over plain HTTP
type Client struct {
	token   string
	apiBase string
	http    *http.Client
	upload  *http.Client // no overall timeout, uploads are bounded by ctx
	limiter *rate.Limiter
}

// NewClient creates a client. Empty or non-positive values fall back to
// defaults; perSecond below zero disables the outbound rate limit.
func NewClient(token, apiBase string, timeout time.Duration, perSecond float64) *Client {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Long polling must fit inside the request timeout
	if floor := (PollTimeout + 10) * time.Second; timeout < floor {
		timeout = floor
	}

	limit := rate.Limit(perSecond)
	switch {
	case perSecond < 0:
		limit = rate.Inf
	case perSecond == 0:
		limit = DefaultRate
	}
	burst := 1
	if limit != rate.Inf && int(limit) > burst {
		burst = int(limit)
	}

	return &Client{
		token:   token,
		apiBase: apiBase,
		http:    &http.Client{Timeout: timeout},
		upload:  &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *Client) apiURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

// GetMe returns the bot's own user, useful to verify the token
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", map[string]any{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates with id >= offset. It is not rate limited.
func (c *Client) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	payload := map[string]any{
		"timeout":         PollTimeout,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}
	var updates []Update
	if err := c.do(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to chatID and returns the new message id. markup
// and replyToID are optional.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup, replyToID int) (int, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	if replyToID > 0 {
		payload["reply_to_message_id"] = replyToID
		payload["allow_sending_without_reply"] = true
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessageText replaces the text of a message and drops its keyboard.
// Editing to identical text is not an error.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	if messageID == 0 {
		return nil
	}
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	err := c.call(ctx, "editMessageText", payload, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, notModified) {
		return nil
	}
	return err
}

// AnswerCallbackQuery acknowledges a button press
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	if callbackID == "" {
		return nil
	}
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// SendAudio uploads a local audio file. The body is streamed so the file is
// never held in memory.
func (c *Client) SendAudio(ctx context.Context, upload AudioUpload) error {
	file, err := os.Open(upload.Path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeAudioForm(form, upload, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("sendAudio"), pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendAudio: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse("sendAudio", resp, nil)
}

func writeAudioForm(form *multipart.Writer, upload AudioUpload, file io.Reader) error {
	fields := []struct{ name, value string }{
		{"chat_id", strconv.FormatInt(upload.ChatID, 10)},
		{"caption", upload.Caption},
		{"title", upload.Title},
		{"performer", upload.Performer},
	}
	if upload.ReplyToID > 0 {
		fields = append(fields, struct{ name, value string }{"reply_to_message_id", strconv.Itoa(upload.ReplyToID)})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := form.WriteField(f.name, f.value); err != nil {
			return err
		}
	}

	part, err := form.CreateFormFile("audio", filepath.Base(upload.Path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return form.Close()
}

// call is do behind the outbound rate limiter
func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, method, payload, result)
}

func (c *Client) do(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()
	return decodeResponse(method, resp, result)
}

func decodeResponse(method string, resp *http.Response, result any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram %s failed: %s", method, resp.Status)
		}
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}
