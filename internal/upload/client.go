package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

const (
	DefaultEndpoint  = "http://localhost:8000/api/upload-audio"
	DefaultFieldName = "audio"

	NotificationTitle   = "opconsole"
	NotificationSuccess = "Recording sent to agent"
	NotificationFailure = "Recording upload failed"

	notifyTimeout  = 10 * time.Second
	maxErrorDetail = 512
)

// UploadError describes a failed upload attempt. Either the server answered with a
// non-success status (StatusCode set), the server reported a failure in its body
// (Message set) or the request never completed (Err set).
type UploadError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("upload failed: %v", e.Err)
	case e.Message != "" && e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode > 299):
		return fmt.Sprintf("upload failed: %s: %s", e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("upload failed: %s", e.Message)
	default:
		return fmt.Sprintf("upload failed: %s", e.Status)
	}
}

func (e *UploadError) Unwrap() error { return e.Err }

type Options struct {
	Endpoint   string
	FieldName  string
	HTTPClient *http.Client
	Notifier   ports.Notifier
	Logger     zerolog.Logger
}

// Client posts finished recordings to the agent service as multipart form data.
type Client struct {
	endpoint string
	field    string
	http     *http.Client
	notifier ports.Notifier
	logger   zerolog.Logger
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		endpoint: opts.Endpoint,
		field:    opts.FieldName,
		http:     opts.HTTPClient,
		notifier: opts.Notifier,
		logger:   opts.Logger.With().Str("component", "upload").Logger(),
	}
}

type uploadResponse struct {
	Success    *bool           `json:"success"`
	Error      string          `json:"error"`
	Filename   string          `json:"filename"`
	Transcript string          `json:"transcript"`
	Text       string          `json:"text"`
	Result     json.RawMessage `json:"result"`
}

// Upload makes exactly one attempt and fires the completion notification in the background.
func (c *Client) Upload(ctx context.Context, payload domain.AudioPayload, opts ports.UploadOptions) (domain.UploadResult, error) {
	result, err := c.post(ctx, payload, opts)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", c.endpoint).Msg("upload failed")
		c.notifyAsync(NotificationFailure)
		return domain.UploadResult{}, err
	}
	c.logger.Info().Int("status", result.StatusCode).Str("filename", result.Filename).Msg("upload accepted")
	c.notifyAsync(NotificationSuccess)
	return result, nil
}

func (c *Client) post(ctx context.Context, payload domain.AudioPayload, opts ports.UploadOptions) (domain.UploadResult, error) {
	target, err := c.requestURL(opts)
	if err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, c.field, payload.Filename()))
	if payload.MIMEType != "" {
		header.Set("Content-Type", payload.MIMEType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}
	if _, err := part.Write(payload.Data); err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.UploadResult{}, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.UploadResult{}, &UploadError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    truncate(string(bytes.TrimSpace(raw)), maxErrorDetail),
		}
	}

	result := domain.UploadResult{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.UploadResult{}, &UploadError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("decode upload response: %w", err),
		}
	}
	if decoded.Success != nil && !*decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = "server reported failure"
		}
		return domain.UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Status: resp.Status, Message: msg}
	}

	result.Filename = decoded.Filename
	result.Transcript = decoded.Transcript
	if result.Transcript == "" {
		result.Transcript = decoded.Text
	}
	result.Result = domain.RawText(decoded.Result)
	return result, nil
}

func (c *Client) requestURL(opts ports.UploadOptions) (string, error) {
	if opts.ToggleVoice == nil {
		return c.endpoint, nil
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse upload endpoint: %w", err)
	}
	q := u.Query()
	q.Set("toggle_voice", strconv.FormatBool(*opts.ToggleVoice))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// notifyAsync raises the completion notification without blocking the caller.
func (c *Client) notifyAsync(body string) {
	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.notifier.Notify(ctx, NotificationTitle, body); err != nil {
			c.logger.Warn().Err(err).Msg("notification failed")
		}
	}()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
