package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/envutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/httpx"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:     strings.TrimSpace(envutil.String("GEMINI_API_KEY", "")),
		BaseURL:    envutil.String("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Model:      envutil.String("GEMINI_MODEL", "gemini-1.5-flash"),
		Timeout:    envutil.Duration("GEMINI_TIMEOUT", 5*time.Minute),
		MaxRetries: envutil.Int("GEMINI_MAX_RETRIES", 3),
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("missing GEMINI_API_KEY")
	}
	return cfg, nil
}

// Client implements video understanding over the Gemini Files API: upload,
// poll the file state, generate against it, delete.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		log:        log.With("service", "GeminiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func (e *geminiHTTPError) HTTPStatusCode() int { return e.StatusCode }

type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

// send performs one request built by newReq, retrying transient failures.
// newReq is called per attempt so bodies can be replayed.
func (c *Client) send(ctx context.Context, op string, newReq func() (*http.Request, error)) (resp *http.Response, raw []byte, err error) {
	start := time.Now()
	defer func() { observability.Current().ObserveProvider("gemini", op, err, time.Since(start)) }()
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
		resp, err = c.httpClient.Do(req)
		raw = nil
		if err == nil {
			raw, err = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err == nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
				err = &geminiHTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
			}
		}
		if err == nil {
			return resp, raw, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return resp, nil, fmt.Errorf("%s: %w", op, err)
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 15*time.Second))
		c.log.Warn("Gemini request retrying", "op", op, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, nil, err
		}
		backoff *= 2
	}
}

// Upload sends the file with the resumable protocol in a single chunk.
func (c *Client) Upload(ctx context.Context, path, mimeType string) (content.VideoHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return content.VideoHandle{}, err
	}
	meta, _ := json.Marshal(map[string]any{"file": map[string]string{"display_name": filepath.Base(path)}})
	resp, _, err := c.send(ctx, "start upload", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload/v1beta/files", bytes.NewReader(meta))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Upload-Protocol", "resumable")
		req.Header.Set("X-Goog-Upload-Command", "start")
		req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(info.Size(), 10))
		req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return content.VideoHandle{}, err
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return content.VideoHandle{}, fmt.Errorf("start upload: missing upload url")
	}

	_, raw, err := c.send(ctx, "upload bytes", func() (*http.Request, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		req.ContentLength = info.Size()
		req.Header.Set("X-Goog-Upload-Offset", "0")
		req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
		return req, nil
	})
	if err != nil {
		return content.VideoHandle{}, err
	}
	var out struct {
		File fileResource `json:"file"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return content.VideoHandle{}, fmt.Errorf("decode upload: %w", err)
	}
	if out.File.Name == "" {
		return content.VideoHandle{}, fmt.Errorf("upload returned no file name")
	}
	if out.File.MIMEType == "" {
		out.File.MIMEType = mimeType
	}
	c.log.Debug("video uploaded", "file", out.File.Name, "bytes", info.Size())
	return content.VideoHandle{Name: out.File.Name, URI: out.File.URI, MIMEType: out.File.MIMEType}, nil
}

func (c *Client) Status(ctx context.Context, h content.VideoHandle) (content.VideoState, error) {
	_, raw, err := c.send(ctx, "get file", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1beta/"+h.Name, nil)
	})
	if err != nil {
		return "", err
	}
	var f fileResource
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("decode file: %w", err)
	}
	if f.State == "" {
		return content.VideoStateUnspecified, nil
	}
	return content.VideoState(f.State), nil
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Client) Analyze(ctx context.Context, h content.VideoHandle, prompt string, structured bool) (string, error) {
	var body generateRequest
	body.Contents = append(body.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: []part{
		{FileData: &fileData{MIMEType: h.MIMEType, FileURI: h.URI}},
		{Text: prompt},
	}})
	if structured {
		body.GenerationConfig = map[string]any{"responseMimeType": "application/json"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	_, raw, err := c.send(ctx, "generate content", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode generation: %w", err)
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty generation")
	}
	return sb.String(), nil
}

func (c *Client) Release(ctx context.Context, h content.VideoHandle) error {
	if h.Name == "" {
		return nil
	}
	_, _, err := c.send(ctx, "delete file", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.BaseURL+"/v1beta/"+h.Name, nil)
	})
	return err
}
