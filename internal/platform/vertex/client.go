package vertex

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/envutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Config struct {
	ProjectID string
	Region    string
	Model     string
	// StagingPrefix is the bucket prefix videos are staged under for analysis.
	StagingPrefix string
}

func ConfigFromEnv(projectID string) Config {
	return Config{
		ProjectID:     projectID,
		Region:        envutil.String("VERTEX_REGION", "us-central1"),
		Model:         envutil.String("VERTEX_MODEL", "gemini-1.5-pro"),
		StagingPrefix: envutil.String("VERTEX_STAGING_PREFIX", "analysis-staging"),
	}
}

// Stager puts videos where Vertex can read them by gs:// URI.
type Stager interface {
	Store(ctx context.Context, localPath, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GSURI(key string) string
}

// Client serves text generation and, given a Stager, video understanding.
type Client struct {
	log    *logger.Logger
	cfg    Config
	base   *genai.Client
	stager Stager
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config, stager Stager) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{log: log.With("service", "VertexClient"), cfg: cfg, base: base, stager: stager}, nil
}

func (c *Client) model(structured bool) *genai.GenerativeModel {
	m := c.base.GenerativeModel(c.cfg.Model)
	if structured {
		m.GenerationConfig = genai.GenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
		}
	}
	return m
}

func (c *Client) Generate(ctx context.Context, prompt string, structured bool) (string, error) {
	resp, err := c.model(structured).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// Upload stages the video in the bucket. Staged objects are readable at once,
// so Status always reports ACTIVE.
func (c *Client) Upload(ctx context.Context, path, mimeType string) (content.VideoHandle, error) {
	if c.stager == nil {
		return content.VideoHandle{}, fmt.Errorf("vertex: no staging bucket configured")
	}
	key := fmt.Sprintf("%s/%s%s", strings.Trim(c.cfg.StagingPrefix, "/"), uuid.NewString(), filepath.Ext(path))
	if _, err := c.stager.Store(ctx, path, key, mimeType); err != nil {
		return content.VideoHandle{}, fmt.Errorf("stage video: %w", err)
	}
	return content.VideoHandle{Name: key, URI: c.stager.GSURI(key), MIMEType: mimeType}, nil
}

func (c *Client) Status(ctx context.Context, h content.VideoHandle) (content.VideoState, error) {
	return content.VideoStateActive, nil
}

func (c *Client) Analyze(ctx context.Context, h content.VideoHandle, prompt string, structured bool) (string, error) {
	resp, err := c.model(structured).GenerateContent(ctx,
		genai.FileData{MIMEType: h.MIMEType, FileURI: h.URI},
		genai.Text(prompt),
	)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func (c *Client) Release(ctx context.Context, h content.VideoHandle) error {
	if c.stager == nil || h.Name == "" {
		return nil
	}
	return c.stager.Delete(ctx, h.Name)
}

func (c *Client) Close() error { return c.base.Close() }

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty generation")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty generation")
	}
	return sb.String(), nil
}
