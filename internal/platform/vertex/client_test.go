package vertex

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type memStager struct {
	stored  map[string]string
	deleted []string
}

func (m *memStager) Store(ctx context.Context, localPath, key, contentType string) (string, error) {
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	m.stored[key] = contentType
	return "https://public/" + key, nil
}

func (m *memStager) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStager) GSURI(key string) string { return "gs://media/" + key }

func TestStagedVideoLifecycle(t *testing.T) {
	st := &memStager{}
	c := &Client{log: logger.Nop(), cfg: Config{StagingPrefix: "/staging/"}, stager: st}
	ctx := context.Background()

	h, err := c.Upload(ctx, "/tmp/job/lecture.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(h.Name, "staging/") || !strings.HasSuffix(h.Name, ".mp4") {
		t.Fatalf("staging key: got %q", h.Name)
	}
	if h.URI != "gs://media/"+h.Name || st.stored[h.Name] != "video/mp4" {
		t.Fatalf("handle: got %+v stored=%v", h, st.stored)
	}
	if s, _ := c.Status(ctx, h); s != content.VideoStateActive {
		t.Fatalf("Status: want ACTIVE got %s", s)
	}
	if err := c.Release(ctx, h); err != nil || len(st.deleted) != 1 || st.deleted[0] != h.Name {
		t.Fatalf("Release: deleted=%v err=%v", st.deleted, err)
	}
}

func TestUploadWithoutStager(t *testing.T) {
	c := &Client{log: logger.Nop()}
	if _, err := c.Upload(context.Background(), "a.mp4", "video/mp4"); err == nil {
		t.Fatalf("want error without staging bucket")
	}
	if err := c.Release(context.Background(), content.VideoHandle{Name: "x"}); err != nil {
		t.Fatalf("Release without stager should be a no-op: %v", err)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
	}}}
	got, err := responseText(resp)
	if err != nil || got != `{"a":1}` {
		t.Fatalf("responseText: got %q err=%v", got, err)
	}
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatalf("empty response should error")
	}
}
