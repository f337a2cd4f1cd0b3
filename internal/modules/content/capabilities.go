package content

import (
	"context"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
)

// MediaStore persists a local file under key and returns a retrievable URL.
// Storing twice under the same key overwrites.
type MediaStore interface {
	Store(ctx context.Context, localPath, key, contentType string) (string, error)
}

type TextGenerator interface {
	// Generate returns raw model text. With structured set the provider is
	// asked for a JSON object, but callers still parse defensively.
	Generate(ctx context.Context, prompt string, structured bool) (string, error)
}

type SpeechSynthesizer interface {
	// Synthesize writes narration audio for text to outPath.
	Synthesize(ctx context.Context, text, language, outPath string) error
}

// Snapshot is a full-height raster capture of a rendered page.
type Snapshot struct {
	Path   string
	Width  int
	Height int
}

type HTMLRenderer interface {
	// RenderToImage lays out html at viewportWidth and captures the whole
	// scrollable height (never less than viewportHeight) to outPath as PNG.
	RenderToImage(ctx context.Context, html string, viewportWidth, viewportHeight int, outPath string) (Snapshot, error)
	RenderToPDF(ctx context.Context, html string, outPath string) error
}

// OfficeConverter turns word-processor and slide files into PDF.
type OfficeConverter interface {
	ConvertOfficeToPDF(ctx context.Context, inputPath, outDir string) (string, error)
}

// MediaProber measures media files.
type MediaProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// ScrollSpec describes a scrolling-image-over-audio composite.
type ScrollSpec struct {
	ImagePath      string
	ImageWidth     int
	ImageHeight    int
	AudioPath      string
	Duration       float64
	ViewportWidth  int
	ViewportHeight int
	OutPath        string
}

type Compositor interface {
	ComposeScrolling(ctx context.Context, spec ScrollSpec) error
}

type VideoState string

const (
	VideoStateProcessing  VideoState = "PROCESSING"
	VideoStateActive      VideoState = "ACTIVE"
	VideoStateFailed      VideoState = "FAILED"
	VideoStateUnspecified VideoState = "STATE_UNSPECIFIED"
)

// VideoHandle identifies a video uploaded to a video-understanding provider.
type VideoHandle struct {
	Name     string
	URI      string
	MIMEType string
}

type VideoUnderstanding interface {
	Upload(ctx context.Context, path, mimeType string) (VideoHandle, error)
	Status(ctx context.Context, h VideoHandle) (VideoState, error)
	Analyze(ctx context.Context, h VideoHandle, prompt string, structured bool) (string, error)
	Release(ctx context.Context, h VideoHandle) error
}

// CourseRepository is the durable module record. Each job writes only its own
// module's fields.
type CourseRepository interface {
	GetModule(ctx context.Context, courseID, moduleID string) (*course.Module, error)
	SetModuleSourceURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleVideoURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleNotesURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleAnalysis(ctx context.Context, courseID, moduleID string, points []course.InteractionPoint, materials course.StudyMaterials) error
	SetModuleState(ctx context.Context, courseID, moduleID, state string) error
}

// StatusStore persists ProcessingStatus records. GetStatus returns
// course.ErrStatusNotFound for unknown jobs.
type StatusStore interface {
	UpsertStatus(ctx context.Context, st *course.ProcessingStatus) error
	GetStatus(ctx context.Context, jobID string) (*course.ProcessingStatus, error)
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, st course.ProcessingStatus) error
}
