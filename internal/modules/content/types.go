package content

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
)

// Upload is one accepted file waiting to be processed. The pipeline owns
// LocalPath once the job is submitted and removes it when the run ends.
type Upload struct {
	CourseID         string
	ModuleID         string
	LocalPath        string
	OriginalFilename string
	MimeType         string
}

// JobID is the key of the status record. One job per module.
func (u Upload) JobID() string { return u.ModuleID }

// Lecture is the HTML plus narration pair derived from a document.
type Lecture struct {
	Title           string
	HTMLBody        string
	NarrationScript string
	Fallback        bool
}

type RenderResult struct {
	VideoPath     string
	AudioDuration float64
}

type AnalyzeRequest struct {
	CourseID  string
	ModuleID  string
	VideoPath string
	MimeType  string
	// Progress receives stage updates. Optional.
	Progress func(stage course.Stage, message string, pct int)
}

type Analysis struct {
	InteractionPoints []course.InteractionPoint
	Materials         course.StudyMaterials
	// Degraded is set when the model output could not be parsed and the
	// analysis fell back to empty materials.
	Degraded bool
}

type MediaKind int

const (
	MediaUnsupported MediaKind = iota
	MediaVideo
	MediaDocument
)

func (k MediaKind) String() string {
	switch k {
	case MediaVideo:
		return "video"
	case MediaDocument:
		return "document"
	default:
		return "unsupported"
	}
}

// knownExtensions covers upload types missing from minimal mime tables.
var knownExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// ResolveMimeType prefers the declared type and falls back to the extension.
func ResolveMimeType(declared, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if known, ok := knownExtensions[ext]; ok {
		return known
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return strings.ToLower(strings.TrimSpace(byExt))
	}
	return mt
}

// ClassifyMedia routes video/* to the video path and pdf, text/* and other
// application/* documents to the document path.
func ClassifyMedia(mimeType string) MediaKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "video/"):
		return MediaVideo
	case strings.Contains(mt, "pdf"), strings.HasPrefix(mt, "text/"):
		return MediaDocument
	case strings.HasPrefix(mt, "application/"):
		return MediaDocument
	default:
		return MediaUnsupported
	}
}

// StorageKey is the object key for a module asset.
func StorageKey(courseID, moduleID, filename string) string {
	return "courses/" + courseID + "/modules/" + moduleID + "_" + SanitizeFilename(filename)
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_'.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
