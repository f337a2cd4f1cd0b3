package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/data/db"
	"github.com/yungbote/coursemedia-backend/internal/platform/envutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/gcp"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

const (
	MediaStoreLocal       = "local"
	MediaStoreGCS         = "gcs"
	MediaStoreGCSEmulator = "gcs_emulator"

	StatusBackendSQL       = "sql"
	StatusBackendFirestore = "firestore"

	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
	ProviderEdge   = "edge"

	RenderChromedp = "chromedp"
	RenderRaster   = "raster"
)

type Config struct {
	Port        string
	LogMode     string
	CORSOrigins []string

	DB db.Config

	MediaStore         string
	MediaRoot          string
	MediaPublicBaseURL string

	StatusBackend      string
	FirestoreProjectID string
	StatusCollection   string
	CourseCollection   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	AdmissionTTL  time.Duration

	TextGenProvider string
	VideoProvider   string
	TTSProvider     string
	TTSVoice        string
	VertexProjectID string

	RenderBackend   string
	ChromePath      string
	ChromeNoSandbox bool
	ViewportWidth   int
	ViewportHeight  int
	FFmpegPath      string
	FFprobePath     string
	SofficePath     string
	// LectureLanguage is named in prompts; NarrationLanguage picks the voice.
	LectureLanguage   string
	NarrationLanguage string

	LectureMaxInputChars int
	InteractionPoints    int
	AnalysisPoll         time.Duration
	AnalysisTimeout      time.Duration

	Workers        int
	QueueSize      int
	UploadDir      string
	WorkDir        string
	MaxUploadBytes int64
	ShutdownGrace  time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	tmp := envutil.String("UPLOAD_TEMP_DIR", filepath.Join(os.TempDir(), "coursemedia"))
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB: db.ConfigFromEnv(),

		MediaStore:         strings.ToLower(envutil.String("MEDIA_STORE", MediaStoreLocal)),
		MediaRoot:          envutil.String("MEDIA_ROOT", "media"),
		MediaPublicBaseURL: envutil.String("MEDIA_PUBLIC_BASE_URL", ""),

		StatusBackend:      strings.ToLower(envutil.String("STATUS_BACKEND", StatusBackendSQL)),
		FirestoreProjectID: envutil.String("FIRESTORE_PROJECT_ID", ""),
		StatusCollection:   envutil.String("FIRESTORE_STATUS_COLLECTION", "processing_status"),
		CourseCollection:   envutil.String("FIRESTORE_COURSE_COLLECTION", "courses"),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "coursemedia.status"),
		AdmissionTTL:  envutil.Duration("ADMISSION_TTL", 2*time.Hour),

		TextGenProvider: strings.ToLower(envutil.String("TEXTGEN_PROVIDER", ProviderOpenAI)),
		VideoProvider:   strings.ToLower(envutil.String("VIDEO_PROVIDER", ProviderGemini)),
		TTSProvider:     strings.ToLower(envutil.String("TTS_PROVIDER", ProviderOpenAI)),
		TTSVoice:        envutil.String("TTS_VOICE", ""),
		VertexProjectID: envutil.String("VERTEX_PROJECT_ID", ""),

		RenderBackend:     strings.ToLower(envutil.String("RENDER_BACKEND", RenderChromedp)),
		ChromePath:        envutil.String("CHROME_PATH", ""),
		ChromeNoSandbox:   envutil.Bool("CHROME_NO_SANDBOX", false),
		ViewportWidth:     envutil.Int("RENDER_VIEWPORT_WIDTH", 1280),
		ViewportHeight:    envutil.Int("RENDER_VIEWPORT_HEIGHT", 720),
		FFmpegPath:        envutil.String("FFMPEG_PATH", ""),
		FFprobePath:       envutil.String("FFPROBE_PATH", ""),
		SofficePath:       envutil.String("SOFFICE_PATH", ""),
		LectureLanguage:   envutil.String("LECTURE_LANGUAGE", "English"),
		NarrationLanguage: envutil.String("NARRATION_LANGUAGE", "en"),

		LectureMaxInputChars: envutil.Int("LECTURE_MAX_INPUT_CHARS", 30000),
		InteractionPoints:    envutil.Int("ANALYSIS_INTERACTION_POINTS", 3),
		AnalysisPoll:         envutil.Duration("ANALYSIS_POLL_INTERVAL", 5*time.Second),
		AnalysisTimeout:      envutil.Duration("ANALYSIS_TIMEOUT", 300*time.Second),

		Workers:        envutil.Int("PIPELINE_WORKERS", 2),
		QueueSize:      envutil.Int("PIPELINE_QUEUE_SIZE", 32),
		UploadDir:      filepath.Join(tmp, "uploads"),
		WorkDir:        filepath.Join(tmp, "work"),
		MaxUploadBytes: int64(envutil.Int("UPLOAD_MAX_BYTES", 2<<30)),
		ShutdownGrace:  envutil.Duration("SHUTDOWN_GRACE", 15*time.Second),
	}
	if cfg.FirestoreProjectID == "" {
		cfg.FirestoreProjectID = gcp.ProjectIDFromEnv()
	}
	if cfg.VertexProjectID == "" {
		cfg.VertexProjectID = gcp.ProjectIDFromEnv()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log != nil {
		log.Info(
			"Config loaded",
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"media_store", cfg.MediaStore,
			"status_backend", cfg.StatusBackend,
			"redis", cfg.RedisAddr != "",
			"textgen", cfg.TextGenProvider,
			"video", cfg.VideoProvider,
			"tts", cfg.TTSProvider,
			"render", cfg.RenderBackend,
			"workers", cfg.Workers,
			"queue", cfg.QueueSize,
		)
	}
	return cfg
}

func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
