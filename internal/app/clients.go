package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/browser"
	"github.com/yungbote/coursemedia-backend/internal/platform/edgetts"
	"github.com/yungbote/coursemedia-backend/internal/platform/gcp"
	"github.com/yungbote/coursemedia-backend/internal/platform/gemini"
	"github.com/yungbote/coursemedia-backend/internal/platform/localmedia"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
	"github.com/yungbote/coursemedia-backend/internal/platform/openai"
	"github.com/yungbote/coursemedia-backend/internal/platform/raster"
	"github.com/yungbote/coursemedia-backend/internal/platform/vertex"
	"github.com/yungbote/coursemedia-backend/internal/realtime/bus"
)

// Clients holds the long-lived external clients. Only the ones the config
// selects are set.
type Clients struct {
	Redis     *goredis.Client
	Firestore *firestore.Client
	OpenAI    *openai.Client
	Vertex    *vertex.Client
	Gemini    *gemini.Client
	Browser   *browser.Renderer
	Tools     *localmedia.Tools
}

// Capabilities are the providers the content pipeline runs on.
type Capabilities struct {
	TextGen content.TextGenerator
	Speech  content.SpeechSynthesizer
	HTML    content.HTMLRenderer
	Video   content.VideoUnderstanding
	// Tools probes, composes and converts office files.
	Tools *localmedia.Tools
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, media mediaBackend) (Clients, Capabilities, error) {
	log.Info("Wiring clients...")
	var cl Clients
	fail := func(err error) (Clients, Capabilities, error) {
		cl.Close()
		return Clients{}, Capabilities{}, err
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb, err := bus.NewRedisClient(ctx, bus.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fail(fmt.Errorf("init redis: %w", err))
		}
		cl.Redis = rdb
	}

	// Firestore
	switch cfg.StatusBackend {
	case StatusBackendSQL, "":
	case StatusBackendFirestore:
		fs, err := gcp.NewFirestoreClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return fail(fmt.Errorf("init firestore: %w", err))
		}
		cl.Firestore = fs
	default:
		return fail(fmt.Errorf("unsupported STATUS_BACKEND %q", cfg.StatusBackend))
	}

	// OpenAI serves text generation and narration.
	if cfg.TextGenProvider == ProviderOpenAI || cfg.TTSProvider == ProviderOpenAI {
		oc, err := openai.ConfigFromEnv()
		if err != nil {
			return fail(fmt.Errorf("init openai: %w", err))
		}
		if cfg.TTSVoice != "" && cfg.TTSProvider == ProviderOpenAI {
			oc.TTSVoice = cfg.TTSVoice
		}
		c, err := openai.NewClient(log, oc)
		if err != nil {
			return fail(fmt.Errorf("init openai: %w", err))
		}
		cl.OpenAI = c
	}

	// Vertex serves text generation and, staged through the bucket, video.
	if cfg.TextGenProvider == ProviderVertex || cfg.VideoProvider == ProviderVertex {
		var stager vertex.Stager
		if media.Bucket != nil {
			stager = media.Bucket
		} else if cfg.VideoProvider == ProviderVertex {
			return fail(fmt.Errorf("VIDEO_PROVIDER=vertex requires MEDIA_STORE=gcs or gcs_emulator"))
		}
		c, err := vertex.NewClient(ctx, log, vertex.ConfigFromEnv(cfg.VertexProjectID), stager)
		if err != nil {
			return fail(fmt.Errorf("init vertex: %w", err))
		}
		cl.Vertex = c
	}

	if cfg.VideoProvider == ProviderGemini {
		gc, err := gemini.ConfigFromEnv()
		if err != nil {
			return fail(fmt.Errorf("init gemini: %w", err))
		}
		c, err := gemini.NewClient(log, gc)
		if err != nil {
			return fail(fmt.Errorf("init gemini: %w", err))
		}
		cl.Gemini = c
	}

	cl.Tools = localmedia.New(log, localmedia.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		SofficePath: cfg.SofficePath,
	})
	if err := cl.Tools.AssertReady(ctx); err != nil {
		// Jobs fail at their media stage instead; the API still serves reads.
		log.Warn("media tools unavailable", "error", err)
	}

	caps := Capabilities{Tools: cl.Tools}
	var err error
	if caps.TextGen, err = selectTextGenerator(cfg, cl); err != nil {
		return fail(err)
	}
	if caps.Video, err = selectVideoUnderstanding(cfg, cl); err != nil {
		return fail(err)
	}
	if caps.Speech, err = selectSpeech(log, cfg, cl); err != nil {
		return fail(err)
	}
	if caps.HTML, err = selectHTMLRenderer(log, cfg, &cl); err != nil {
		return fail(err)
	}
	return cl, caps, nil
}

func selectTextGenerator(cfg Config, cl Clients) (content.TextGenerator, error) {
	metrics := observability.Current()
	switch cfg.TextGenProvider {
	case ProviderOpenAI:
		metrics.ObserveBootstrap("textgen", ProviderOpenAI, "success", "none")
		return cl.OpenAI, nil
	case ProviderVertex:
		metrics.ObserveBootstrap("textgen", ProviderVertex, "success", "none")
		return cl.Vertex, nil
	}
	metrics.ObserveBootstrap("textgen", cfg.TextGenProvider, "error", "invalid_mode")
	return nil, fmt.Errorf("unsupported TEXTGEN_PROVIDER %q", cfg.TextGenProvider)
}

func selectVideoUnderstanding(cfg Config, cl Clients) (content.VideoUnderstanding, error) {
	metrics := observability.Current()
	switch cfg.VideoProvider {
	case ProviderGemini:
		metrics.ObserveBootstrap("video", ProviderGemini, "success", "none")
		return cl.Gemini, nil
	case ProviderVertex:
		metrics.ObserveBootstrap("video", ProviderVertex, "success", "none")
		return cl.Vertex, nil
	}
	metrics.ObserveBootstrap("video", cfg.VideoProvider, "error", "invalid_mode")
	return nil, fmt.Errorf("unsupported VIDEO_PROVIDER %q", cfg.VideoProvider)
}

func selectSpeech(log *logger.Logger, cfg Config, cl Clients) (content.SpeechSynthesizer, error) {
	metrics := observability.Current()
	switch cfg.TTSProvider {
	case ProviderOpenAI:
		metrics.ObserveBootstrap("tts", ProviderOpenAI, "success", "none")
		return cl.OpenAI, nil
	case ProviderEdge:
		s := edgetts.New(log, edgetts.Config{Voice: cfg.TTSVoice})
		if err := s.AssertReady(); err != nil {
			log.Warn("edge-tts unavailable", "error", err)
		}
		metrics.ObserveBootstrap("tts", ProviderEdge, "success", "none")
		return s, nil
	}
	metrics.ObserveBootstrap("tts", cfg.TTSProvider, "error", "invalid_mode")
	return nil, fmt.Errorf("unsupported TTS_PROVIDER %q", cfg.TTSProvider)
}

func selectHTMLRenderer(log *logger.Logger, cfg Config, cl *Clients) (content.HTMLRenderer, error) {
	metrics := observability.Current()
	switch cfg.RenderBackend {
	case RenderChromedp:
		exec := cfg.ChromePath
		if exec == "" {
			exec = browser.FindChrome()
		}
		if exec == "" {
			log.Warn("no Chrome binary on PATH; relying on chromedp lookup")
		}
		cl.Browser = browser.New(log, browser.Config{ExecPath: exec, NoSandbox: cfg.ChromeNoSandbox})
		metrics.ObserveBootstrap("render", RenderChromedp, "success", "none")
		return cl.Browser, nil
	case RenderRaster:
		r, err := raster.New(log)
		if err != nil {
			metrics.ObserveBootstrap("render", RenderRaster, "error", "connect_failed")
			return nil, fmt.Errorf("init raster renderer: %w", err)
		}
		metrics.ObserveBootstrap("render", RenderRaster, "success", "none")
		return r, nil
	}
	metrics.ObserveBootstrap("render", cfg.RenderBackend, "error", "invalid_mode")
	return nil, fmt.Errorf("unsupported RENDER_BACKEND %q", cfg.RenderBackend)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Vertex != nil {
		_ = c.Vertex.Close()
	}
	if c.Firestore != nil {
		_ = c.Firestore.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
