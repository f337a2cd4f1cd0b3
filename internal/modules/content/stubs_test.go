package content

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
	"gorm.io/datatypes"
)

type memStatusStore struct {
	mu      sync.Mutex
	records map[string]course.ProcessingStatus
	history []course.ProcessingStatus
	failAll bool
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{records: map[string]course.ProcessingStatus{}}
}

func (s *memStatusStore) UpsertStatus(ctx context.Context, st *course.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("status store down")
	}
	s.records[st.JobID] = *st
	s.history = append(s.history, *st)
	return nil
}

func (s *memStatusStore) GetStatus(ctx context.Context, jobID string) (*course.ProcessingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.records[jobID]
	if !ok {
		return nil, course.ErrStatusNotFound
	}
	return &st, nil
}

func (s *memStatusStore) last(jobID string) course.ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[jobID]
}

func (s *memStatusStore) progressHistory(jobID string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, h := range s.history {
		if h.JobID == jobID {
			out = append(out, h.Progress)
		}
	}
	return out
}

type fakeStore struct {
	mu    sync.Mutex
	keys  []string
	fail  error
	bytes map[string]int64
}

func (f *fakeStore) Store(ctx context.Context, localPath, key, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	fi, err := os.Stat(localPath)
	if err != nil {
		return "", err
	}
	if f.bytes == nil {
		f.bytes = map[string]int64{}
	}
	f.bytes[key] = fi.Size()
	f.keys = append(f.keys, key)
	return "mem://" + key, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

type fakeCourses struct {
	mu            sync.Mutex
	modules       map[string]*course.Module
	analysisCalls int
}

func newFakeCourses(courseID string, moduleIDs ...string) *fakeCourses {
	f := &fakeCourses{modules: map[string]*course.Module{}}
	for _, id := range moduleIDs {
		f.modules[id] = &course.Module{ID: id, CourseID: courseID, Title: id, Status: course.ModuleStatusProcessing}
	}
	return f
}

func (f *fakeCourses) get(courseID, moduleID string) *course.Module {
	m, ok := f.modules[moduleID]
	if !ok || m.CourseID != courseID {
		return nil
	}
	return m
}

func (f *fakeCourses) GetModule(ctx context.Context, courseID, moduleID string) (*course.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.get(courseID, moduleID)
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeCourses) update(courseID, moduleID string, fn func(m *course.Module)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.get(courseID, moduleID)
	if m == nil {
		return errors.New("module not found")
	}
	fn(m)
	return nil
}

func (f *fakeCourses) SetModuleSourceURL(ctx context.Context, courseID, moduleID, url string) error {
	return f.update(courseID, moduleID, func(m *course.Module) { m.SourceURL = url })
}

func (f *fakeCourses) SetModuleVideoURL(ctx context.Context, courseID, moduleID, url string) error {
	return f.update(courseID, moduleID, func(m *course.Module) { m.VideoURL = url })
}

func (f *fakeCourses) SetModuleNotesURL(ctx context.Context, courseID, moduleID, url string) error {
	return f.update(courseID, moduleID, func(m *course.Module) { m.NotesURL = url })
}

func (f *fakeCourses) SetModuleAnalysis(ctx context.Context, courseID, moduleID string, points []course.InteractionPoint, materials course.StudyMaterials) error {
	return f.update(courseID, moduleID, func(m *course.Module) {
		f.analysisCalls++
		m.InteractionPoints = datatypes.NewJSONType(points)
		m.Materials = datatypes.NewJSONType(materials)
	})
}

func (f *fakeCourses) SetModuleState(ctx context.Context, courseID, moduleID, state string) error {
	return f.update(courseID, moduleID, func(m *course.Module) { m.Status = state })
}

func (f *fakeCourses) module(moduleID string) course.Module {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.modules[moduleID]
}

type stubGen struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
}

func (g *stubGen) Generate(ctx context.Context, prompt string, structured bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.out, g.err
}

func (g *stubGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type stubTTS struct {
	mu      sync.Mutex
	err     error
	written []string
}

func (s *stubTTS) Synthesize(ctx context.Context, text, language, outPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, outPath)
	return os.WriteFile(outPath, []byte("ID3-fake-audio:"+text), 0o644)
}

type stubHTML struct {
	mu       sync.Mutex
	height   int
	err      error
	pdfErr   error
	images   []string
	pdfs     []string
	lastHTML string
}

func (s *stubHTML) RenderToImage(ctx context.Context, html string, w, h int, outPath string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Snapshot{}, s.err
	}
	s.lastHTML = html
	s.images = append(s.images, outPath)
	if err := os.WriteFile(outPath, []byte("png"), 0o644); err != nil {
		return Snapshot{}, err
	}
	height := s.height
	if height < h {
		height = h
	}
	return Snapshot{Path: outPath, Width: w, Height: height}, nil
}

func (s *stubHTML) RenderToPDF(ctx context.Context, html string, outPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pdfErr != nil {
		return s.pdfErr
	}
	s.pdfs = append(s.pdfs, outPath)
	return os.WriteFile(outPath, []byte("%PDF-1.4 fake"), 0o644)
}

type stubProbe struct{ d float64 }

func (p stubProbe) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return p.d, nil
}

type stubComp struct {
	mu    sync.Mutex
	err   error
	specs []ScrollSpec
}

func (c *stubComp) ComposeScrolling(ctx context.Context, spec ScrollSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs = append(c.specs, spec)
	if c.err != nil {
		return c.err
	}
	for _, p := range []string{spec.ImagePath, spec.AudioPath} {
		if _, err := os.Stat(p); err != nil {
			return err
		}
	}
	return os.WriteFile(spec.OutPath, []byte("mp4"), 0o644)
}

type stubVU struct {
	mu         sync.Mutex
	states     []VideoState // consumed in order; the last one repeats
	analysis   string
	uploads    int
	statusHits int
	released   []string
	uploadErr  error
}

func (v *stubVU) Upload(ctx context.Context, path, mimeType string) (VideoHandle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.uploadErr != nil {
		return VideoHandle{}, v.uploadErr
	}
	if _, err := os.Stat(path); err != nil {
		return VideoHandle{}, err
	}
	v.uploads++
	return VideoHandle{Name: "files/stub", URI: "https://example.invalid/files/stub", MIMEType: mimeType}, nil
}

func (v *stubVU) Status(ctx context.Context, h VideoHandle) (VideoState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statusHits++
	if len(v.states) == 0 {
		return VideoStateActive, nil
	}
	st := v.states[0]
	if len(v.states) > 1 {
		v.states = v.states[1:]
	}
	return st, nil
}

func (v *stubVU) Analyze(ctx context.Context, h VideoHandle, prompt string, structured bool) (string, error) {
	return v.analysis, nil
}

func (v *stubVU) Release(ctx context.Context, h VideoHandle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.released = append(v.released, h.Name)
	return nil
}

// harness wires a Pipeline around stubs.
type harness struct {
	status   *memStatusStore
	reporter *StatusReporter
	store    *fakeStore
	courses  *fakeCourses
	gen      *stubGen
	tts      *stubTTS
	html     *stubHTML
	comp     *stubComp
	vu       *stubVU
	workDir  string
	pipeline *Pipeline
}

func newHarness(workDir string) *harness {
	log := logger.Nop()
	h := &harness{
		status:  newMemStatusStore(),
		store:   &fakeStore{},
		courses: newFakeCourses("c1", "m1"),
		gen:     &stubGen{out: validLectureJSON},
		tts:     &stubTTS{},
		html:    &stubHTML{height: 2400},
		comp:    &stubComp{},
		vu:      &stubVU{analysis: validAnalysisJSON},
		workDir: workDir,
	}
	h.reporter = NewStatusReporter(log, h.status, nil)
	probe := stubProbe{d: 42.5}
	conv := NewDocumentConverter(log, h.gen, nil, ConverterConfig{MaxInputChars: 1000})
	rend := NewNarratedVideoRenderer(log, h.tts, h.html, probe, h.comp, RendererConfig{WorkDir: workDir})
	an := NewVideoAnalyzer(log, h.vu, h.courses, probe, nil, AnalyzerConfig{
		PollInterval: time.Millisecond,
		Timeout:      2 * time.Second,
	})
	h.pipeline = NewPipeline(log, PipelineDeps{
		Store:     h.store,
		Status:    h.reporter,
		Courses:   h.courses,
		Converter: conv,
		Renderer:  rend,
		Analyzer:  an,
		Notes:     h.html,
	}, PipelineConfig{WorkDir: workDir})
	return h
}

const validLectureJSON = `{"title":"Photosynthesis","html_body":"<h1>Photosynthesis</h1><p>Plants turn light into sugar.</p>","narration_script":"Plants turn light into sugar. Let us see how."}`

const validAnalysisJSON = "```json\n" + `{
  "interaction_points": [
    {"timestamp_seconds": 30, "question_text": "What do plants make?", "options": ["Sugar", "Salt"], "correct_option": "Sugar", "hint_text": "Sweet"},
    {"timestamp_seconds": 12, "question_text": "What powers it?", "options": ["Light", "Sound", ""], "correct_option": "A"}
  ],
  "smart_notes": [{"timestamp_seconds": 0, "text": "Intro"}],
  "flashcards": [{"front": "Chlorophyll", "back": "Green pigment"}],
  "mind_map": {"label": "Photosynthesis", "children": [{"label": "Light"}, {"label": "Sugar", "children": [{"label": "Glucose"}]}]}
}` + "\n```"
