package course

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemedia-backend/internal/domain/course"
)

func TestModuleRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewModuleRepo(db, testutil.Logger(t))

	if err := repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro", ResourceType: types.ResourceDocument, Status: types.ModuleStatusProcessing}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &types.Module{ID: "m2", CourseID: "c1", Title: "Cells", Status: types.ModuleStatusProcessing}); err != nil {
		t.Fatalf("Upsert m2: %v", err)
	}

	if err := repo.SetModuleVideoURL(ctx, "c1", "m1", "https://v/m1.mp4"); err != nil {
		t.Fatalf("SetModuleVideoURL: %v", err)
	}
	if err := repo.SetModuleNotesURL(ctx, "c1", "m1", "https://v/m1.pdf"); err != nil {
		t.Fatalf("SetModuleNotesURL: %v", err)
	}
	points := []types.InteractionPoint{{Timestamp: 30, QuestionText: "Q?", Options: []string{"A", "B"}, CorrectOption: "A"}}
	mats := types.StudyMaterials{Flashcards: []types.Flashcard{{CardID: "card_1", Front: "f", Back: "b"}}}
	if err := repo.SetModuleAnalysis(ctx, "c1", "m1", points, mats); err != nil {
		t.Fatalf("SetModuleAnalysis: %v", err)
	}
	if err := repo.SetModuleState(ctx, "c1", "m1", types.ModuleStatusReadyForReview); err != nil {
		t.Fatalf("SetModuleState: %v", err)
	}

	m, err := repo.GetModule(ctx, "c1", "m1")
	if err != nil || m == nil {
		t.Fatalf("GetModule: m=%v err=%v", m, err)
	}
	if m.VideoURL != "https://v/m1.mp4" || m.NotesURL != "https://v/m1.pdf" || m.Status != types.ModuleStatusReadyForReview {
		t.Fatalf("module: got %+v", m)
	}
	if got := m.InteractionPoints.Data(); len(got) != 1 || got[0].CorrectOption != "A" {
		t.Fatalf("points: got %+v", got)
	}
	if got := m.Materials.Data(); len(got.Flashcards) != 1 || got.Flashcards[0].CardID != "card_1" {
		t.Fatalf("materials: got %+v", got)
	}

	sibling, _ := repo.GetModule(ctx, "c1", "m2")
	if sibling == nil || sibling.VideoURL != "" || sibling.Status != types.ModuleStatusProcessing {
		t.Fatalf("sibling module changed: %+v", sibling)
	}

	list, err := repo.ListByCourse(ctx, "c1")
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByCourse: n=%d err=%v", len(list), err)
	}
}

func TestModuleRepoMissing(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewModuleRepo(db, testutil.Logger(t))

	if m, err := repo.GetModule(ctx, "c1", "nope"); m != nil || err != nil {
		t.Fatalf("GetModule missing: want nil,nil got %v,%v", m, err)
	}
	if err := repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro", Status: types.ModuleStatusProcessing}); err != nil {
		t.Fatal(err)
	}
	if m, _ := repo.GetModule(ctx, "other-course", "m1"); m != nil {
		t.Fatalf("module must be scoped to its course")
	}
	if err := repo.SetModuleState(ctx, "c1", "nope", types.ModuleStatusError); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("update missing: want ErrModuleNotFound got %v", err)
	}
}

func TestModuleRepoUpsertResets(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	repo := NewModuleRepo(tx, testutil.Logger(t))

	_ = repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro", Status: types.ModuleStatusProcessing})
	_ = repo.SetModuleState(ctx, "c1", "m1", types.ModuleStatusError)
	if err := repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro v2", SourceFilename: "v2.pdf", Status: types.ModuleStatusProcessing}); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	m, _ := repo.GetModule(ctx, "c1", "m1")
	if m.Title != "Intro v2" || m.Status != types.ModuleStatusProcessing || m.SourceFilename != "v2.pdf" {
		t.Fatalf("reset: got %+v", m)
	}
}

func TestModuleRepoUpsertClearsPreviousAnalysis(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	repo := NewModuleRepo(tx, testutil.Logger(t))

	_ = repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro", ResourceType: types.ResourceVideo, Status: types.ModuleStatusProcessing})
	_ = repo.SetModuleVideoURL(ctx, "c1", "m1", "https://v/old.mp4")
	_ = repo.SetModuleNotesURL(ctx, "c1", "m1", "https://v/old.pdf")
	old := []types.InteractionPoint{{Timestamp: 10, QuestionText: "old?", Options: []string{"A", "B"}, CorrectOption: "A"}}
	_ = repo.SetModuleAnalysis(ctx, "c1", "m1", old, types.StudyMaterials{Flashcards: []types.Flashcard{{CardID: "card_1"}}})
	_ = repo.SetModuleState(ctx, "c1", "m1", types.ModuleStatusReadyForReview)

	if err := repo.Upsert(ctx, &types.Module{ID: "m1", CourseID: "c1", Title: "Intro", ResourceType: types.ResourceVideo, Status: types.ModuleStatusProcessing}); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	_ = repo.SetModuleVideoURL(ctx, "c1", "m1", "https://v/new.mp4")
	_ = repo.SetModuleState(ctx, "c1", "m1", types.ModuleStatusError)

	m, err := repo.GetModule(ctx, "c1", "m1")
	if err != nil || m == nil {
		t.Fatalf("GetModule: m=%v err=%v", m, err)
	}
	if m.VideoURL != "https://v/new.mp4" || m.Status != types.ModuleStatusError {
		t.Fatalf("module: got %+v", m)
	}
	if got := m.InteractionPoints.Data(); len(got) != 0 {
		t.Fatalf("points from the previous run survived: %+v", got)
	}
	if !m.Materials.Data().Empty() || m.NotesURL != "" {
		t.Fatalf("materials or notes from the previous run survived: notes=%q materials=%+v", m.NotesURL, m.Materials.Data())
	}
}

func TestStatusRepoUpsertOverwrites(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewStatusRepo(db, testutil.Logger(t))

	if _, err := repo.GetStatus(ctx, "m1"); !errors.Is(err, types.ErrStatusNotFound) {
		t.Fatalf("GetStatus missing: want ErrStatusNotFound got %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpsertStatus(ctx, &types.ProcessingStatus{JobID: "m1", Stage: types.StageConverting, Status: types.StatusProcessing, Progress: 20, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertStatus: %v", err)
	}
	if err := repo.UpsertStatus(ctx, &types.ProcessingStatus{JobID: "m1", Stage: types.StageError, Status: types.StatusError, Progress: 20, Error: "render failed", UpdatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("UpsertStatus overwrite: %v", err)
	}
	st, err := repo.GetStatus(ctx, "m1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.Stage != types.StageError || st.Status != types.StatusError || st.Error != "render failed" {
		t.Fatalf("status: got %+v", st)
	}
}

func TestStatusRepoConcurrentJobs(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewStatusRepo(db, testutil.Logger(t))

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for p := 0; p <= 90; p += 10 {
				errs <- repo.UpsertStatus(ctx, &types.ProcessingStatus{JobID: id, Stage: types.StageRendering, Status: types.StatusProcessing, Progress: p, UpdatedAt: time.Now().UTC()})
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpsertStatus: %v", err)
		}
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		st, err := repo.GetStatus(ctx, id)
		if err != nil || st.Progress != 90 {
			t.Fatalf("job %s: want progress=90 got %+v err=%v", id, st, err)
		}
	}
}
