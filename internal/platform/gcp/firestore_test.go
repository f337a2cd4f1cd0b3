package gcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func TestPatchModules(t *testing.T) {
	mods := []interface{}{
		map[string]interface{}{fieldModuleID: "m1", fieldTitle: "Intro"},
		"garbage",
		map[string]interface{}{fieldModuleID: "m2", fieldTitle: "Cells"},
	}
	if !patchModules(mods, "m2", map[string]interface{}{fieldMediaURL: "u", fieldStatus: "ready_for_review"}) {
		t.Fatalf("m2 should be found")
	}
	m2 := mods[2].(map[string]interface{})
	if m2[fieldMediaURL] != "u" || m2[fieldStatus] != "ready_for_review" || m2[fieldTitle] != "Cells" {
		t.Fatalf("patched entry: got %v", m2)
	}
	if _, touched := mods[0].(map[string]interface{})[fieldMediaURL]; touched {
		t.Fatalf("sibling module must not change")
	}
	if patchModules(mods, "missing", map[string]interface{}{fieldStatus: "x"}) {
		t.Fatalf("missing module should report false")
	}
}

func TestUpsertModule(t *testing.T) {
	mods := upsertModule(nil, &course.Module{ID: "m1", Title: "Intro", ResourceType: "video", Status: course.ModuleStatusProcessing})
	mods = upsertModule(mods, &course.Module{ID: "m2", Title: "Cells", Status: course.ModuleStatusProcessing})
	if len(mods) != 2 {
		t.Fatalf("append: want=2 got=%d", len(mods))
	}
	patchModules(mods, "m1", map[string]interface{}{
		fieldStatus:            course.ModuleStatusError,
		fieldMediaURL:          "u",
		fieldNotesURL:          "https://v/m1.pdf",
		fieldInteractionPoints: []interface{}{map[string]interface{}{"question_text": "old?"}},
		fieldStudyMaterials:    map[string]interface{}{"flashcards": []interface{}{map[string]interface{}{"card_id": "card_1"}}},
	})

	mods = upsertModule(mods, &course.Module{ID: "m1", Title: "Intro v2", ResourceType: "document", Status: course.ModuleStatusProcessing})
	if len(mods) != 2 {
		t.Fatalf("reset must not append: got=%d", len(mods))
	}
	m1 := mods[0].(map[string]interface{})
	if m1[fieldTitle] != "Intro v2" || m1[fieldStatus] != course.ModuleStatusProcessing || m1[fieldMediaURL] != "u" {
		t.Fatalf("reset entry: got %v", m1)
	}
	got, err := moduleFromMap("c1", m1)
	if err != nil {
		t.Fatalf("moduleFromMap: %v", err)
	}
	if got.NotesURL != "" || len(got.InteractionPoints.Data()) != 0 || !got.Materials.Data().Empty() {
		t.Fatalf("previous analysis must be cleared: got %+v", got)
	}
}

func TestModuleFromMapRoundTripsAnalysis(t *testing.T) {
	points := []course.InteractionPoint{{Timestamp: 12.5, QuestionText: "Q", Options: []string{"A", "B"}, CorrectOption: "B"}}
	mat := course.StudyMaterials{
		SmartNotes: []course.SmartNote{{NoteID: "note_1", Text: "n"}},
		MindMap:    &course.MindMapNode{ID: course.MindMapRootID, Label: "Root"},
	}
	p, err := toFirestoreValue(points)
	if err != nil {
		t.Fatalf("toFirestoreValue: %v", err)
	}
	m, err := toFirestoreValue(mat)
	if err != nil {
		t.Fatalf("toFirestoreValue: %v", err)
	}
	got, err := moduleFromMap("c1", map[string]interface{}{
		fieldModuleID:          "m1",
		fieldTitle:             "Intro",
		fieldStatus:            "processing",
		fieldMediaURL:          "https://v",
		fieldInteractionPoints: p,
		fieldStudyMaterials:    m,
	})
	if err != nil {
		t.Fatalf("moduleFromMap: %v", err)
	}
	if got.ID != "m1" || got.CourseID != "c1" || got.VideoURL != "https://v" {
		t.Fatalf("module: got %+v", got)
	}
	if ps := got.InteractionPoints.Data(); len(ps) != 1 || ps[0].CorrectOption != "B" || ps[0].Timestamp != 12.5 {
		t.Fatalf("points: got %+v", ps)
	}
	if md := got.Materials.Data(); md.MindMap == nil || md.MindMap.ID != course.MindMapRootID || len(md.SmartNotes) != 1 {
		t.Fatalf("materials: got %+v", md)
	}
}

func TestFirestoreEmulatorStores(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := NewFirestoreClient(ctx, "coursemedia-test")
	if err != nil {
		t.Fatalf("NewFirestoreClient: %v", err)
	}
	defer client.Close()
	suffix := time.Now().UnixNano()

	statuses := NewFirestoreStatusStore(logger.Nop(), client, fmt.Sprintf("processing_logs_%d", suffix))
	if _, err := statuses.GetStatus(ctx, "nope"); !errors.Is(err, course.ErrStatusNotFound) {
		t.Fatalf("GetStatus missing: want ErrStatusNotFound got %v", err)
	}
	st := &course.ProcessingStatus{JobID: "m1", Stage: course.StageRendering, Status: course.StatusProcessing, Progress: 40, UpdatedAt: time.Now().UTC()}
	if err := statuses.UpsertStatus(ctx, st); err != nil {
		t.Fatalf("UpsertStatus: %v", err)
	}
	got, err := statuses.GetStatus(ctx, "m1")
	if err != nil || got.Progress != 40 || got.Stage != course.StageRendering {
		t.Fatalf("GetStatus: got %+v err=%v", got, err)
	}

	coll := fmt.Sprintf("courses_%d", suffix)
	if _, err := client.Collection(coll).Doc("c1").Set(ctx, map[string]interface{}{
		"course_id": "c1",
		modulesField: []interface{}{
			map[string]interface{}{fieldModuleID: "m1", fieldTitle: "Intro", fieldStatus: "processing"},
		},
	}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	courses := NewFirestoreCourses(logger.Nop(), client, coll)
	if err := courses.SetModuleVideoURL(ctx, "c1", "m1", "https://v"); err != nil {
		t.Fatalf("SetModuleVideoURL: %v", err)
	}
	if err := courses.SetModuleState(ctx, "c1", "m1", course.ModuleStatusReadyForReview); err != nil {
		t.Fatalf("SetModuleState: %v", err)
	}
	m, err := courses.GetModule(ctx, "c1", "m1")
	if err != nil || m == nil {
		t.Fatalf("GetModule: %v %v", m, err)
	}
	if m.VideoURL != "https://v" || m.Status != course.ModuleStatusReadyForReview {
		t.Fatalf("module: got %+v", m)
	}
	if missing, err := courses.GetModule(ctx, "c1", "m9"); err != nil || missing != nil {
		t.Fatalf("GetModule unknown: want nil,nil got %v %v", missing, err)
	}
	if err := courses.SetModuleState(ctx, "c1", "m9", "error"); !errors.Is(err, errModuleNotInCourse) {
		t.Fatalf("patch unknown module: want errModuleNotInCourse got %v", err)
	}

	if err := courses.Upsert(ctx, &course.Module{ID: "m2", CourseID: "c2", Title: "New", Status: course.ModuleStatusProcessing}); err != nil {
		t.Fatalf("Upsert new course: %v", err)
	}
	list, err := courses.ListByCourse(ctx, "c2")
	if err != nil || len(list) != 1 || list[0].Title != "New" {
		t.Fatalf("ListByCourse: got %v err=%v", list, err)
	}
}
