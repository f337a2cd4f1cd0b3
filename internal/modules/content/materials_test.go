package content

import (
	"testing"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/llmjson"
)

func TestDecodeAnalysisKeepsOnlyValidPoints(t *testing.T) {
	obj, err := llmjson.Parse(`{"interaction_points": [
		{"timestamp_seconds": 10, "question_text": "Q1", "options": ["Alpha", "Beta"], "correct_option": "alpha"},
		{"timestamp_seconds": 20, "question_text": "Q2", "options": ["Only one"], "correct_option": "Only one"},
		{"timestamp_seconds": 30, "question_text": "Q3", "options": ["X", "Y"], "correct_option": "Z"},
		{"timestamp_seconds": "40.5", "question_text": "Q4", "options": ["X", "Y", "X"], "correct_option": "2"},
		{"timestamp_seconds": 10, "question_text": "dup", "options": ["A", "B"], "correct_option": "A"},
		{"timestamp_seconds": -1, "question_text": "neg", "options": ["A", "B"], "correct_option": "A"},
		{"timestamp_seconds": 500, "question_text": "late", "options": ["A", "B"], "correct_option": "A"},
		{"question_text": "no time", "options": ["A", "B"], "correct_option": "A"}
	]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := DecodeAnalysis(obj, 120).InteractionPoints
	if len(got) != 2 {
		t.Fatalf("points: want=2 got=%d (%+v)", len(got), got)
	}
	for _, p := range got {
		if len(p.Options) < 2 {
			t.Fatalf("point %q has fewer than two options", p.QuestionText)
		}
		if !contains(p.Options, p.CorrectOption) {
			t.Fatalf("point %q: correct option %q not in %v", p.QuestionText, p.CorrectOption, p.Options)
		}
	}
	if got[0].QuestionText != "Q1" || got[0].CorrectOption != "Alpha" {
		t.Fatalf("first: got %+v", got[0])
	}
	if got[1].Timestamp != 40.5 || got[1].CorrectOption != "Y" || len(got[1].Options) != 2 {
		t.Fatalf("second: got %+v", got[1])
	}
}

func TestDecodeAnalysisClockTimestamps(t *testing.T) {
	obj, err := llmjson.Parse(`{"interaction_points": [
		{"timestamp_seconds": "01:30", "question_text": "Q1", "options": ["A", "B"], "correct_option": "A"},
		{"timestamp_seconds": "2:05", "question_text": "Q2", "options": ["A", "B"], "correct_option": "B"},
		{"timestamp_seconds": "12abc", "question_text": "junk", "options": ["A", "B"], "correct_option": "A"},
		{"timestamp_seconds": "45s", "question_text": "unit", "options": ["A", "B"], "correct_option": "A"}
	]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := DecodeAnalysis(obj, 300).InteractionPoints
	if len(got) != 2 {
		t.Fatalf("points: want=2 got=%d (%+v)", len(got), got)
	}
	if got[0].Timestamp != 90 || got[0].QuestionText != "Q1" {
		t.Fatalf("first: want=90s got %+v", got[0])
	}
	if got[1].Timestamp != 125 || got[1].QuestionText != "Q2" {
		t.Fatalf("second: want=125s got %+v", got[1])
	}
}

func TestDecodeAnalysisLegacySinglePoint(t *testing.T) {
	obj := map[string]any{
		"interaction_timestamp_seconds": 15.0,
		"interaction_question_text":     "What is 2+2?",
		"interaction_options_list":      []any{"3", "4"},
		"interaction_correct_option":    "4",
		"interaction_hint_text":         "Count.",
	}
	got := DecodeAnalysis(obj, 0).InteractionPoints
	if len(got) != 1 || got[0].CorrectOption != "4" || got[0].HintText != "Count." {
		t.Fatalf("legacy point: got %+v", got)
	}
}

func TestDecodeAnalysisMaterials(t *testing.T) {
	obj, err := llmjson.Parse(`{
		"smart_notes": [{"timestamp_seconds": 5, "text": "One"}, {"text": ""}, {"timestamp": 9, "note": "Two"}],
		"flashcards": [{"front": "F", "back": "B"}, {"front": "no back"}],
		"mind_map": {"label": "Root", "children": [{"label": "A", "children": [{"label": "A1"}]}, {"label": ""}, {"label": "B"}]}
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := DecodeAnalysis(obj, 0).Materials
	if len(m.SmartNotes) != 2 || m.SmartNotes[0].NoteID != "note_1" || m.SmartNotes[1].NoteID != "note_2" || m.SmartNotes[1].Timestamp != 9 {
		t.Fatalf("notes: got %+v", m.SmartNotes)
	}
	if len(m.Flashcards) != 1 || m.Flashcards[0].CardID != "card_1" {
		t.Fatalf("cards: got %+v", m.Flashcards)
	}
	root := m.MindMap
	if root == nil || root.ID != course.MindMapRootID || root.Label != "Root" || len(root.Children) != 2 {
		t.Fatalf("mind map: got %+v", root)
	}
	ids := map[string]bool{root.ID: true}
	var walk func(n course.MindMapNode)
	walk = func(n course.MindMapNode) {
		for _, c := range n.Children {
			if ids[c.ID] {
				t.Fatalf("duplicate node id %s", c.ID)
			}
			ids[c.ID] = true
			walk(c)
		}
	}
	walk(*root)
	if len(ids) != 4 {
		t.Fatalf("node ids: want=4 got=%d", len(ids))
	}
}

func TestDecodeAnalysisMindMapDepthBounded(t *testing.T) {
	leaf := map[string]any{"label": "leaf"}
	node := leaf
	for i := 0; i < 20; i++ {
		node = map[string]any{"label": "lvl", "children": []any{node}}
	}
	m := DecodeAnalysis(map[string]any{"mind_map": node}, 0).Materials.MindMap
	depth := 0
	for n := m; n != nil && len(n.Children) > 0; n = &n.Children[0] {
		depth++
	}
	if depth > maxMindMapDepth {
		t.Fatalf("depth: want<=%d got=%d", maxMindMapDepth, depth)
	}
}

func TestDecodeAnalysisEmpty(t *testing.T) {
	a := DecodeAnalysis(map[string]any{}, 0)
	if len(a.InteractionPoints) != 0 || !a.Materials.Empty() {
		t.Fatalf("want empty analysis got %+v", a)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
