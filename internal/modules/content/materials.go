package content

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/llmjson"
)

const maxMindMapDepth = 6

// DecodeAnalysis turns a recovered model object into interaction points and
// study materials. Entries that cannot satisfy the invariants are dropped:
// every kept point has at least two options and a correct option among them.
func DecodeAnalysis(obj map[string]any, videoDuration float64) Analysis {
	return Analysis{
		InteractionPoints: decodeInteractionPoints(obj, videoDuration),
		Materials: course.StudyMaterials{
			SmartNotes: decodeSmartNotes(obj),
			Flashcards: decodeFlashcards(obj),
			MindMap:    decodeMindMap(obj),
		},
	}
}

func decodeInteractionPoints(obj map[string]any, videoDuration float64) []course.InteractionPoint {
	raw := llmjson.Objects(obj, "interaction_points", "interactions", "quizzes", "questions")
	if raw == nil && looksLikePoint(obj) {
		// A bare point object, the shape of the older single-list prompt.
		raw = []map[string]any{obj}
	}
	seen := map[int64]bool{}
	out := make([]course.InteractionPoint, 0, len(raw))
	for _, it := range raw {
		p, ok := decodePoint(it)
		if !ok {
			continue
		}
		if videoDuration > 0 && p.Timestamp > videoDuration {
			continue
		}
		key := int64(math.Round(p.Timestamp * 1000))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func looksLikePoint(m map[string]any) bool {
	_, a := m["interaction_question_text"]
	_, b := m["question_text"]
	return a || b
}

func decodePoint(m map[string]any) (course.InteractionPoint, bool) {
	ts, ok := llmjson.Float(m, "timestamp_seconds", "timestamp", "interaction_timestamp_seconds", "time")
	if !ok || ts < 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return course.InteractionPoint{}, false
	}
	q := llmjson.String(m, "question_text", "question", "interaction_question_text")
	if q == "" {
		return course.InteractionPoint{}, false
	}
	opts := cleanOptions(llmjson.Strings(m, "options", "interaction_options_list", "choices"))
	if len(opts) < 2 {
		return course.InteractionPoint{}, false
	}
	correct, ok := resolveCorrect(llmjson.String(m, "correct_option", "answer", "interaction_correct_option"), opts)
	if !ok {
		return course.InteractionPoint{}, false
	}
	return course.InteractionPoint{
		Timestamp:     ts,
		QuestionText:  q,
		Options:       opts,
		CorrectOption: correct,
		HintText:      llmjson.String(m, "hint_text", "hint", "interaction_hint_text"),
	}, true
}

// cleanOptions trims, drops blanks and drops exact duplicates, keeping order.
func cleanOptions(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// resolveCorrect maps the model's answer onto an element of opts. It accepts
// the option text (case and space insensitive), a letter ("B", "b)") or a
// 1-based index.
func resolveCorrect(answer string, opts []string) (string, bool) {
	a := strings.TrimSpace(answer)
	if a == "" {
		return "", false
	}
	for _, o := range opts {
		if o == a {
			return o, true
		}
	}
	for _, o := range opts {
		if strings.EqualFold(strings.Join(strings.Fields(o), " "), strings.Join(strings.Fields(a), " ")) {
			return o, true
		}
	}
	letter := strings.TrimRight(strings.ToUpper(a), ").:")
	if len(letter) == 1 && letter[0] >= 'A' && letter[0] <= 'Z' {
		if i := int(letter[0] - 'A'); i < len(opts) {
			return opts[i], true
		}
	}
	if n, err := strconv.Atoi(a); err == nil && n >= 1 && n <= len(opts) {
		return opts[n-1], true
	}
	return "", false
}

func decodeSmartNotes(obj map[string]any) []course.SmartNote {
	raw := llmjson.Objects(obj, "smart_notes", "notes")
	out := make([]course.SmartNote, 0, len(raw))
	for _, it := range raw {
		text := llmjson.String(it, "text", "note", "content")
		if text == "" {
			continue
		}
		ts, _ := llmjson.Float(it, "timestamp_seconds", "timestamp", "time")
		if ts < 0 {
			ts = 0
		}
		out = append(out, course.SmartNote{
			NoteID:    fmt.Sprintf("note_%d", len(out)+1),
			Timestamp: ts,
			Text:      text,
		})
	}
	return out
}

func decodeFlashcards(obj map[string]any) []course.Flashcard {
	raw := llmjson.Objects(obj, "flashcards", "cards")
	out := make([]course.Flashcard, 0, len(raw))
	for _, it := range raw {
		front := llmjson.String(it, "front", "term", "question")
		back := llmjson.String(it, "back", "definition", "answer")
		if front == "" || back == "" {
			continue
		}
		out = append(out, course.Flashcard{
			CardID: fmt.Sprintf("card_%d", len(out)+1),
			Front:  front,
			Back:   back,
		})
	}
	return out
}

// decodeMindMap rebuilds the tree with generated ids. The root id is always
// course.MindMapRootID and depth is bounded.
func decodeMindMap(obj map[string]any) *course.MindMapNode {
	raw, ok := obj["mind_map"].(map[string]any)
	if !ok {
		return nil
	}
	label := llmjson.String(raw, "label", "title", "topic")
	if label == "" {
		return nil
	}
	next := 0
	root := course.MindMapNode{ID: course.MindMapRootID, Label: label}
	root.Children = decodeMindMapChildren(raw, 1, &next)
	return &root
}

func decodeMindMapChildren(parent map[string]any, depth int, next *int) []course.MindMapNode {
	children := []course.MindMapNode{}
	if depth > maxMindMapDepth {
		return children
	}
	for _, c := range llmjson.Objects(parent, "children") {
		label := llmjson.String(c, "label", "title", "topic")
		if label == "" {
			continue
		}
		*next++
		node := course.MindMapNode{ID: fmt.Sprintf("n%d", *next), Label: label}
		node.Children = decodeMindMapChildren(c, depth+1, next)
		children = append(children, node)
	}
	return children
}
