package course

// InteractionPoint is a quiz checkpoint at a position in the module video.
// CorrectOption is always one of Options.
type InteractionPoint struct {
	Timestamp     float64  `json:"timestamp"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
	HintText      string   `json:"hint_text,omitempty"`
}

type SmartNote struct {
	NoteID    string  `json:"note_id"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

type Flashcard struct {
	CardID string `json:"card_id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
}

// MindMapNode forms a tree rooted at MindMapRootID.
type MindMapNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Children []MindMapNode `json:"children"`
}

const MindMapRootID = "root"

type StudyMaterials struct {
	SmartNotes []SmartNote  `json:"smart_notes"`
	Flashcards []Flashcard  `json:"flashcards"`
	MindMap    *MindMapNode `json:"mind_map,omitempty"`
}

func (m StudyMaterials) Empty() bool {
	return len(m.SmartNotes) == 0 && len(m.Flashcards) == 0 && m.MindMap == nil
}
