package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/http/response"
)

// learnerPoint is an interaction point without its answer.
type learnerPoint struct {
	Index     int      `json:"interaction_id"`
	Timestamp float64  `json:"timestamp"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
}

// GET /api/learn/:course_id/:module_id
func (h *ModuleHandler) PlayerContent(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	points := m.InteractionPoints.Data()
	out := make([]learnerPoint, 0, len(points))
	for i, p := range points {
		out = append(out, learnerPoint{Index: i, Timestamp: p.Timestamp, Question: p.QuestionText, Options: p.Options})
	}
	response.RespondOK(c, gin.H{
		"video_url":          m.VideoURL,
		"notes_url":          m.NotesURL,
		"interaction_points": out,
	})
}

// GET /api/learn/:course_id/:module_id/materials
func (h *ModuleHandler) Materials(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	mat := m.Materials.Data()
	notes := mat.SmartNotes
	if notes == nil {
		notes = []course.SmartNote{}
	}
	cards := mat.Flashcards
	if cards == nil {
		cards = []course.Flashcard{}
	}
	var mindMap any = gin.H{}
	if mat.MindMap != nil {
		mindMap = mat.MindMap
	}
	response.RespondOK(c, gin.H{
		"ai_smart_notes": notes,
		"ai_flashcards":  cards,
		"ai_mind_map":    mindMap,
		"notes_url":      m.NotesURL,
	})
}

type validateRequest struct {
	InteractionID  *int   `json:"interaction_id"`
	SelectedOption string `json:"selected_option"`
}

// POST /api/learn/:course_id/:module_id/validate
func (h *ModuleHandler) ValidateAnswer(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.InteractionID == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("interaction_id is required"))
		return
	}
	m, ok := h.load(c)
	if !ok {
		return
	}
	points := m.InteractionPoints.Data()
	idx := *req.InteractionID
	if idx < 0 || idx >= len(points) {
		response.RespondError(c, http.StatusNotFound, "interaction_not_found", fmt.Errorf("interaction %d not found", idx))
		return
	}
	p := points[idx]
	if strings.TrimSpace(req.SelectedOption) == strings.TrimSpace(p.CorrectOption) {
		response.RespondOK(c, gin.H{"is_correct": true, "feedback": "Correct!", "action": "continue_video"})
		return
	}
	feedback := p.HintText
	if feedback == "" {
		feedback = "Not quite. Rewatch this section and try again."
	}
	response.RespondOK(c, gin.H{"is_correct": false, "feedback": feedback, "action": "rewind_to_start"})
}
