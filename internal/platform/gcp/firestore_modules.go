package gcp

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
)

// Field names of a course_modules entry.
const (
	modulesField           = "course_modules"
	fieldModuleID          = "module_id"
	fieldTitle             = "module_title"
	fieldResourceType      = "module_resource_type"
	fieldStatus            = "module_status"
	fieldMediaURL          = "module_media_url"
	fieldSourceURL         = "module_source_url"
	fieldNotesURL          = "module_notes_url"
	fieldInteractionPoints = "module_ai_interaction_points"
	fieldStudyMaterials    = "module_ai_materials"
)

func findModule(mods []interface{}, moduleID string) int {
	for i, m := range mods {
		mm, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		if id, _ := mm[fieldModuleID].(string); id == moduleID {
			return i
		}
	}
	return -1
}

// patchModules sets fields on the entry for moduleID in place. It reports
// false when no entry matches.
func patchModules(mods []interface{}, moduleID string, fields map[string]interface{}) bool {
	i := findModule(mods, moduleID)
	if i < 0 {
		return false
	}
	mm := mods[i].(map[string]interface{})
	for k, v := range fields {
		mm[k] = v
	}
	return true
}

// upsertModule resets the entry for m.ID or appends a new one.
func upsertModule(mods []interface{}, m *course.Module) []interface{} {
	fields := map[string]interface{}{
		fieldModuleID:     m.ID,
		fieldTitle:        m.Title,
		fieldResourceType: m.ResourceType,
		fieldStatus:       m.Status,
		// Analysis belongs to the previous run.
		fieldNotesURL:          "",
		fieldInteractionPoints: []interface{}{},
		fieldStudyMaterials:    nil,
	}
	if patchModules(mods, m.ID, fields) {
		return mods
	}
	return append(mods, fields)
}

func moduleFromMap(courseID string, mm map[string]interface{}) (*course.Module, error) {
	str := func(k string) string {
		s, _ := mm[k].(string)
		return s
	}
	m := &course.Module{
		ID:           str(fieldModuleID),
		CourseID:     courseID,
		Title:        str(fieldTitle),
		ResourceType: str(fieldResourceType),
		Status:       str(fieldStatus),
		SourceURL:    str(fieldSourceURL),
		VideoURL:     str(fieldMediaURL),
		NotesURL:     str(fieldNotesURL),
	}
	if raw, ok := mm[fieldInteractionPoints]; ok && raw != nil {
		var points []course.InteractionPoint
		if err := fromFirestoreValue(raw, &points); err != nil {
			return nil, fmt.Errorf("%s: %w", fieldInteractionPoints, err)
		}
		m.InteractionPoints = datatypes.NewJSONType(points)
	}
	if raw, ok := mm[fieldStudyMaterials]; ok && raw != nil {
		var mat course.StudyMaterials
		if err := fromFirestoreValue(raw, &mat); err != nil {
			return nil, fmt.Errorf("%s: %w", fieldStudyMaterials, err)
		}
		m.Materials = datatypes.NewJSONType(mat)
	}
	return m, nil
}

// toFirestoreValue turns v into plain maps and slices keyed by its json tags,
// the shape clients read from the course document.
func toFirestoreValue(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromFirestoreValue(raw interface{}, dst interface{}) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
