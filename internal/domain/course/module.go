package course

import (
	"time"

	"gorm.io/datatypes"
)

// Durable module states.
const (
	ModuleStatusProcessing     = "processing"
	ModuleStatusReadyForReview = "ready_for_review"
	ModuleStatusError          = "error"
)

// Module resource kinds as declared by the instructor at upload.
const (
	ResourceVideo    = "video"
	ResourceDocument = "document"
)

// Module is one unit of course content. Course CRUD lives elsewhere; this row
// carries only what the content pipeline reads and writes.
type Module struct {
	ID                string                                 `gorm:"column:id;primaryKey" json:"module_id"`
	CourseID          string                                 `gorm:"column:course_id;not null;index" json:"course_id"`
	Title             string                                 `gorm:"column:title;not null" json:"title"`
	ResourceType      string                                 `gorm:"column:resource_type" json:"type"`
	SourceFilename    string                                 `gorm:"column:source_filename" json:"source_filename,omitempty"`
	SourceMimeType    string                                 `gorm:"column:source_mime_type" json:"source_mime_type,omitempty"`
	Status            string                                 `gorm:"column:status;not null;index" json:"status"`
	SourceURL         string                                 `gorm:"column:source_url" json:"source_url,omitempty"`
	VideoURL          string                                 `gorm:"column:video_url" json:"video_url,omitempty"`
	NotesURL          string                                 `gorm:"column:notes_url" json:"notes_url,omitempty"`
	InteractionPoints datatypes.JSONType[[]InteractionPoint] `gorm:"column:interaction_points" json:"interaction_points"`
	Materials         datatypes.JSONType[StudyMaterials]     `gorm:"column:materials" json:"materials"`
	CreatedAt         time.Time                              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Module) TableName() string { return "course_module" }
