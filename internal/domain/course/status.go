package course

import (
	"errors"
	"time"
)

// ErrStatusNotFound is returned by status stores for unknown job ids.
var ErrStatusNotFound = errors.New("processing status not found")

type Stage string

const (
	StageReceived   Stage = "Received"
	StageStoring    Stage = "Storing"
	StageConverting Stage = "Converting"
	StageRendering  Stage = "Rendering"
	StageAnalyzing  Stage = "Analyzing"
	StageCompleted  Stage = "Completed"
	StageError      Stage = "Error"
)

func (s Stage) Terminal() bool { return s == StageCompleted || s == StageError }

// Values of ProcessingStatus.Status.
const (
	StatusQueued     = "Queued"
	StatusProcessing = "Processing"
	StatusCompleted  = "Completed"
	StatusError      = "Error"
)

// ProcessingStatus is the transient, overwritable record a client polls while
// a module is being processed. It is keyed by the job id (the module id).
type ProcessingStatus struct {
	JobID          string    `gorm:"column:job_id;primaryKey" json:"job_id" firestore:"job_id"`
	CourseID       string    `gorm:"column:course_id;index" json:"course_id" firestore:"course_id"`
	SourceMimeType string    `gorm:"column:source_mime_type" json:"source_mime_type,omitempty" firestore:"source_mime_type"`
	Stage          Stage     `gorm:"column:stage;not null" json:"stage" firestore:"stage"`
	Status         string    `gorm:"column:status;not null;index" json:"status" firestore:"status"`
	Progress       int       `gorm:"column:progress;not null" json:"progress" firestore:"progress"`
	Message        string    `gorm:"column:message" json:"message" firestore:"message"`
	VideoURL       string    `gorm:"column:video_url" json:"video_url,omitempty" firestore:"video_url"`
	Error          string    `gorm:"column:error" json:"error,omitempty" firestore:"error"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at" firestore:"updated_at"`
}

func (ProcessingStatus) TableName() string { return "processing_status" }
