package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/http/response"
	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/apierr"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// ModuleStore is the module record backend: the SQL module repo or the
// Firestore course documents.
type ModuleStore interface {
	Upsert(ctx context.Context, m *course.Module) error
	GetModule(ctx context.Context, courseID, moduleID string) (*course.Module, error)
	ListByCourse(ctx context.Context, courseID string) ([]*course.Module, error)
}

type ContentService interface {
	SubmitWith(ctx context.Context, u content.Upload, prepare func(ctx context.Context) error) error
	Status(ctx context.Context, jobID string) (*course.ProcessingStatus, error)
}

type ModuleHandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

type ModuleHandler struct {
	log     *logger.Logger
	modules ModuleStore
	content ContentService
	cfg     ModuleHandlerConfig
}

func NewModuleHandler(log *logger.Logger, modules ModuleStore, svc ContentService, cfg ModuleHandlerConfig) *ModuleHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 2 << 30
	}
	return &ModuleHandler{
		log:     log.With("handler", "ModuleHandler"),
		modules: modules,
		content: svc,
		cfg:     cfg,
	}
}

// POST /api/instructor/modules/upload
func (h *ModuleHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidUpload, fmt.Errorf("no file part: %w", err))
		return
	}
	courseID := strings.TrimSpace(c.PostForm("course_id"))
	title := strings.TrimSpace(c.PostForm("title"))
	if courseID == "" || title == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeMissingField, errors.New("course_id and title are required"))
		return
	}
	m := &course.Module{
		ID:           uuid.New().String(),
		CourseID:     courseID,
		Title:        title,
		ResourceType: resourceType(c.PostForm("type"), course.ResourceVideo),
	}
	h.accept(c, m, fh)
}

// PUT /api/instructor/courses/:course_id/modules/:module_id/media
func (h *ModuleHandler) Reprocess(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	courseID, moduleID := c.Param("course_id"), c.Param("module_id")
	existing, err := h.modules.GetModule(c.Request.Context(), courseID, moduleID)
	if err != nil {
		h.log.Error("Reprocess failed (load module)", "error", err, "module_id", moduleID)
		response.RespondError(c, http.StatusInternalServerError, "load_module_failed", err)
		return
	}
	if existing == nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeModuleNotFound, fmt.Errorf("module %s not found in course %s", moduleID, courseID))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidUpload, fmt.Errorf("no file part: %w", err))
		return
	}
	m := &course.Module{
		ID:           existing.ID,
		CourseID:     existing.CourseID,
		Title:        existing.Title,
		ResourceType: resourceType(c.PostForm("type"), existing.ResourceType),
	}
	if t := strings.TrimSpace(c.PostForm("title")); t != "" {
		m.Title = t
	}
	h.accept(c, m, fh)
}

// accept saves the upload and hands it to the content service. The module
// record is written only once the module's job slot is held.
func (h *ModuleHandler) accept(c *gin.Context, m *course.Module, fh *multipart.FileHeader) {
	path, name, err := saveUpload(c, fh, h.cfg.UploadDir)
	if err != nil {
		h.log.Error("Upload failed (save file)", "error", err, "module_id", m.ID)
		response.RespondError(c, http.StatusInternalServerError, "save_upload_failed", err)
		return
	}
	mimeType := uploadMimeType(fh)
	m.SourceFilename = name
	m.SourceMimeType = mimeType
	m.Status = course.ModuleStatusProcessing
	observability.Current().AddUploadBytes(fh.Size)

	u := content.Upload{
		CourseID:         m.CourseID,
		ModuleID:         m.ID,
		LocalPath:        path,
		OriginalFilename: name,
		MimeType:         mimeType,
	}
	err = h.content.SubmitWith(c.Request.Context(), u, func(ctx context.Context) error {
		return h.modules.Upsert(ctx, m)
	})
	switch {
	case errors.Is(err, content.ErrJobActive):
		observability.Current().IncAdmissionRejected(apierr.CodeJobActive)
		response.RespondAPIError(c, apierr.Conflict(apierr.CodeJobActive, err))
		return
	case errors.Is(err, content.ErrQueueFull):
		observability.Current().IncAdmissionRejected(apierr.CodeQueueFull)
		response.RespondAPIError(c, apierr.Unavailable(apierr.CodeQueueFull, err))
		return
	case err != nil:
		h.log.Error("Upload failed (submit)", "error", err, "module_id", m.ID)
		response.RespondAPIError(c, err)
		return
	}
	h.log.Info("Upload accepted", "course_id", m.CourseID, "module_id", m.ID, "mime_type", mimeType, "bytes", fh.Size)
	response.RespondOK(c, gin.H{
		"status":    "success",
		"module_id": m.ID,
		"job_id":    u.JobID(),
		"message":   "Upload successful. AI processing started.",
	})
}

// GET /api/instructor/modules/:module_id/status
func (h *ModuleHandler) Status(c *gin.Context) {
	st, err := h.content.Status(c.Request.Context(), c.Param("module_id"))
	if errors.Is(err, course.ErrStatusNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": "unknown"})
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "load_status_failed", err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/courses/:course_id/modules/:module_id
func (h *ModuleHandler) GetModule(c *gin.Context) {
	m, ok := h.load(c)
	if !ok {
		return
	}
	response.RespondOK(c, m)
}

// GET /api/courses/:course_id/modules
func (h *ModuleHandler) ListModules(c *gin.Context) {
	mods, err := h.modules.ListByCourse(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_modules_failed", err)
		return
	}
	if mods == nil {
		mods = []*course.Module{}
	}
	response.RespondOK(c, gin.H{"modules": mods})
}

func (h *ModuleHandler) load(c *gin.Context) (*course.Module, bool) {
	courseID, moduleID := c.Param("course_id"), c.Param("module_id")
	m, err := h.modules.GetModule(c.Request.Context(), courseID, moduleID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "load_module_failed", err)
		return nil, false
	}
	if m == nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeModuleNotFound, fmt.Errorf("module %s not found in course %s", moduleID, courseID))
		return nil, false
	}
	return m, true
}

func resourceType(raw, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case course.ResourceVideo:
		return course.ResourceVideo
	case course.ResourceDocument, "pdf", "doc", "text":
		return course.ResourceDocument
	}
	if fallback == "" {
		return course.ResourceVideo
	}
	return fallback
}
