package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeUploadName reduces name to a safe basename: path parts dropped,
// whitespace folded to underscores, anything outside [A-Za-z0-9._-] removed
// and leading dots stripped.
func sanitizeUploadName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// saveUpload writes fh under dir as <6 hex>_<sanitized name> and returns the
// path and the sanitized name.
func saveUpload(c *gin.Context, fh *multipart.FileHeader, dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}
	name := sanitizeUploadName(fh.Filename)
	prefix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	path := filepath.Join(dir, prefix+"_"+name)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("save upload: %w", err)
	}
	return path, name, nil
}

// uploadMimeType prefers the part's declared type and sniffs the first 512
// bytes when it is missing or generic.
func uploadMimeType(fh *multipart.FileHeader) string {
	mt := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}
	f, err := fh.Open()
	if err != nil {
		return mt
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if sniffed := http.DetectContentType(buf[:n]); sniffed != "application/octet-stream" {
		return sniffed
	}
	return mt
}
