package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// UploadHandler receives media payloads out-of-band. The client first
// posts the bytes here, then relays the returned filename through the
// websocket as a media message.
type UploadHandler struct {
	dir string
}

// NewUploadHandler builds an UploadHandler storing files under dir.
func NewUploadHandler(dir string) *UploadHandler {
	return &UploadHandler{dir: dir}
}

// UploadImage stores a multipart payload (file field "chat") under the
// client-chosen filename, reduced to its base name so the upload dir
// cannot be escaped.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("chat")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing file field 'chat'"})
		return
	}

	name := c.PostForm("filename")
	if name == "" {
		name = file.Filename
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid filename"})
		return
	}

	if err := c.SaveUploadedFile(file, filepath.Join(h.dir, name)); err != nil {
		internalError(c, "save upload", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
