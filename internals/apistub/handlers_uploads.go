package apistub

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/buildwatch/buildwatch/internals/logbuf"
	"github.com/buildwatch/buildwatch/internals/schemas"
)

func (s *Server) HandlerUploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		RenderIssues(w, r, "body", map[string][]string{"files": {"multipart form required"}})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		RenderIssues(w, r, "body", map[string][]string{"files": {"at least one file is required"}})
		return
	}

	response := schemas.UploadResponse{Files: make([]schemas.UploadedFile, 0, len(headers))}
	for _, header := range headers {
		stored, err := s.saveUpload(header)
		if err != nil {
			s.internalError(w, r, "save upload", err)
			return
		}
		response.Files = append(response.Files, *stored)
	}
	logbuf.FromContext(r.Context()).Info("files uploaded", slog.Int("count", len(response.Files)))
	RenderJSON(w, r, response)
}

func (s *Server) saveUpload(header *multipart.FileHeader) (*schemas.UploadedFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	name := uuid.NewString()[:8] + "_" + sanitizeFilename(header.Filename)
	dst, err := os.OpenFile(filepath.Join(s.uploadDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return &schemas.UploadedFile{
		Filename: name,
		Path:     uploadsDirName + "/" + name,
		Size:     size,
	}, nil
}

func (s *Server) HandlerDownloadFile(w http.ResponseWriter, r *http.Request) {
	path, ok := s.uploadPath(w, r)
	if !ok {
		return
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		RenderError(w, r, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "open upload", err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	_, _ = io.Copy(w, file)
}

func (s *Server) HandlerDeleteFile(w http.ResponseWriter, r *http.Request) {
	path, ok := s.uploadPath(w, r)
	if !ok {
		return
	}
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		RenderError(w, r, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "remove upload", err)
		return
	}
	RenderJSON(w, r, map[string]string{"message": "File deleted"})
}

func (s *Server) uploadPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		RenderError(w, r, http.StatusNotFound, "File not found")
		return "", false
	}
	return filepath.Join(s.uploadDir, name), true
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		default:
			return r
		}
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload"
	}
	return name
}
