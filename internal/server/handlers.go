package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/export"
	"github.com/hyperjump/revalida/internal/keyword"
	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/pipeline"
	"github.com/hyperjump/revalida/internal/search"
	"github.com/hyperjump/revalida/internal/storage"
	"go.uber.org/zap"
)

const (
	pdfField       = "pdf_file"
	answerKeyField = "gabarito_file"

	// multipartMemory is how much of an upload is kept in memory before spilling to temp files.
	multipartMemory = 32 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type createResponse struct {
	Success      bool              `json:"success"`
	ExtractionID string            `json:"extraction_id"`
	Metadata     *models.Metadata  `json:"metadata"`
	Questions    []models.Question `json:"questions"`
}

var endpoints = map[string]string{
	"health":  "GET /health",
	"create":  "POST /api/v1/extractions",
	"list":    "GET /api/v1/extractions",
	"get":     "GET /api/v1/extractions/{id}",
	"images":  "GET /api/v1/extractions/{id}/images",
	"image":   "GET /api/v1/extractions/{id}/images/{filename}",
	"export":  "GET /api/v1/extractions/{id}/export.xlsx",
	"delete":  "DELETE /api/v1/extractions/{id}",
	"search":  "POST /api/v1/search",
	"status":  "GET /api/v1/status",
	"sync":    "POST /api/v1/sync",
	"watch":   "GET|POST|DELETE /api/v1/watch/directories",
	"metrics": "GET /metrics",
}

type imagesResponse struct {
	ExtractionID string             `json:"extraction_id"`
	TotalImages  int                `json:"total_images"`
	Images       []models.ImageInfo `json:"images"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "revalida",
		"version":   s.version,
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCreateExtraction(w http.ResponseWriter, r *http.Request) {
	if limit := s.config.Server.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var upload pipeline.Upload
	name, content, err := readFormFile(r, pdfField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.respondError(w, http.StatusBadRequest, "no PDF file provided")
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	upload.Filename, upload.Content = name, content

	name, content, err = readFormFile(r, answerKeyField)
	switch {
	case err == nil:
		upload.AnswerKeyFilename, upload.AnswerKey = name, content
	case !errors.Is(err, http.ErrMissingFile):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("extraction request",
		zap.String("pdf", upload.Filename),
		zap.Int("pdf_bytes", len(upload.Content)),
		zap.String("answer_key", upload.AnswerKeyFilename),
	)
	ext, err := s.pipeline.Extract(r.Context(), &upload)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidUpload) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("extraction failed", zap.String("pdf", upload.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to process PDF: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, createResponse{
		Success:      true,
		ExtractionID: ext.Metadata.ExtractionID,
		Metadata:     ext.Metadata,
		Questions:    ext.Questions,
	})
}

// readFormFile returns the name and content of a multipart file field.
func readFormFile(r *http.Request, field string) (string, []byte, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return header.Filename, content, nil
}

// handleListExtractions lists the extraction folders on disk, newest first.
func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := s.store.List()
	if err != nil {
		s.logger.Error("list extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ExtractionList{
		Total:       int64(len(all)),
		Extractions: storage.Page(all, offset, limit),
	})
}

// queryInt parses a non-negative integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ext, err := s.store.Load(id)
	if err != nil {
		s.respondStoreError(w, "extraction not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ext)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	images, err := s.store.ListImages(id)
	if err != nil {
		s.respondStoreError(w, "images not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, imagesResponse{
		ExtractionID: id,
		TotalImages:  len(images),
		Images:       images,
	})
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")
	path, err := s.store.ImagePath(id, filename)
	if err != nil {
		s.respondStoreError(w, "image not found", err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ext, err := s.store.Load(id)
	if err != nil {
		s.respondStoreError(w, "extraction not found", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, ext.Metadata, ext.Questions); err != nil {
		s.logger.Error("export failed", zap.String("extraction_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(ext.Metadata)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete extraction request", zap.String("id", id))
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, "extraction not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("extraction %s deleted", id),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// handleSync reconciles the catalog and question index with the extraction folders.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.pipeline.Sync(r.Context())
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var dirs []string
	if s.watch != nil {
		dirs = s.watch.Directories()
	}
	status, err := CollectStatus(r.Context(), s.catalog, s.index, s.config, dirs)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// CollectStatus counts extractions and questions in the catalog and indexed questions
// in index (when non-nil), and measures the disk usage of the configured storage paths.
func CollectStatus(
	ctx context.Context,
	catalog storage.Catalog,
	index keyword.QuestionIndex,
	cfg *config.Config,
	watchDirs []string,
) (*models.Status, error) {
	extractions, err := catalog.CountExtractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count extractions: %w", err)
	}
	questions, err := catalog.CountQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	status := &models.Status{Extractions: extractions, Questions: questions}
	if index != nil {
		if n, err := index.DocCount(); err == nil {
			status.IndexedQuestions = &n
		}
	}
	st := cfg.Storage
	if diskBytes, err := storage.DiskUsageBytes(st.ExtractionsDir, st.DatabasePath, st.BleveIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	if watchDirs == nil {
		watchDirs = cfg.Watch.Directories
	}
	status.Config = &models.StatusConfig{
		ExtractionsDir:    st.ExtractionsDir,
		DatabasePath:      st.DatabasePath,
		BleveIndexPath:    st.BleveIndexPath,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		MaxQuestionNumber: cfg.Extraction.MaxQuestionNumber,
		ExtractImages:     cfg.Extraction.ExtractImagesOrDefault(),
		WatchDirectories:  watchDirs,
	}
	return status, nil
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories saves the current watch list to the config file, if any.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	dirs := s.watch.Directories()
	s.config.Watch.Directories = dirs
	if err := config.SaveWatchDirectories(s.configPath, dirs); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// respondStoreError answers 404 for storage.ErrNotFound and 500 otherwise.
func (s *Server) respondStoreError(w http.ResponseWriter, notFound string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("storage error", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
