// Package server exposes the thin HTTP surface over the pipeline: batch
// upload, per-document status, and the XLSX report. All business logic lives
// below; handlers only validate, dispatch and translate errors.
package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/async"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/export"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pipeline"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/tenant"
)

type Server struct {
	proc     *pipeline.Processor
	queue    async.Queue
	docs     repository.DocumentRepository
	exporter *export.Service
	tenants  tenant.Resolver
	logger   *slog.Logger
}

func New(proc *pipeline.Processor, queue async.Queue, docs repository.DocumentRepository, exporter *export.Service, tenants tenant.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{proc: proc, queue: queue, docs: docs, exporter: exporter, tenants: tenants, logger: logger}
}

// Routes mounts the API onto a gin engine.
func (s *Server) Routes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/documents", s.uploadDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.GET("/reports/documents.xlsx", s.exportDocuments)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
}

type uploadItem struct {
	Filename   string  `json:"filename"`
	DocumentID *string `json:"documentId,omitempty"`
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
}

// uploadDocuments accepts one or more PDFs in the "files" multipart field.
// Each file is validated, stored and queued independently; one bad file
// never fails the batch.
func (s *Server) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required in field 'files'"})
		return
	}

	tenantID, err := s.resolveTenant(c)
	if err != nil {
		c.JSON(common.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	results := make([]uploadItem, 0, len(files))
	for _, fh := range files {
		item := uploadItem{Filename: fh.Filename}

		data, err := readMultipartFile(func() (io.ReadCloser, error) { return fh.Open() })
		if err != nil {
			item.Status = pipeline.StatusError
			item.Message = "unreadable upload: " + err.Error()
			results = append(results, item)
			continue
		}

		doc, err := s.proc.Ingest(c.Request.Context(), fh.Filename, data, tenantID)
		if err != nil {
			s.logger.Error("ingest failed", "filename", fh.Filename, "error", err)
			item.Status = pipeline.StatusError
			item.Message = err.Error()
			results = append(results, item)
			continue
		}

		id := doc.ID.String()
		item.DocumentID = &id
		if doc.Status == constants.StatusError {
			item.Status = pipeline.StatusError
			if doc.Message != nil {
				item.Message = *doc.Message
			}
		} else {
			item.Status = "queued"
			_ = s.queue.Enqueue(c.Request.Context(), async.Job{DocumentID: doc.ID, SubmittedAt: time.Now()})
		}
		results = append(results, item)
	}

	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

func (s *Server) getDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}
	doc, err := s.docs.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	resp := gin.H{
		"documentId": doc.ID.String(),
		"filename":   doc.Filename,
		"kind":       string(doc.Kind),
		"status":     string(doc.Status),
		"createdAt":  doc.CreatedAt.UTC().Format(time.RFC3339),
	}
	if doc.PairID != nil {
		resp["pairedDocumentId"] = doc.PairID.String()
	}
	if doc.CaseID != nil {
		resp["caseId"] = doc.CaseID.String()
	}
	if doc.Message != nil {
		resp["message"] = *doc.Message
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) exportDocuments(c *gin.Context) {
	data, err := s.exporter.DocumentsXLSX(c.Request.Context())
	if err != nil {
		s.logger.Error("export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// resolveTenant prefers an explicit X-Tenant-ID header; otherwise the
// X-Api-Key origin is mapped through the resolver. No tenant is valid.
func (s *Server) resolveTenant(c *gin.Context) (*uuid.UUID, error) {
	if raw := c.GetHeader("X-Tenant-ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, common.InvalidArgumentError("X-Tenant-ID must be a UUID")
		}
		return &id, nil
	}
	if key := c.GetHeader("X-Api-Key"); key != "" && s.tenants != nil {
		return s.tenants.Resolve(c.Request.Context(), key)
	}
	return nil, nil
}

func readMultipartFile(open func() (io.ReadCloser, error)) ([]byte, error) {
	f, err := open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
}
