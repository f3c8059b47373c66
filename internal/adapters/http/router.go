package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

const maxUploadBytes = 32 << 20

// Exporter streams a spreadsheet of all documents to the writer.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
}

// PipelineMetrics records pipeline outcomes behind the synchronous endpoints.
// A nil recorder disables recording.
type PipelineMetrics interface {
	RecordUpload(documentType string)
	RecordExtraction(fieldCount int)
	RecordAnalysis(errorCount int)
	RecordInference(operation string, err error)
}

type Router struct {
	uploadUC  ports.DocumentUploader
	processUC ports.DocumentProcessor
	analyzeUC ports.DocumentErrorAnalyzer
	reviewUC  ports.DocumentReviewer
	queryUC   ports.DocumentQueryService
	exporter  Exporter
	stats     PipelineMetrics
	log       *slog.Logger
}

func NewRouter(
	uploadUC ports.DocumentUploader,
	processUC ports.DocumentProcessor,
	analyzeUC ports.DocumentErrorAnalyzer,
	reviewUC ports.DocumentReviewer,
	queryUC ports.DocumentQueryService,
	exporter Exporter,
	stats PipelineMetrics,
	log *slog.Logger,
) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		uploadUC:  uploadUC,
		processUC: processUC,
		analyzeUC: analyzeUC,
		reviewUC:  reviewUC,
		queryUC:   queryUC,
		exporter:  exporter,
		stats:     stats,
		log:       log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/export", rt.exportDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("POST /v1/documents/{id}/process", rt.processDocument)
	mux.HandleFunc("POST /v1/documents/{id}/analyze", rt.analyzeDocument)
	mux.HandleFunc("POST /v1/documents/{id}/status", rt.setDocumentStatus)
	mux.HandleFunc("POST /v1/errors/{id}/resolve", rt.resolveError)
	mux.HandleFunc("GET /v1/analytics", rt.analytics)
	return requestIDMiddleware(accessLogMiddleware(rt.log, mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	req := ports.UploadRequest{
		Filename:         fileHeader.Filename,
		MimeType:         fileHeader.Header.Get("Content-Type"),
		ProjectName:      r.FormValue("project_name"),
		InstallerCompany: r.FormValue("installer_company"),
		DocumentType:     domain.DocumentType(r.FormValue("document_type")),
	}

	doc, err := rt.uploadUC.Upload(r.Context(), req, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.stats != nil {
		rt.stats.RecordUpload(string(doc.DocumentType))
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ports.ListFilter{
		Status:       domain.DocumentStatus(query.Get("status")),
		DocumentType: domain.DocumentType(query.Get("document_type")),
		Search:       query.Get("search"),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.PageSize, _ = strconv.Atoi(query.Get("page_size"))

	docs, total, err := rt.queryUC.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	details, err := rt.queryUC.Details(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	fields, err := rt.processUC.ProcessByID(r.Context(), documentID)
	if rt.stats != nil {
		rt.stats.RecordInference("extract", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.stats != nil {
		rt.stats.RecordExtraction(len(fields))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"fields":      fields,
	})
}

func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	detected, err := rt.analyzeUC.AnalyzeByID(r.Context(), documentID)
	if rt.stats != nil {
		rt.stats.RecordInference("analyze", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.stats != nil {
		rt.stats.RecordAnalysis(len(detected))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"errors":      detected,
	})
}

func (rt *Router) setDocumentStatus(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	status := domain.DocumentStatus(req.Status)
	if err := rt.reviewUC.SetStatus(r.Context(), documentID, status, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"status":      status,
	})
}

func (rt *Router) resolveError(w http.ResponseWriter, r *http.Request) {
	errorID := r.PathValue("id")
	if err := rt.reviewUC.ResolveError(r.Context(), errorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error_id":    errorID,
		"is_resolved": true,
	})
}

func (rt *Router) analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := rt.queryUC.Analytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (rt *Router) exportDocuments(w http.ResponseWriter, r *http.Request) {
	if rt.exporter == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export is not configured"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=documents_%s.xlsx", time.Now().UTC().Format("2006-01-02")))

	if err := rt.exporter.Export(r.Context(), w); err != nil {
		rt.log.Error("export_failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
