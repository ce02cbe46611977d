package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/poiesic/ratatoskr/pipeline"
	"github.com/poiesic/ratatoskr/storage"
)

// maxUploadBytes bounds uploaded file size.
const maxUploadBytes = 32 << 20

type queryRequest struct {
	Query          string `json:"query"`
	Model          string `json:"model"`
	User           string `json:"user"`
	Session        string `json:"session"`
	QueryID        string `json:"query_id"`
	UseRAGDatabase bool   `json:"use_rag_database"`
}

type queryStatusResponse struct {
	QueryID  string `json:"query_id"`
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ragRequest struct {
	Query string `json:"query"`
}

type ragResponse struct {
	PageContent    string  `json:"page_content"`
	MetadataSource string  `json:"metadata_source"`
	Score          float32 `json:"score"`
}

type summaryRequest struct {
	Sources []string `json:"sources"`
	Model   string   `json:"model"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type uploadDocument struct {
	PageContent string `json:"page_content"`
	Metadata    struct {
		Source string `json:"source"`
	} `json:"metadata"`
}

type uploadDocumentsRequest struct {
	Documents []uploadDocument `json:"documents"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	receipt, err := s.service.SubmitQuery(r.Context(), pipeline.Submission{
		QueryID:        req.QueryID,
		User:           req.User,
		Session:        req.Session,
		Query:          req.Query,
		Model:          req.Model,
		UseRAGDatabase: req.UseRAGDatabase,
	})
	if err != nil {
		s.logger.Error("submit failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, queryStatusResponse{
		QueryID: receipt.QueryID,
		Status:  string(receipt.Status),
	})
}

func (s *Server) handleQueryStatus(w http.ResponseWriter, r *http.Request) {
	queryID := r.URL.Query().Get("query_id")
	if queryID == "" {
		s.respondError(w, http.StatusBadRequest, "query_id is required")
		return
	}

	record, err := s.service.GetStatus(r.Context(), queryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "query ID not found")
			return
		}
		s.logger.Error("status lookup failed", "query_id", queryID, "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, queryStatusResponse{
		QueryID:  record.QueryID,
		Status:   string(record.Status),
		Response: record.Response,
		Error:    record.Error,
	})
}

func (s *Server) handleQueryRAG(w http.ResponseWriter, r *http.Request) {
	var req ragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := s.service.SearchBySimilarity(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("similarity search failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]ragResponse, len(hits))
	for i, hit := range hits {
		results[i] = ragResponse{
			PageContent:    hit.Content,
			MetadataSource: hit.Source,
			Score:          hit.Score,
		}
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleMetadataSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sources) == 0 {
		s.respondError(w, http.StatusBadRequest, "sources are required")
		return
	}

	summaries, err := s.service.SummarizeBySource(r.Context(), req.Sources, req.Model)
	if err != nil {
		s.logger.Error("source summary failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleProcessURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		s.respondError(w, http.StatusBadRequest, "invalid URL format")
		return
	}

	if err := s.service.IngestURL(r.Context(), req.URL); err != nil {
		s.logger.Error("URL ingestion failed", "url", req.URL, "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "URL processed successfully"})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// stage the upload so the extension-based loaders can open it
	tmpDir, err := os.MkdirTemp("", "ratatoskr-upload-")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dst.Close()

	if err := s.service.IngestFile(r.Context(), path); err != nil {
		s.logger.Error("file ingestion failed", "file", header.Filename, "err", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "File '" + header.Filename + "' uploaded and processed successfully.",
	})
}

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	var req uploadDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, doc := range req.Documents {
		if doc.PageContent == "" {
			s.respondError(w, http.StatusBadRequest, "missing or empty page_content in a document")
			return
		}
	}

	for _, doc := range req.Documents {
		if err := s.service.IngestText(r.Context(), doc.PageContent, doc.Metadata.Source); err != nil {
			s.logger.Error("document ingestion failed", "source", doc.Metadata.Source, "err", err)
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Documents uploaded successfully."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}
