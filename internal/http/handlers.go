package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	applog "ensemble/internal/log"
	"ensemble/internal/middleware/security"
	"ensemble/internal/services"
)

const reportSecretHeader = "X-Report-Secret"

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the piece list can be read and reports the
// request counters seen so far.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	pieces, err := s.svc.Pieces(r.Context())
	if err != nil {
		s.log.LogError(r.Context(), "Readiness check failed", err, applog.ErrorTypeUpstream, applog.OpList, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	m := s.tracer.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"pieces":       pieces,
		"requests":     m.TotalRequests,
		"serverErrors": m.ServerErrors,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	pieces, err := s.svc.Pieces(r.Context())
	if err != nil {
		// The page still renders; the selector is filled from /api/options.
		s.logger.WarnContext(r.Context(), "Piece list unavailable for index", "error", err)
	}
	data := struct {
		Pieces []string
	}{
		Pieces: pieces,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
	}
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.URL.Query().Get("name"))
	status, err := s.svc.PersonStatus(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.URL.Query().Get("name"))
	counts, err := s.svc.PersonSubmissions(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	pieces, err := s.svc.Pieces(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpList)
		return
	}
	if pieces == nil {
		pieces = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"songs": pieces})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "file too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "file too large"})
			return
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid upload form", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := services.UploadRequest{
		Name:  sanitizeInput(r.FormValue("name")),
		Piece: sanitizeInput(r.FormValue("piece")),
	}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		req.Body = file
		req.FileName = header.Filename
		req.MimeType = header.Header.Get("Content-Type")
	}

	uploaded, err := s.svc.Upload(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, applog.OpUpload)
		return
	}
	s.log.LogUpload(r.Context(), req.Name, req.Piece, uploaded.Name)
	writeJSON(w, http.StatusOK, map[string]any{"message": "업로드 성공", "file": uploaded})
}

func (s *Server) handleUploadFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Piece string `json:"piece"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	folderID, err := s.svc.EnsureFolder(r.Context(), sanitizeInput(body.Piece))
	if err != nil {
		s.writeError(w, r, err, applog.OpUpload)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"folderId": folderID})
}

// authorizeReport checks the report secret from the header or the key
// query parameter. An unset secret rejects every call.
func (s *Server) authorizeReport(r *http.Request) bool {
	if s.opts.ReportSecret == "" {
		return false
	}
	got := r.Header.Get(reportSecretHeader)
	if got == "" {
		got = r.URL.Query().Get("key")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.ReportSecret)) == 1
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeReport(r) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unauthorized report trigger",
			applog.FieldClientIP, security.ClientIP(r),
			applog.FieldErrorType, applog.ErrorTypeAuth)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	if s.opts.Publisher != nil && r.URL.Query().Get("async") == "1" {
		requestID, err := s.opts.Publisher.PublishReportRun(r.Context(), security.ClientIP(r))
		if err != nil {
			s.writeError(w, r, err, applog.OpPublish)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "queued": true, "requestId": requestID})
		return
	}

	res, err := s.svc.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpReport)
		return
	}
	totalFine := 0
	for _, row := range res.Rows {
		totalFine += row.Fine
	}
	s.log.LogReportRun(r.Context(), res.RunID, res.Title, len(res.Rows), totalFine)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rows": len(res.Rows), "runId": res.RunID})
}

func (s *Server) handleReportRuns(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeReport(r) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	if s.opts.History == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "run history disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.opts.History.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
