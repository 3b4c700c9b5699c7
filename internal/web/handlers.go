package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/halverson/salesimport/internal/csvio"
	"github.com/halverson/salesimport/internal/importer"
	"github.com/halverson/salesimport/internal/logging"
)

// importResponse wraps the run report for API clients. Error is set when the
// run halted or failed outright.
type importResponse struct {
	Report *importer.Report `json:"report"`
	Error  string           `json:"error,omitempty"`
}

// handleImport runs the pipeline synchronously on an uploaded sales report
// and returns the run report. Groups committed before a batch-fatal halt
// stay committed; the response status reflects the halt, the report tells
// the caller exactly how far the run got.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	rows, err := csvio.Parse(data, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unreadable file: %v", err))
		return
	}

	ctx, cancel := s.importContext(r)
	defer cancel()

	log := logging.WithFields(r.Context(), "filename", header.Filename)
	log.Info("import started", "size", header.Size)

	report, runErr := importer.New(s.store, s.cfg.Import).Run(ctx, rows)

	switch {
	case runErr == nil:
		writeJSON(w, http.StatusOK, importResponse{Report: report})

	case report.Halted != "":
		// The input is systemically bad; partial results are in the report.
		log.Warn("import halted", "run_id", report.RunID, "kind", report.Halted)
		writeJSON(w, http.StatusUnprocessableEntity, importResponse{
			Report: report,
			Error:  runErr.Error(),
		})

	case errors.Is(runErr, context.DeadlineExceeded) || errors.Is(runErr, context.Canceled):
		writeJSON(w, http.StatusGatewayTimeout, importResponse{
			Report: report,
			Error:  runErr.Error(),
		})

	default:
		log.Error("import failed", "run_id", report.RunID, "error", runErr)
		writeJSON(w, http.StatusInternalServerError, importResponse{
			Report: report,
			Error:  runErr.Error(),
		})
	}
}

// importContext bounds a run by the configured import timeout.
func (s *Server) importContext(r *http.Request) (ctx context.Context, cancel context.CancelFunc) {
	if s.cfg.Import.Timeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	}
	return context.WithCancel(r.Context())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
