package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pks0715/seggy/internal/model"
	"github.com/pks0715/seggy/internal/pipeline"
	"github.com/pks0715/seggy/internal/report"
)

// Form field names of the upload form.
const (
	fieldFiles         = "files"
	fieldDDType        = "dd_type"
	fieldReportFocus   = "report_focus"
	fieldChecklistType = "checklist_type"
)

// Caller-visible error messages.
const (
	msgNotConfigured    = "OpenRouter API key not configured."
	msgNoFiles          = "No files uploaded"
	msgNoContent        = "Could not extract text from any files."
	msgAllBatchesFailed = "All batches failed to process"
	msgUploadTooLarge   = "Upload exceeds the maximum allowed size"
	msgNotMultipart     = "Request must be multipart/form-data"
	msgMalformedForm    = "Malformed upload form"
	msgInternal         = "An error occurred while processing the request"
	msgRenderPDF        = "Failed to render PDF report"
)

// validate checks classification fields. Field names in messages use the
// form names (json tags) rather than Go names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a client error with a caller-visible message.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.NewResponse(a))
}

func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analyze(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := report.NewPDFWriter(&buf).Write(a); err != nil {
		s.logger.Error("failed to render PDF", "run_id", a.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, msgRenderPDF)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="seggy-report-%s.pdf"`, a.RunID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}

// analyze parses the form, runs the pipeline and writes an error response
// on failure. It reports whether the caller should write a success body.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*model.Analysis, bool) {
	if s.analyzer == nil {
		s.fail(w, ErrNotConfigured)
		return nil, false
	}

	req, err := s.parseRequest(w, r)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}

	a, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}

	s.saveHistory(r.Context(), a)
	return a, true
}

// fail logs err and writes the caller-visible response for it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("analysis request failed", "status", status, "error", err)
	} else {
		s.logger.Warn("analysis request rejected", "status", status, "error", err)
	}
	writeError(w, status, msg)
}

// parseRequest reads the upload form into an AnalyzeRequest.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (pipeline.AnalyzeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return pipeline.AnalyzeRequest{}, &requestError{status: http.StatusRequestEntityTooLarge, message: msgUploadTooLarge}
		case errors.Is(err, http.ErrNotMultipart):
			return pipeline.AnalyzeRequest{}, &requestError{status: http.StatusBadRequest, message: msgNotMultipart}
		default:
			return pipeline.AnalyzeRequest{}, &requestError{status: http.StatusBadRequest, message: msgMalformedForm}
		}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	c := model.Classification{
		DDType:        strings.TrimSpace(r.FormValue(fieldDDType)),
		ReportFocus:   strings.TrimSpace(r.FormValue(fieldReportFocus)),
		ChecklistType: strings.TrimSpace(r.FormValue(fieldChecklistType)),
	}
	if err := validate.Struct(c); err != nil {
		return pipeline.AnalyzeRequest{}, &requestError{status: http.StatusBadRequest, message: validationMessage(err)}
	}

	uploads, err := readUploads(r)
	if err != nil {
		return pipeline.AnalyzeRequest{}, err
	}
	if len(uploads) == 0 {
		return pipeline.AnalyzeRequest{}, ErrNoFiles
	}

	return pipeline.AnalyzeRequest{Uploads: uploads, Classification: c}, nil
}

// readUploads reads every named "files" part. Parts without a file name
// are skipped, as browsers send one for an empty file input.
func readUploads(r *http.Request) ([]model.Upload, error) {
	headers := r.MultipartForm.File[fieldFiles]
	uploads := make([]model.Upload, 0, len(headers))

	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, model.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// validationMessage turns validator errors into a caller-visible message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid form fields"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("invalid %s: must be one of %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("invalid %s: must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("invalid %s", fe.Field())
	}
}

// errorResponse maps a request or pipeline error to a status and a
// message that is safe to show. Unknown errors are never echoed.
func errorResponse(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.message
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable, msgNotConfigured
	case errors.Is(err, ErrNoFiles):
		return http.StatusBadRequest, msgNoFiles
	case errors.Is(err, pipeline.ErrNoContent):
		return http.StatusBadRequest, msgNoContent
	case errors.Is(err, pipeline.ErrAllBatchesFailed):
		return http.StatusInternalServerError, msgAllBatchesFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// saveHistory stores run metadata when history is enabled.
// Failures are logged and never affect the response.
func (s *Server) saveHistory(ctx context.Context, a *model.Analysis) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveRun(ctx, a); err != nil {
		s.logger.Warn("failed to save run history", "run_id", a.RunID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
