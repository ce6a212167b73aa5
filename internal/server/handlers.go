package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// Error kinds for failures that happen before a conversion starts.
const (
	kindBadRequest      = "BadRequest"
	kindPayloadTooLarge = "PayloadTooLarge"
	kindRateLimited     = "RateLimited"
)

// downloadFallback names the PDF when the upload had no usable name.
const downloadFallback = "document"

// watermarkedSuffix marks the download name of a stamped deck.
const watermarkedSuffix = "__named"

type errorBody struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	JobID  string `json:"job_id,omitempty"`
}

type healthBody struct {
	Status         string `json:"status"`
	Capacity       int    `json:"capacity"`
	InFlight       int    `json:"in_flight"`
	Waiting        int    `json:"waiting"`
	Admitted       uint64 `json:"admitted"`
	Rejected       uint64 `json:"rejected"`
	LiveWorkspaces int    `json:"live_workspaces"`
}

type formatBody struct {
	Format string `json:"format"`
	Family string `json:"family"`
}

// handleConvert accepts either a multipart upload in field "file" or the raw
// document as the request body. A watermark comes from the multipart field
// "name" or the ?watermark= query.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	timeout, err := s.requestTimeout(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Kind: kindBadRequest, Detail: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	in, status, err := s.readInput(r)
	if err != nil {
		kind := kindBadRequest
		if status == http.StatusRequestEntityTooLarge {
			kind = kindPayloadTooLarge
		}
		writeJSON(w, status, errorBody{Kind: kind, Detail: err.Error()})
		return
	}

	res, err := s.conv.Convert(ctx, in)
	if err != nil {
		s.writeConversionError(w, err)
		return
	}

	name := fileutil.SanitizeFilename(fileutil.Stem(in.Filename), downloadFallback)
	if strings.TrimSpace(in.Watermark) != "" {
		name += watermarkedSuffix
	}
	name += ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
	w.Header().Set("X-Job-ID", res.JobID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		s.logger.Debug("client went away during download", "job", res.JobID, "err", err)
	}
}

// readInput extracts the document from r. The returned status is only
// meaningful with a non-nil error.
func (s *Server) readInput(r *http.Request) (office2pdf.Input, int, error) {
	q := r.URL.Query()
	in := office2pdf.Input{
		Format:    office2pdf.Format(q.Get("format")),
		Filename:  q.Get("filename"),
		Watermark: q.Get("watermark"),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return in, bodyErrorStatus(err), fmt.Errorf("reading upload: %w", err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			return in, http.StatusBadRequest, fmt.Errorf("multipart field %q: %w", "file", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return in, bodyErrorStatus(err), fmt.Errorf("reading upload: %w", err)
		}
		in.Data = data
		if in.Filename == "" {
			in.Filename = header.Filename
		}
		if names := r.MultipartForm.Value["name"]; len(names) > 0 {
			in.Watermark = names[0]
		}
		return in, 0, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return in, bodyErrorStatus(err), fmt.Errorf("reading body: %w", err)
	}
	in.Data = data
	if in.Format == "" && in.Filename == "" {
		if f, ok := office2pdf.FormatFromMediaType(r.Header.Get("Content-Type")); ok {
			in.Format = f
		}
	}
	return in, 0, nil
}

// requestTimeout reads ?timeout= as a Go duration or whole seconds, capped by
// the configured request timeout.
func (s *Server) requestTimeout(r *http.Request) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("timeout"))
	if raw == "" {
		return s.cfg.RequestTimeout, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, serr := strconv.Atoi(raw)
		if serr != nil {
			return 0, fmt.Errorf("invalid timeout %q", raw)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", raw)
	}
	return min(d, s.cfg.RequestTimeout), nil
}

func (s *Server) writeConversionError(w http.ResponseWriter, err error) {
	kind := office2pdf.KindOf(err)
	body := errorBody{Kind: string(kind), Detail: err.Error()}

	var ce *office2pdf.ConversionError
	if errors.As(err, &ce) {
		body.Detail = ce.Detail
		body.JobID = ce.JobID
	}
	if body.JobID != "" {
		w.Header().Set("X-Job-ID", body.JobID)
	}

	status := statusFor(kind)
	if kind == office2pdf.KindOverloaded {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RetryAfter.Seconds())))
	}
	if status >= http.StatusInternalServerError && kind != office2pdf.KindOverloaded {
		s.logger.Error("conversion failed", "kind", kind, "err", err)
	}
	writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.conv.Stats()
	status := "ok"
	if st.Waiting > 0 {
		status = "busy"
	}
	writeJSON(w, http.StatusOK, healthBody{
		Status:         status,
		Capacity:       st.Capacity,
		InFlight:       st.InFlight,
		Waiting:        st.Waiting,
		Admitted:       st.Admitted,
		Rejected:       st.Rejected,
		LiveWorkspaces: st.LiveWorkspaces,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	formats := office2pdf.SupportedFormats()
	out := make([]formatBody, len(formats))
	for i, f := range formats {
		out[i] = formatBody{Format: string(f), Family: string(f.Family())}
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(kind office2pdf.Kind) int {
	switch kind {
	case office2pdf.KindUnsupportedFormat:
		return http.StatusBadRequest
	case office2pdf.KindOverloaded:
		return http.StatusServiceUnavailable
	case office2pdf.KindRenderFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	// Some multipart paths flatten the error into text.
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
