package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"

	"github.com/robertsLando/upscaler/internal/core/domain"
	"github.com/robertsLando/upscaler/internal/core/port"
)

const maxUploadBytes = 64 << 20

// Server exposes the upscale pipeline over HTTP: POST /upscale and a
// liveness probe on GET /health. The probe never touches the model.
type Server struct {
	pipeline  port.Pipeline
	maxUpload int64
	srv       *http.Server
}

func New(addr string, pipeline port.Pipeline) *Server {
	s := &Server{pipeline: pipeline, maxUpload: maxUploadBytes}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upscale", s.handleUpscale)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleUpscale(w http.ResponseWriter, r *http.Request) {
	reqID, _ := uuid.NewV4()
	l := log.With().Str("requestId", reqID.String()).Logger()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		l.Warn().Err(err).Msg("rejected multipart form")
		writeError(w, fmt.Errorf("%w: could not parse multipart form: %s", domain.ErrValidation, err))
		return
	}

	spec, err := parseSpec(r)
	if err != nil {
		l.Warn().Err(err).Msg("rejected size spec")
		writeError(w, err)
		return
	}

	f, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing image file", domain.ErrValidation))
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		writeError(w, fmt.Errorf("%w: could not read upload: %s", domain.ErrValidation, err))
		return
	}

	l.Info().Str("filename", header.Filename).Int("bytes", len(raw)).Msg("handling upscale request")

	res, err := s.pipeline.Run(r.Context(), raw, spec)
	if err != nil {
		l.Error().Err(err).Msg("upscale request failed")
		writeError(w, err)
		return
	}

	l.Info().Int("width", res.Width).Int("height", res.Height).Msg("request served")

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=upscaled_%s", header.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.PNG)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"message": "image upscaler is running",
	})
}

// parseSpec reads the two mutually exclusive target-size forms from the
// request; the domain constructor arbitrates between them.
func parseSpec(r *http.Request) (domain.SizeSpec, error) {
	widthPx, err := formInt(r, "target_width")
	if err != nil {
		return nil, err
	}

	heightPx, err := formInt(r, "target_height")
	if err != nil {
		return nil, err
	}

	widthCm, err := formFloat(r, "width_cm")
	if err != nil {
		return nil, err
	}

	heightCm, err := formFloat(r, "height_cm")
	if err != nil {
		return nil, err
	}

	dpi, err := formInt(r, "dpi")
	if err != nil {
		return nil, err
	}

	return domain.ParseSizeSpec(widthPx, heightPx, widthCm, heightCm, dpi)
}

func formInt(r *http.Request, key string) (*int, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
	}

	return &n, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, key)
	}

	return &n, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
