package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/umlstream/pkg/buildinfo"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/observability"
	"github.com/matzehuels/umlstream/pkg/pipeline"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// urlFormats maps URL path segments to formats.
var urlFormats = map[string]plantuml.Format{
	"png":  plantuml.FormatPNG,
	"svg":  plantuml.FormatSVG,
	"txt":  plantuml.FormatASCII,
	"utxt": plantuml.FormatUnicode,
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, struct {
		Status string         `json:"status"`
		Engine string         `json:"engine,omitempty"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", s.runner.Engine, buildinfo.Current()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, r, umlerrors.New(umlerrors.ErrCodeNotFound, "stats are not enabled"))
		return
	}
	writeJson(w, s.stats.Snapshot())
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	src, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.runner.Encode(r.Context(), src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJson(w, map[string]string{"token": token})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	src, err := s.runner.Decode(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, src)
}

func (s *Server) handleRenderToken(w http.ResponseWriter, r *http.Request) {
	req, err := s.renderRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Token = chi.URLParam(r, "token")
	s.render(w, r, req)
}

func (s *Server) handleRenderBody(w http.ResponseWriter, r *http.Request) {
	req, err := s.renderRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Source, err = readBody(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.render(w, r, req)
}

// renderRequest builds a request from the format segment and query.
func (s *Server) renderRequest(r *http.Request) (pipeline.Request, error) {
	name := chi.URLParam(r, "format")
	format, ok := urlFormats[name]
	if !ok {
		return pipeline.Request{}, umlerrors.New(umlerrors.ErrCodeNotFound, "unknown format %q (must be one of: png, svg, txt, utxt)", name)
	}

	q := r.URL.Query()
	config := q.Get("config")
	if err := umlerrors.ValidateConfigPath(config); err != nil {
		return pipeline.Request{}, err
	}
	if config != "" {
		if _, ok := s.runner.Client.Templates()[config]; !ok {
			return pipeline.Request{}, umlerrors.New(umlerrors.ErrCodeInvalidConfig, "unknown template %q", config)
		}
	}

	return pipeline.Request{
		Format:  format,
		Config:  config,
		Refresh: q.Has("refresh"),
	}, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	res, err := s.runner.Render(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Cache-Control", "public, max-age=86400")
	h.Set(TokenHeader, res.Token)
	if res.CacheHit {
		h.Set(CacheHeader, "HIT")
	} else {
		h.Set(CacheHeader, "MISS")
	}
	w.Write(res.Data)
}

// readBody reads a diagram source from the request body.
func readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, umlerrors.MaxSourceLength)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", umlerrors.New(umlerrors.ErrCodeInvalidInput, "diagram source too large (max %d bytes)", umlerrors.MaxSourceLength)
		}
		return "", umlerrors.Wrap(umlerrors.ErrCodeInvalidInput, err, "read body")
	}
	return string(data), nil
}

type errorResponse struct {
	Error     string         `json:"error"`
	Code      umlerrors.Code `json:"code"`
	RequestID string         `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := umlerrors.GetCode(err)
	if code == "" {
		code = umlerrors.ErrCodeInternal
	}
	status := umlerrors.HTTPStatus(err)

	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(errorResponse{
		Error:     strings.TrimSpace(umlerrors.UserMessage(err)),
		Code:      code,
		RequestID: RequestID(r.Context()),
	})
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}
