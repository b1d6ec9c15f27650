package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/nlq"
	"github.com/rushteam/procurekit/service"
)

const maxBodyBytes = 8 << 20

// SearchRequest 是查询请求：natural_query 与 params 二选一。
type SearchRequest struct {
	NaturalQuery string                `json:"natural_query"`
	Limit        int                   `json:"limit"`
	Params       *core.QueryParameters `json:"params,omitempty"`
}

// SearchResponse 是查询响应。
type SearchResponse struct {
	Entries  []*core.Item `json:"entries"`
	Metadata Metadata     `json:"metadata"`
}

type Metadata struct {
	Summary   service.Summary       `json:"summary"`
	Params    *core.QueryParameters `json:"params"`
	Fallback  bool                  `json:"fallback"`
	Cause     string                `json:"cause,omitempty"`
	Anomalies []nlq.Anomaly         `json:"anomalies,omitempty"`
}

// IngestRequest 是导入请求，每条记录按属性名映射。
type IngestRequest struct {
	Records []map[string]any `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.facade.Health()
	status := http.StatusOK
	if !h.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Limit > s.cfg.MaxLimit {
		req.Limit = s.cfg.MaxLimit
	}

	var resp SearchResponse
	switch {
	case req.Params != nil:
		params := *req.Params
		if req.Limit != 0 {
			params.Limit = req.Limit
		}
		if params.Limit == 0 {
			params.Limit = core.DefaultLimit
		}
		params.Limit = min(params.Limit, s.cfg.MaxLimit)
		items, err := s.facade.Search(r.Context(), &params)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Entries = items
		resp.Metadata.Params = &params

	case strings.TrimSpace(req.NaturalQuery) != "":
		ans, err := s.facade.Ask(r.Context(), req.NaturalQuery, req.Limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Entries = ans.Items
		resp.Metadata.Params = ans.Params
		resp.Metadata.Fallback = ans.Extraction.Fallback
		resp.Metadata.Anomalies = ans.Extraction.Anomalies
		if ans.Extraction.Cause != nil {
			resp.Metadata.Cause = ans.Extraction.Cause.Error()
		}

	default:
		s.writeError(w, r, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput, "natural_query or params is required"))
		return
	}

	if resp.Entries == nil {
		resp.Entries = []*core.Item{}
	}
	resp.Metadata.Summary = service.Summarize(resp.Entries)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		s.writeError(w, r, core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput, "records is empty"))
		return
	}
	report, err := s.loader.Records(r.Context(), req.Records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return core.WrapError(core.ModuleQuery, core.ErrorCodeInvalidInput, "invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusClientClosed 是客户端断开时的非标准状态码。
const statusClientClosed = 499

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	resp := errorResponse{Error: err.Error()}
	var de *core.DomainError
	if errors.As(err, &de) {
		resp.Code = de.Code
	}
	writeJSON(w, status, resp)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case core.IsInvalidInput(err), core.IsInvalidParameters(err), core.IsInvalidFilter(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsExternalService(err):
		return http.StatusBadGateway
	case core.IsUnavailable(err), core.IsNotSupported(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
