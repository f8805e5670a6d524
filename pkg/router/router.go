package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jamesprial/colony-directory/internal/logging"
	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/jamesprial/colony-directory/pkg/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HEALTH         = "/healthz"
	READY          = "/readyz"
	METRICS        = "/metrics"
	HTTP           = "/mcp/stream"
	SSE            = "/mcp/sse"
	COMPANY        = "/company/{name}"
	COMMON_FRIENDS = "/common-friends/{ids}"
	FAVOURITE_FOOD = "/favourite-foods/{id}"

	// idSeparator splits the person ids of a common-friends request.
	idSeparator = ":"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	// BasePath to mount the router under, e.g. "/api" (optional).
	BasePath string
	// StreamOptions passed to the MCP streamable HTTP handler (nil = defaults).
	StreamOptions *mcp.StreamableHTTPOptions
	// EnableSSE registers the SSE endpoint at <BasePath>/mcp/sse.
	EnableSSE bool
	// EnableStream registers the streamable HTTP endpoint at <BasePath>/mcp/stream.
	EnableStream bool
	// EnableMetrics registers the prometheus endpoint at <BasePath>/metrics.
	EnableMetrics bool
	Name          string
	Version       string
}

// NewRouter returns an http.Handler that mounts the query, health, info,
// metrics and MCP endpoints.
//
// Endpoints (relative to cfg.BasePath, trailing slashes optional):
//
//	GET  /                         - basic info and available endpoints
//	GET  /healthz                  - liveness probe ("ok")
//	GET  /readyz                   - readiness probe, 503 until a dataset is loaded
//	GET  /company/{name}/          - employees of a company
//	GET  /common-friends/{ids}/    - common alive brown-eyed friends, ids joined by ':'
//	GET  /favourite-foods/{id}/    - a person's favourite foods by kind
//	GET  /metrics                  - prometheus metrics (if EnableMetrics)
//	GET  /mcp/sse                  - MCP over Server-Sent Events (if EnableSSE)
//	POST /mcp/stream               - MCP streamable HTTP (if EnableStream)
func NewRouter(srv *server.Server, mcpServer *mcp.Server, logger *slog.Logger, cfg *RouterConfig) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &RouterConfig{EnableStream: true}
	}

	// Utility to join base and path cleanly.
	join := func(base, path string) string {
		b := strings.TrimRight(base, "/")
		p := strings.TrimLeft(path, "/")
		if b == "" {
			return "/" + p
		}
		return b + "/" + p
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	h := &handlers{srv: srv, logger: logger}

	routes := func(r chi.Router) {
		r.Get(HEALTH, func(w http.ResponseWriter, r *http.Request) {
			writeText(w, http.StatusOK, "ok")
		})
		r.Get(READY, func(w http.ResponseWriter, r *http.Request) {
			if !srv.Ready() {
				writeText(w, http.StatusServiceUnavailable, "not ready")
				return
			}
			writeText(w, http.StatusOK, "ok")
		})

		// Root info endpoint: advertises available endpoints.
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			type endpoints struct {
				Health         string `json:"health"`
				Ready          string `json:"ready"`
				Company        string `json:"company"`
				CommonFriends  string `json:"commonFriends"`
				FavouriteFoods string `json:"favouriteFoods"`
				Metrics        string `json:"metrics,omitempty"`
				SSE            string `json:"sse,omitempty"`
				Stream         string `json:"stream,omitempty"`
			}
			info := struct {
				Name      string    `json:"name"`
				Version   string    `json:"version"`
				Ready     bool      `json:"ready"`
				Timestamp time.Time `json:"timestamp"`
				Endpoints endpoints `json:"endpoints"`
			}{
				Name:      cfg.Name,
				Version:   cfg.Version,
				Ready:     srv.Ready(),
				Timestamp: time.Now().UTC(),
				Endpoints: endpoints{
					Health:         join(cfg.BasePath, HEALTH),
					Ready:          join(cfg.BasePath, READY),
					Company:        join(cfg.BasePath, COMPANY),
					CommonFriends:  join(cfg.BasePath, COMMON_FRIENDS),
					FavouriteFoods: join(cfg.BasePath, FAVOURITE_FOOD),
				},
			}
			if cfg.EnableMetrics {
				info.Endpoints.Metrics = join(cfg.BasePath, METRICS)
			}
			if cfg.EnableSSE {
				info.Endpoints.SSE = join(cfg.BasePath, SSE)
			}
			if cfg.EnableStream {
				info.Endpoints.Stream = join(cfg.BasePath, HTTP)
			}
			writeJSON(w, http.StatusOK, info)
		})

		r.Get(COMPANY, h.companyEmployees)
		r.Get(COMMON_FRIENDS, h.commonFriends)
		r.Get(FAVOURITE_FOOD, h.favouriteFoods)

		if cfg.EnableMetrics {
			r.Handle(METRICS, promhttp.Handler())
		}

		// MCP handlers (mounted under /mcp/...)
		if cfg.EnableSSE {
			// SSE handler provided by the MCP SDK.
			r.Handle(SSE, mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return mcpServer }))
		}
		if cfg.EnableStream {
			// Streamable HTTP handler provided by the MCP SDK.
			r.Handle(HTTP, mcp.NewStreamableHTTPHandler(
				func(*http.Request) *mcp.Server { return mcpServer },
				cfg.StreamOptions,
			))
		}
	}

	if base := strings.TrimRight(cfg.BasePath, "/"); base != "" {
		r.Route(base, routes)
	} else {
		routes(r)
	}

	return r
}

type handlers struct {
	srv    *server.Server
	logger *slog.Logger
}

func (h *handlers) companyEmployees(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.srv.CompanyEmployees(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) commonFriends(w http.ResponseWriter, r *http.Request) {
	raw, err := pathParam(r, "ids")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.srv.CommonFriends(r.Context(), server.CommonFriendsParams{
		People: strings.Split(raw, idSeparator),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) favouriteFoods(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.srv.FavouriteFoods(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// pathParam returns a decoded URL parameter. chi matches on the raw path when
// the request escapes characters such as '/', leaving the value escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", errors.Join(directory.ErrInvalidArgument, err)
	}
	return decoded, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.LoggerWithContext(r.Context(), h.logger).Error("query failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// requestLogger is a lightweight HTTP middleware that logs request/response
// details, tagged with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)

			lw := &loggingResponseWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(lw, r)
			logging.LoggerWithContext(ctx, logger).Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", lw.status),
				slog.Int64("bytes", lw.bytes),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.status = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lw.ResponseWriter.Write(b)
	lw.bytes += int64(n)
	return n, err
}

// Flush lets streaming handlers (SSE) push events through the wrapper.
func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
