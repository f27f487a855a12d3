package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/directory"
	apporder "github.com/Zhima-Mochi/minishop-sales/internal/application/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/reporting"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	routeUnknownOp       = "/api/{operation}"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth      *auth.Service
	Catalog   *catalog.Service
	Directory *directory.Service
	Orders    *apporder.Service
	Reports   *reporting.Service
}

type Options struct {
	CORSAllowedOrigins []string
	// AuthRateLimit throttles sign-up and log-in per client address.
	AuthRateLimit RateLimitConfig
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	svc     Services
	ops     map[string]operation
	log     observability.Logger
	tel     observability.Observability
	opts    Options
	limiter func(http.Handler) http.Handler
}

func NewHandler(svc Services, tel observability.Observability, opts Options) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	h := &Handler{
		svc:     svc,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
		opts:    opts,
		limiter: RateLimiter(opts.AuthRateLimit),
	}
	h.ops = h.operations()
	return h
}

// Router wires every route as Trace → request logger → HTTP metrics → access log → handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
		MaxAge:         300,
	}))

	r.Method(http.MethodGet, "/health", h.instrument("/health", http.HandlerFunc(h.handleHealth)))
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}
	r.Post("/api/{operation}", h.handleOperation)
	return r
}

func (h *Handler) handleOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "operation")
	op, ok := h.ops[name]
	if !ok {
		h.instrument(routeUnknownOp, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "UNKNOWN_OPERATION", "unknown operation "+name)
		})).ServeHTTP(w, r)
		return
	}
	next := h.serve(op)
	if op.scoped {
		next = h.withPrincipal(next)
	}
	if op.limited {
		next = h.limiter(next)
	}
	h.instrument("/api/"+name, next).ServeHTTP(w, r)
}

func (h *Handler) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(contextWithRoute(r.Context(), route))
		h.withTrace(
			ObservabilityMiddleware(h.log, func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			})(
				h.withHTTPMetrics(h.withAccessLog(next)),
			),
		).ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
