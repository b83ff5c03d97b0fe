// Package api exposes the query service over HTTP and streams committed
// score snapshots over websocket.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/pubkey"
	"solana-wallet-ledger/internal/query"
	"solana-wallet-ledger/internal/storage"
)

// DefaultRequestTimeout bounds the REST handlers; the websocket route is exempt.
const DefaultRequestTimeout = 30 * time.Second

// Server routes HTTP requests to the query service.
type Server struct {
	query   *query.Service
	hub     *Hub
	status  func() any
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
}

// Options for creating a Server.
type Options struct {
	Query *query.Service
	Hub   *Hub // optional; /api/v1/ws is not mounted without it

	Status         func() any // /status body; optional
	RequestTimeout time.Duration
	Now            func() time.Time
	Logger         *log.Logger
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		query:   opts.Query,
		hub:     opts.Hub,
		status:  opts.Status,
		timeout: timeout,
		now:     now,
		logger:  logger,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(recordRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())
	r.Get("/status", s.handleStatus)

	r.Route("/api/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))

			r.Get("/leaderboard", s.handleLeaderboard)

			r.Route("/wallets/{wallet}", func(r chi.Router) {
				r.Use(validateWallet)
				r.Get("/metrics", s.handleMetrics)
				r.Get("/closed-lots", s.handleClosedLots)
				r.Get("/positions", s.handlePositions)
				r.Get("/score-history", s.handleScoreHistory)
			})
		})
	})

	return r
}

// handleMetrics handles GET /api/v1/wallets/{wallet}/metrics?window=
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.query.GetMetrics(r.Context(), chi.URLParam(r, "wallet"), r.URL.Query().Get("window"))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleClosedLots handles GET /api/v1/wallets/{wallet}/closed-lots?asset=&from=
func (s *Server) handleClosedLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var from *int64
	if raw := q.Get("from"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, "from must be unix milliseconds", http.StatusBadRequest)
			return
		}
		from = &v
	}

	lots, err := s.query.GetClosedLots(r.Context(), chi.URLParam(r, "wallet"), q.Get("asset"), from)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closedLots": nonNil(lots)})
}

// handlePositions handles GET /api/v1/wallets/{wallet}/positions
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.query.GetOpenPositions(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"openPositions": nonNil(positions)})
}

// handleScoreHistory handles GET /api/v1/wallets/{wallet}/score-history?from=&to=&compact=
// from defaults to 0 and to defaults to now. compact=true returns history
// points instead of full snapshots.
func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseMillis(q.Get("from"), 0)
	if err != nil {
		writeError(w, "from must be unix milliseconds", http.StatusBadRequest)
		return
	}
	to, err := parseMillis(q.Get("to"), s.now().UnixMilli())
	if err != nil {
		writeError(w, "to must be unix milliseconds", http.StatusBadRequest)
		return
	}

	wallet := chi.URLParam(r, "wallet")
	if q.Get("compact") == "true" {
		points, err := s.query.ScoreTrend(r.Context(), wallet, from, to)
		if err != nil {
			s.writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"points": nonNil(points)})
		return
	}

	snaps, err := s.query.GetScoreHistory(r.Context(), wallet, from, to)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": nonNil(snaps)})
}

// handleLeaderboard handles GET /api/v1/leaderboard?limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = v
	}

	board, err := s.query.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallets": nonNil(board)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body any = map[string]string{"status": "running"}
	if s.status != nil {
		body = s.status()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, "no data yet", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Printf("[api] query failed: %v", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// validateWallet rejects wallet path parameters that are not Solana addresses.
func validateWallet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := pubkey.Validate(chi.URLParam(r, "wallet")); err != nil {
			writeError(w, "invalid wallet address", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recordRequests counts requests by route pattern and status code.
func recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(status))
	})
}

func parseMillis(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
