// Package http exposes the budget engine as a JSON REST API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"xubudget/internal/cache"
	"xubudget/internal/log"
	"xubudget/internal/services"
)

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{clients: make(map[string]*clientInfo)}
}

// allow grants up to 60 mutating requests per client per minute.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

// Server serves the REST API. Rendered read payloads are cached per
// (user, period, view) and dropped whenever that user's state mutates.
type Server struct {
	http.Server
	svc          *services.BudgetService
	logger       *log.Logger
	limiter      *rateLimiter
	viewCache    *cache.LRUCache[any]
	cancelCache  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *services.BudgetService, cacheSize int, cacheTTL time.Duration, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:    http.Server{Addr: addr, Handler: mux},
		svc:       svc,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   newRateLimiter(),
		viewCache: cache.NewLRU[any](cacheSize, cacheTTL),
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.cancelCache = cancel
	go s.viewCache.Janitor(janitorCtx, time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	wrap := s.middleware

	// State and reference data
	mux.HandleFunc("GET /api/state", wrap(s.handleState))
	mux.HandleFunc("GET /api/period/{period}", wrap(s.handlePeriodState))
	mux.HandleFunc("GET /api/periods", wrap(s.handlePeriods))
	mux.HandleFunc("GET /api/icons", wrap(s.handleIcons))
	mux.HandleFunc("GET /api/budget_structure", wrap(s.handleBudgetStructure))
	mux.HandleFunc("GET /api/categories", wrap(s.handleCategories))

	// Reports
	mux.HandleFunc("GET /api/dashboard_summary", wrap(s.handleSummary))
	mux.HandleFunc("GET /api/safe_to_spend", wrap(s.handleSafeToSpend))
	mux.HandleFunc("GET /api/category_analysis/{name}", wrap(s.handleCategoryAnalysis))
	mux.HandleFunc("GET /api/daily_briefing", wrap(s.handleDailyBriefing))
	mux.HandleFunc("GET /api/timeline", wrap(s.handleTimeline))

	// Expenses
	mux.HandleFunc("GET /api/expenses", wrap(s.handleListExpenses))
	mux.HandleFunc("POST /api/add_expense", wrap(s.handleAddExpense))
	mux.HandleFunc("PATCH /api/expenses/{id}", wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", wrap(s.handleDeleteExpense))
	mux.HandleFunc("POST /api/expense/reclassify", wrap(s.handleReclassify))
	mux.HandleFunc("POST /api/ai/learn_merchant_category", wrap(s.handleLearnMerchant))

	// Incomes
	mux.HandleFunc("GET /api/incomes", wrap(s.handleListIncomes))
	mux.HandleFunc("POST /api/add_income", wrap(s.handleAddIncome))
	mux.HandleFunc("PATCH /api/incomes/{id}", wrap(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", wrap(s.handleDeleteIncome))

	// Budget configuration and goals
	mux.HandleFunc("POST /api/set_budget", wrap(s.handleSetBudget))
	mux.HandleFunc("POST /api/set_category_budget", wrap(s.handleSetCategoryBudget))
	mux.HandleFunc("POST /api/set_subcategory_budget", wrap(s.handleSetSubcategoryBudget))
	mux.HandleFunc("POST /api/set_budget_mode", wrap(s.handleSetBudgetMode))
	mux.HandleFunc("POST /api/activate_icon", wrap(s.handleActivateIcon))
	mux.HandleFunc("POST /api/goals", wrap(s.handleCreateGoal))
	mux.HandleFunc("PATCH /api/goals/{id}", wrap(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", wrap(s.handleDeleteGoal))

	return s
}

// middleware adds request ids, security headers, rate limiting on mutating
// methods, and request logging.
func (s *Server) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		w.Header().Set("X-Request-ID", requestID)

		if r.Method != http.MethodGet && !s.limiter.allow(clientIP) {
			s.logger.Warn("rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.Info("request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) viewKey(userID, period, view string) string {
	return userID + "/" + period + "/" + view
}

// invalidateUser drops every cached view for a user. Mutations can change
// cross-period payloads (the available-periods list), so the whole user is
// flushed, not just one period.
func (s *Server) invalidateUser(userID string) {
	s.viewCache.DeletePrefix(userID + "/")
}

// Shutdown stops the cache janitor and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.cancelCache != nil {
			s.cancelCache()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
