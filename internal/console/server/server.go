package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/libra-console/internal/console/handler"
	"github.com/xela07ax/libra-console/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// nil - auth выключен (локальная разработка)
	authValidator auth.TokenValidator
	gatherer      prometheus.Gatherer

	borrowHandler   *handler.BorrowHandler   // /v1/borrow-requests, /v1/decision
	decisionHandler *handler.DecisionHandler // /v1/decisions (журнал), может быть nil
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	gatherer prometheus.Gatherer,
	borrowH *handler.BorrowHandler,
	decisionH *handler.DecisionHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		authValidator:   validator,
		gatherer:        gatherer,
		borrowHandler:   borrowH,
		decisionHandler: decisionH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР ---
	r.Group(func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		}

		// Очередь заявок на выдачу
		r.Route("/v1/borrow-requests", func(r chi.Router) {
			r.Get("/", s.borrowHandler.List)         // Таблица (с фильтром)
			r.Put("/search", s.borrowHandler.Search) // Строка поиска (debounce)
			r.Post("/refresh", s.borrowHandler.Refresh)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/approve", s.borrowHandler.Approve) // Взвести "подтвердить"
				r.Post("/reject", s.borrowHandler.Reject)   // Взвести "отклонить"
			})
		})

		// Окно подтверждения
		r.Route("/v1/decision", func(r chi.Router) {
			r.Get("/", s.borrowHandler.GetDecision)
			r.Delete("/", s.borrowHandler.Cancel)
			r.Post("/confirm", s.borrowHandler.Confirm) // Commit в бэкенд
		})

		r.Get("/v1/notifications", s.borrowHandler.Notifications)

		if s.decisionHandler != nil {
			r.Get("/v1/decisions", s.decisionHandler.List)
		}
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
