package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"travelbook/internal/auth"
	"travelbook/internal/config"
	"travelbook/internal/export"
	"travelbook/internal/metrics"
	"travelbook/internal/models"
	"travelbook/internal/service"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// PhotoOpener serves stored images by name.
type PhotoOpener interface {
	Open(name string) (*os.File, error)
}

// SyncTaskLister exposes failed ledger sync tasks to admins.
type SyncTaskLister interface {
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
}

// Services bundles what the HTTP handlers call into. Optional fields may be nil.
type Services struct {
	Users     *service.UserService
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Bookings  *service.BookingService
	Exporter  *export.Exporter
	Photos    PhotoOpener
	SyncTasks SyncTaskLister
	// Ready reports whether dependencies (database, redis) are reachable.
	Ready func(ctx context.Context) error
}

// HTTPServer exposes the travel booking REST API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	server  *http.Server
	limiter *rateLimiter
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLogger := logger.With().Str("component", "http").Logger()

	s := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  &httpLogger,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.identify(handler)
	handler = s.timeout(handler)
	handler = s.rateLimit(handler)
	handler = s.recoverer(handler)
	handler = s.logRequests(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	}).Handler(handler)

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	// users
	s.handle(mux, "POST /users/register", s.handleRegister)
	s.handle(mux, "GET /users/loguser/{username}", s.handleLoggedUser)
	s.handle(mux, "POST /users/login", s.handleLogin)
	s.handle(mux, "POST /users/logout", s.user(s.handleLogout))

	// catalog
	s.handle(mux, "GET /places/places/{category}", s.handlePlacesByCategory)
	s.handle(mux, "GET /places/placedetails/{id}", s.handlePlaceDetails)

	// admin
	s.handle(mux, "POST /admins/place/{username}", s.admin(s.handleCreatePlace))
	s.handle(mux, "PUT /admins/places/{id}", s.admin(s.handleUpdatePlace))
	s.handle(mux, "DELETE /admins/places/{id}", s.admin(s.handleDeletePlace))
	s.handle(mux, "POST /admins/accounts", s.admin(s.handleRegister))
	s.handle(mux, "GET /admins/users", s.admin(s.handleListUsers))
	s.handle(mux, "GET /admins/feedbacks", s.admin(s.handleListFeedback))
	s.handle(mux, "GET /admins/tours/{username}", s.admin(s.handleUserTours))
	s.handle(mux, "DELETE /admins/delete/{id}", s.admin(s.handleDeleteUser))
	s.handle(mux, "GET /admins/export", s.admin(s.handleExport))
	s.handle(mux, "GET /admins/sync/failed", s.admin(s.handleFailedSync))
	s.handle(mux, "DELETE /admins/bookings/{id}", s.admin(s.handleDeleteBooking))

	// cart
	s.handle(mux, "GET /cart", s.user(s.handleListCart))
	s.handle(mux, "DELETE /cart", s.user(s.handleClearCart))
	s.handle(mux, "POST /cart/items", s.user(s.handleAddCartItem))
	s.handle(mux, "GET /cart/items/{key}", s.user(s.handleGetCartItem))
	s.handle(mux, "DELETE /cart/items/{key}", s.user(s.handleRemoveCartItem))

	// payment
	s.handle(mux, "POST /payment/post/{id}", s.user(s.handleCheckout))
	s.handle(mux, "GET /payment/mybookings/{username}", s.user(s.handleMyBookings))
	s.handle(mux, "GET /payment/getTransactions/{username}", s.user(s.handleTransactions))
	s.handle(mux, "GET /payment/receipt/{id}", s.user(s.handleReceipt))

	// profile
	s.handle(mux, "POST /profile/edit", s.user(s.handleEditProfile))
	s.handle(mux, "POST /profile/changepass", s.user(s.handleChangePassword))
	s.handle(mux, "POST /profile/remove", s.user(s.handleRemovePhoto))
	s.handle(mux, "POST /profile/photo", s.user(s.handleUploadPhoto))
	s.handle(mux, "POST /profile/feedback", s.user(s.handleAddFeedback))
	s.handle(mux, "POST /index/fd", s.user(s.handleAddFeedback))
	s.handle(mux, "DELETE /profile/deletefeedback/{id}", s.user(s.handleDeleteFeedback))

	s.handle(mux, "GET /photos/{name}", s.handlePhoto)
	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
}

// handle registers a route and records per-pattern metrics.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec, ok := w.(*statusRecorder)
		if !ok {
			rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		}
		h(rec, r)
		metrics.IncHTTP(pattern, strconv.Itoa(rec.status))
		metrics.ObserveHTTP(pattern, time.Since(start).Seconds())
	}))
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// logRequests assigns a request id, puts a request scoped logger into the
// context and logs one line per request.
func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		evt := reqLogger.Info()
		if recorder.status >= http.StatusInternalServerError {
			evt = reqLogger.Error()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				zerolog.Ctx(r.Context()).Error().Interface("panic", p).Str("path", r.URL.Path).Msg("http handler panic")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) timeout(next http.Handler) http.Handler {
	d := s.cfg.HTTP.RequestTimeout
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify attaches the caller's claims when a token is presented. A token
// that fails verification is rejected even on public routes.
func (s *HTTPServer) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || s.svc.Users == nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.svc.Users.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		l := zerolog.Ctx(ctx).With().Str("username", claims.Username).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(ctx)))
	})
}

// user requires an authenticated caller.
func (s *HTTPServer) user(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()) == nil {
			writeServiceError(w, r, service.ErrUnauthorized)
			return
		}
		h(w, r)
	}
}

// admin requires an authenticated admin.
func (s *HTTPServer) admin(h http.HandlerFunc) http.HandlerFunc {
	return s.user(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).IsAdmin() {
			writeServiceError(w, r, service.ErrForbidden)
			return
		}
		h(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	// ссылки на чек открываются из браузера без заголовков
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
