package server

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/technopolitica/open-registry/internal/domain"
	"github.com/technopolitica/open-registry/internal/ingest"
	"go.uber.org/zap"
)

// AuthInfo identifies the caller of an authenticated request.
type AuthInfo struct {
	Subject string
}

type contextKey int

const (
	contextKeyAuth contextKey = iota
)

// GetAuthInfo returns the caller of r. ok is false when authentication is
// disabled.
func GetAuthInfo(r *http.Request) (auth AuthInfo, ok bool) {
	auth, ok = r.Context().Value(contextKeyAuth).(AuthInfo)
	return
}

// Ingester resolves a plate candidate to a stored vehicle record.
type Ingester interface {
	IngestWithOutcome(ctx context.Context, candidate string) (domain.VehicleRecord, ingest.Outcome, error)
}

// VehicleLister pages through cached vehicle records.
type VehicleLister interface {
	List(ctx context.Context, params domain.ListVehiclesParams) (domain.Page[domain.VehicleRecord], error)
}

type Options struct {
	// PublicKey verifies RS256/384/512 bearer tokens. Nil disables
	// authentication.
	PublicKey *rsa.PublicKey
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// Timeout bounds each request; defaults to a minute since ingestion waits
	// on the registry.
	Timeout time.Duration
}

type Env struct {
	ingester Ingester
	vehicles VehicleLister
	log      *zap.Logger
}

func parseBearerToken(r *http.Request) (bearerToken string, err error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		err = fmt.Errorf("missing required Authorization header")
		return
	}
	bearerToken, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		err = fmt.Errorf("unsupported or malformed Authorization header (only Bearer scheme is supported)")
		return
	}
	if bearerToken == "" {
		err = fmt.Errorf("malformed Authorization header missing bearer token")
		return
	}
	return
}

func checkAuthentication(r *http.Request, publicKey *rsa.PublicKey) (authInfo AuthInfo, err error) {
	bearerToken, err := parseBearerToken(r)
	if err != nil {
		return
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name}))
	var claims jwt.RegisteredClaims
	authToken, err := parser.ParseWithClaims(bearerToken, &claims, func(t *jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		err = fmt.Errorf("invalid auth token: %w", err)
		return
	}
	if !authToken.Valid {
		err = fmt.Errorf("invalid auth token")
		return
	}
	authInfo = AuthInfo{Subject: claims.Subject}
	return
}

func authentication(publicKey *rsa.PublicKey, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authInfo, err := checkAuthentication(r, publicKey)
			if err != nil {
				log.Info("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
				w.Header().Set("WWW-Authenticate", `Bearer, charset="UTF-8"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), contextKeyAuth, authInfo))
			next.ServeHTTP(w, r)
		})
	}
}

func addHostToRequestURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Host = r.Host
		if r.TLS != nil {
			r.URL.Scheme = "https"
		} else {
			r.URL.Scheme = "http"
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("handled request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// New builds the HTTP API. /health and /metrics never require
// authentication.
// FIXME: probably MUCH better to use JWKS here so we don't have to restart the server to change keys.
func New(ingester Ingester, vehicles VehicleLister, options Options, log *zap.Logger) *chi.Mux {
	log = log.Named("http")
	if options.Timeout == 0 {
		options.Timeout = time.Minute
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/health"))
	if options.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", options.Metrics)
	}

	router.Group(func(router chi.Router) {
		router.Use(middleware.Timeout(options.Timeout))
		router.Use(addHostToRequestURL)
		if options.PublicKey != nil {
			router.Use(authentication(options.PublicKey, log))
		}

		env := &Env{ingester: ingester, vehicles: vehicles, log: log}
		router.Mount("/vehicles", NewVehiclesRouter(env))
	})

	return router
}
