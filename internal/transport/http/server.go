// Package httptransport builds the HTTP server and the middleware chain in front of the API.
package httptransport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigin   string
}

// DefaultServerConfig returns timeouts suitable for the JSON API.
func DefaultServerConfig(address string) ServerConfig {
	return ServerConfig{
		Address:      address,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigin:   "*",
	}
}

// NewServer creates *http.Server with the router wrapped in recovery, logging, metrics and CORS
// middleware.
func NewServer(cfg ServerConfig, router *mux.Router, logger logrus.FieldLogger) *http.Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router.Use(
		PanicRecovery(logger),
		LogRequest(logger),
		Cors(cfg.CORSOrigin),
	)
	// mux only runs middleware on matched routes; preflight requests need the CORS headers too.
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
