package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/storage"
)

// Server holds the dependencies shared by every route.
type Server struct {
	Config *config.AppConfig
	DB     *database.DBinstanceStruct
	// Store is nil when uploads are kept in the database.
	Store storage.Storage
	// Redis is nil when rate limits and revoked tokens stay in memory.
	Redis     redis.UniversalClient
	Events    events.Publisher
	Blacklist auth.JwtBlacklistStore
	// Registerer receives the HTTP collectors. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewHTTPServer builds the http.Server for s, traced with otelhttp.
func NewHTTPServer(s *Server) (*http.Server, error) {
	handler, err := s.RegisterRoutes()
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Config.Port),
		Handler:      otelhttp.NewHandler(handler, "internhub"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}
