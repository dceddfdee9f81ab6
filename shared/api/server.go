// shared/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
)

type BaseServer struct {
	Router *mux.Router
	Server *http.Server
	Logger *logging.Logger
}

func NewBaseServer(addr string, logger *logging.Logger) *BaseServer {
	if logger == nil {
		logger = logging.Default()
	}

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &BaseServer{
		Router: router,
		Server: server,
		Logger: logger,
	}
}

// Start blocks serving HTTP. It returns nil after a graceful Shutdown.
func (bs *BaseServer) Start() error {
	bs.Logger.Info("starting HTTP server", "addr", bs.Server.Addr)
	if err := bs.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "HTTP server failed")
	}
	return nil
}

func (bs *BaseServer) Shutdown(ctx context.Context) error {
	bs.Logger.Info("shutting down HTTP server")
	return bs.Server.Shutdown(ctx)
}
