// Package server 以 HTTP 暴露查询、导入与健康检查接口。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rushteam/procurekit/config"
	"github.com/rushteam/procurekit/ingest"
	"github.com/rushteam/procurekit/pkg/logger"
	"github.com/rushteam/procurekit/service"
)

// Server 持有路由与依赖，本身无状态。
type Server struct {
	facade *service.Facade
	loader *ingest.Loader
	cfg    config.ServerConfig
	logger *log.Logger
}

// New 创建 Server；loader 为 nil 时不注册导入接口。
func New(facade *service.Facade, loader *ingest.Loader, cfg config.ServerConfig, lg *log.Logger) *Server {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &Server{
		facade: facade,
		loader: loader,
		cfg:    cfg,
		logger: logger.OrNop(lg).With("module", "server"),
	}
}

// Handler 返回配置好中间件的路由。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search/procurement_query", s.search)
		if s.loader != nil {
			r.Post("/ingest", s.ingest)
		}
	})
	return r
}

// ListenAndServe 启动服务，ctx 结束时优雅退出。
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
