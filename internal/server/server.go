package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter отдаёт каталог publicDir только на чтение. Любой origin допускается.
func NewRouter(publicDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	files := http.FileServer(http.Dir(publicDir))
	r.NoRoute(func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			c.Header("Allow", "GET, HEAD, OPTIONS")
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		// NoRoute заранее ставит 404, файловый сервер сам выставит итоговый код
		c.Status(http.StatusOK)
		files.ServeHTTP(c.Writer, c.Request)
	})
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve запускает сервер на addr и останавливает его при отмене ctx.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("static server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		slog.Info("static server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
