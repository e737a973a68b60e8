// Package httpapi exposes the service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ragindex/internal/domain"
	"ragindex/internal/extract"
	"ragindex/internal/service"
)

// Service is the part of service.RAGService the handlers use.
type Service interface {
	Ingest(ctx context.Context, document string) (int, error)
	Ask(ctx context.Context, message string) (service.Answer, error)
	Chat(ctx context.Context, message string) (string, error)
	Inspect(ctx context.Context) ([]domain.Record, error)
	Reset(ctx context.Context) error
}

type messageRequest struct {
	Message string `json:"message"`
}

type handlers struct {
	svc       Service
	maxUpload int64
}

// NewRouter registers every route on a fresh engine.
func NewRouter(svc Service, maxUploadBytes int64) *gin.Engine {
	h := &handlers{svc: svc, maxUpload: maxUploadBytes}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	router.POST("/chat", h.chat)
	router.POST("/chat-trained", h.chatTrained)
	router.POST("/embed", h.embed)
	router.GET("/visualize-db", h.visualize)
	router.DELETE("/reset-db", h.reset)
	return router
}

func (h *handlers) chat(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	out, err := h.svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ai": out})
}

func (h *handlers) chatTrained(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	ans, err := h.svc.Ask(c.Request.Context(), req.Message)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (h *handlers) embed(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	fh, err := c.FormFile("document")
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	text, err := extract.Text(fh.Header.Get("Content-Type"), data)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	n, err := h.svc.Ingest(c.Request.Context(), text)
	if err != nil {
		slog.Error("embed failed", "file", fh.Filename, "stored", n, "error", err)
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document embedded successfully", "chunks": n})
}

func (h *handlers) visualize(c *gin.Context) {
	items, err := h.svc.Inspect(c.Request.Context())
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database reset successfully"})
}

func fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps caller mistakes to 400 and everything else to 500.
func statusFor(err error) int {
	var chunkErr *domain.ChunkingError
	switch {
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText),
		errors.As(err, &chunkErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
