// Package serve exposes stored courses through a read-only JSON API.
package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtnitsch/course-crawler/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CourseReader is the read side of a course store.
type CourseReader interface {
	GetCourse(ctx context.Context, id string) (models.CourseRecord, error)
	ListCourses(ctx context.Context, q models.CourseQuery) ([]models.CourseRecord, int, error)
}

// NewRouter builds the API routes over store.
func NewRouter(store CourseReader, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors())

	h := &handler{store: store, logger: logger}
	api := r.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.GET("/courses", h.listCourses)
		api.GET("/courses/:id", h.getCourse)
	}
	return r
}

// Serve runs the API on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type handler struct {
	store  CourseReader
	logger *slog.Logger
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Server is running",
	})
}

func (h *handler) listCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	q, err := courseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
		return
	}
	q.Limit = pageSize
	q.Offset = (page - 1) * pageSize

	list, total, err := h.store.ListCourses(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("List courses failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "failed to list courses"})
		return
	}
	if list == nil {
		list = []models.CourseRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"list":      list,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

func (h *handler) getCourse(c *gin.Context) {
	id := c.Param("id")
	course, err := h.store.GetCourse(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "course not found"})
		return
	}
	if err != nil {
		h.logger.Error("Get course failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "failed to get course"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "success", "data": course})
}

// courseQuery maps query-string filters onto a CourseQuery.
func courseQuery(c *gin.Context) (models.CourseQuery, error) {
	q := models.CourseQuery{
		Status: models.Status(c.Query("status")),
		Rarity: models.Rarity(c.Query("rarity")),
		Tag:    c.Query("tag"),
		Search: strings.TrimSpace(c.Query("q")),
	}
	if q.Status != "" && q.Status.Color() == "" {
		return q, errors.New("unknown status " + string(q.Status))
	}
	if q.Rarity != "" && !q.Rarity.Valid() {
		return q, errors.New("unknown rarity " + string(q.Rarity))
	}
	if v := c.Query("level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil || level < 1 || level > 5 {
			return q, errors.New("level must be 1-5")
		}
		q.Level = level
	}
	if v := c.Query("synthetic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("synthetic must be true or false")
		}
		q.Synthetic = &b
	}

	field := c.DefaultQuery("sort", "heat")
	if !models.SortFields[field] {
		return q, errors.New("unknown sort field " + field)
	}
	switch c.Query("order") {
	case "asc":
		q.Sort = field
	case "desc":
		q.Sort = "-" + field
	case "":
		// heat defaults to descending, everything else to ascending
		q.Sort = field
		if field == "heat" {
			q.Sort = "-heat"
		}
	default:
		return q, errors.New("order must be asc or desc")
	}
	return q, nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
