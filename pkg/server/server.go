// Package server exposes the query API and a direct-import endpoint over the
// same pipeline the queue listener runs.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"telimport/pkg/agent"
	apperrors "telimport/pkg/common/errors"
	"telimport/pkg/extract"
	"telimport/pkg/store"
)

// PackageStore is the read surface the API needs from the record store.
type PackageStore interface {
	FindByPartner(ctx context.Context, partner string) ([]extract.Package, error)
	FindByServiceType(ctx context.Context, serviceType string) ([]extract.Package, error)
	Find(ctx context.Context, filter bson.M, limit int64) ([]extract.Package, error)
	Statistics(ctx context.Context) (store.Statistics, error)
}

// Server wires the HTTP routes.
type Server struct {
	engine  *gin.Engine
	store   PackageStore
	handler *agent.Handler
}

func New(packages PackageStore, handler *agent.Handler) *Server {
	s := &Server{
		engine:  gin.Default(),
		store:   packages,
		handler: handler,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	v1 := s.engine.Group("/v1")
	{
		v1.GET("/packages", s.listPackages)
		v1.GET("/packages/stats", s.stats)
		v1.POST("/import", s.importBlob)
	}
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	log.Printf("server: listening on %s", addr)
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPackages(c *gin.Context) {
	ctx := c.Request.Context()

	var packages []extract.Package
	var err error
	switch {
	case c.Query("partner") != "":
		packages, err = s.store.FindByPartner(ctx, c.Query("partner"))
	case c.Query("service_type") != "":
		packages, err = s.store.FindByServiceType(ctx, c.Query("service_type"))
	default:
		packages, err = s.store.Find(ctx, nil, 1000)
	}
	if err != nil {
		log.Printf("server: package query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.Message(err)})
		return
	}
	if packages == nil {
		packages = []extract.Package{}
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.store.Statistics(c.Request.Context())
	if err != nil {
		log.Printf("server: stats query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type importRequest struct {
	BlobID string `json:"blob_id" binding:"required"`
}

// importBlob runs the queue pipeline synchronously for one blob.
func (s *Server) importBlob(c *gin.Context) {
	var body importRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blob_id is required"})
		return
	}

	resp := s.handler.Handle(c.Request.Context(), agent.Request{
		ID:     uuid.New().String(),
		Method: "import_file",
		Params: map[string]any{"blob_id": body.BlobID},
	})

	status := http.StatusOK
	if resp.Result.Status != agent.StatusSuccess {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}
