// Package server is the HTTP surface of the preview service
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/arpreview/asset"
	"github.com/roboticeyes/arpreview/auth"
	"github.com/roboticeyes/arpreview/config"
	"github.com/roboticeyes/arpreview/convert"
	"github.com/roboticeyes/arpreview/event"
	"github.com/roboticeyes/arpreview/status"
	"github.com/roboticeyes/arpreview/viewer"
)

var log = event.Log

// Converter turns an image into a 3D asset
type Converter interface {
	Convert(ctx context.Context, fileName string, data []byte) (*convert.Result, *status.Status)
	Health(ctx context.Context) (convert.Health, *status.Status)
}

// preview bundles everything belonging to one front-end variant
type preview struct {
	viewer *viewer.Viewer
	hub    *viewer.Hub
	store  *asset.Store
}

// Server wires the viewers, the asset stores and the converter to HTTP
type Server struct {
	config    config.Config
	converter Converter
	keys      *auth.Keys
	previews  map[viewer.Variant]*preview
	engine    *gin.Engine
}

// New creates the server and registers all routes
func New(cfg config.Config, converter Converter, keys *auth.Keys) *Server {
	if keys == nil {
		keys = auth.StaticKeys("")
	}
	s := &Server{
		config:    cfg,
		converter: converter,
		keys:      keys,
		previews:  make(map[viewer.Variant]*preview),
	}
	for _, variant := range []viewer.Variant{viewer.VariantModel, viewer.VariantImage} {
		v := viewer.New(variant)
		s.previews[variant] = &preview{
			viewer: v,
			hub:    viewer.NewHub(v),
			store:  asset.NewStore("/assets/" + string(variant)),
		}
	}
	s.engine = s.routes()
	return s
}

// Handler returns the gin engine
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// Viewer returns the viewer of a variant
func (s *Server) Viewer(variant viewer.Variant) *viewer.Viewer {
	return s.previews[variant].viewer
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), event.RequestLogger(), s.cors)

	r.GET("/", s.page("index.html"))
	r.GET("/image", s.page("image.html"))
	r.GET("/viewer.js", s.page("viewer.js"))
	r.GET("/healthz", s.health)
	r.GET("/assets/:variant/:id/:name", s.serveAsset)

	api := r.Group("/api/:variant", s.resolveVariant)
	api.GET("/state", s.state)
	api.GET("/ws", s.websocket)
	api.POST("/loaded", s.loaded)
	api.POST("/error", s.viewerError)
	api.POST("/upload", s.keys.ValidateToken, s.upload)
	return r
}

// cors allows the pages to be served from a different origin
func (s *Server) cors(c *gin.Context) {
	origin := s.config.CORSOrigin
	if origin == "" {
		c.Next()
		return
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
