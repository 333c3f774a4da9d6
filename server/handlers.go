package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/arpreview/asset"
	"github.com/roboticeyes/arpreview/convert"
	"github.com/roboticeyes/arpreview/event"
	"github.com/roboticeyes/arpreview/math"
	"github.com/roboticeyes/arpreview/status"
	"github.com/roboticeyes/arpreview/viewer"
	"github.com/roboticeyes/arpreview/web"
)

const (
	keyPreview    = "preview"
	healthTimeout = 2 * time.Second
)

// UploadResponse is returned after an asset was handed to the viewer
type UploadResponse struct {
	Asset     *asset.Asset    `json:"asset"`
	Inspected *asset.Info     `json:"inspected,omitempty"`
	State     viewer.Snapshot `json:"state"`
}

// LoadedRequest is the load-complete notification of the web viewer
type LoadedRequest struct {
	AssetURL string  `json:"assetUrl"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Z        float32 `json:"z"`
}

// LoadedResponse carries the scale the viewer has to apply
type LoadedResponse struct {
	Scale   string          `json:"scale"`
	Applied bool            `json:"applied"`
	State   viewer.Snapshot `json:"state"`
}

// ViewerErrorRequest reports that the web viewer could not load the asset
type ViewerErrorRequest struct {
	AssetURL string `json:"assetUrl"`
	Message  string `json:"message"`
}

// HealthResponse is the state of the service and its converter
type HealthResponse struct {
	Status         string          `json:"status"`
	Converter      *convert.Health `json:"converter,omitempty"`
	ConverterError string          `json:"converterError,omitempty"`
}

func (s *Server) page(name string) gin.HandlerFunc {
	contentType := "text/html; charset=utf-8"
	if filepath.Ext(name) == ".js" {
		contentType = "application/javascript; charset=utf-8"
	}
	return func(c *gin.Context) {
		data, err := web.Files.ReadFile(name)
		if err != nil {
			status.NewHTTPStatus(c, http.StatusNotFound, err)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) resolveVariant(c *gin.Context) {
	variant, ok := viewer.ParseVariant(c.Param("variant"))
	if !ok {
		status.NewStatus(nil, http.StatusNotFound, "Unknown viewer "+c.Param("variant")).Send(c)
		c.Abort()
		return
	}
	c.Set(keyPreview, s.previews[variant])
	c.Next()
}

func previewOf(c *gin.Context) *preview {
	return c.MustGet(keyPreview).(*preview)
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, previewOf(c).viewer.Snapshot())
}

func (s *Server) websocket(c *gin.Context) {
	previewOf(c).hub.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) health(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if s.converter != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		h, st := s.converter.Health(ctx)
		if st != nil {
			resp.ConverterError = st.Reason()
		} else {
			resp.Converter = &h
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) serveAsset(c *gin.Context) {
	variant, ok := viewer.ParseVariant(c.Param("variant"))
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	a, ok := s.previews[variant].store.Get(c.Param("id"))
	if !ok {
		status.NewStatus(nil, http.StatusNotFound, "Asset not found").Send(c)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, a.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, a.ContentType, a.Data())
}

// readUpload returns the uploaded file of the multipart field "file"
func (s *Server) readUpload(c *gin.Context) (string, []byte, *status.Status) {
	limit := s.config.MaxUploadSize
	if c.Request.ContentLength > limit {
		return "", nil, status.NewStatus(nil, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File is too large (max %d MB)", limit>>20))
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, status.NewStatus(nil, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File is too large (max %d MB)", limit>>20))
		}
		return "", nil, status.NewStatus(nil, http.StatusBadRequest, "Missing file in upload")
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, status.NewStatus(nil, http.StatusBadRequest, "Cannot read uploaded file")
	}
	defer file.Close()

	data, err := ioutil.ReadAll(file)
	if err != nil {
		return "", nil, status.NewStatus(nil, http.StatusBadRequest, "Cannot read uploaded file")
	}
	if len(data) == 0 {
		return "", nil, status.NewStatus(nil, http.StatusBadRequest, "Uploaded file is empty")
	}
	return asset.SanitizeName(header.Filename), data, nil
}

func (s *Server) upload(c *gin.Context) {
	p := previewOf(c)

	name, data, st := s.readUpload(c)
	if st != nil {
		st.Send(c)
		return
	}

	// a new source resets the preview before anything else happens
	selection := p.viewer.Select(name).Selection

	var contentType string
	switch p.viewer.Variant() {
	case viewer.VariantImage:
		res, st := s.convertImage(c.Request.Context(), name, data)
		if st != nil {
			s.fail(c, p, selection, st)
			return
		}
		name, contentType, data = res.Name, res.ContentType, res.Data
	default:
		if !isModelFile(name) {
			s.fail(c, p, selection, status.NewStatus(nil, http.StatusUnsupportedMediaType,
				"Only GLB and GLTF models can be previewed"))
			return
		}
	}

	info, err := asset.Inspect(bytes.NewReader(data))
	var inspected *math.Vec3f
	var infoPtr *asset.Info
	switch {
	case err == nil:
		inspected = &info.Dimensions
		infoPtr = &info
	case errors.Is(err, asset.ErrNoGeometry):
		log.WithFields(event.Fields{
			"fileName": name,
		}).Debug("Asset has no declared bounds")
	case p.viewer.Variant() == viewer.VariantModel:
		s.fail(c, p, selection, status.NewStatus(nil, http.StatusBadRequest, "File "+name+" is not a valid model"))
		return
	default:
		// the viewer decides whether a converted asset is usable
		log.WithFields(event.Fields{
			"fileName": name,
		}).Warn("Cannot inspect converted asset: ", err)
	}

	// the asset is only served if no other file was selected meanwhile
	a := p.store.Create(name, contentType, data)
	snapshot, err := p.viewer.Publish(selection, a.URL, inspected, func() {
		p.store.Replace(a)
	})
	if err != nil {
		log.WithFields(event.Fields{
			"variant":  p.viewer.Variant(),
			"fileName": name,
		}).Info("Dropping asset of a superseded upload")
		status.NewStatus(nil, http.StatusConflict, "Another file was selected meanwhile").Send(c)
		return
	}

	log.WithFields(event.Fields{
		"variant": p.viewer.Variant(),
		"asset":   a.URL,
		"size":    a.Size,
	}).Info("Asset handed to viewer")

	c.JSON(http.StatusOK, UploadResponse{
		Asset:     a,
		Inspected: infoPtr,
		State:     snapshot,
	})
}

func (s *Server) convertImage(ctx context.Context, name string, data []byte) (*convert.Result, *status.Status) {
	if s.converter == nil {
		return nil, status.NewStatus(nil, http.StatusServiceUnavailable, "No conversion service configured")
	}
	start := time.Now()
	res, st := s.converter.Convert(ctx, name, data)
	if st != nil {
		return nil, st
	}
	log.WithFields(event.Fields{
		"fileName": name,
		"asset":    res.Name,
		"duration": time.Since(start).String(),
	}).Info("Image converted")
	return res, nil
}

// fail reports the status to the page and to the caller. The request ends
// here, nothing is retried.
func (s *Server) fail(c *gin.Context, p *preview, selection uint64, st *status.Status) {
	log.WithFields(event.Fields{
		"variant": p.viewer.Variant(),
		"code":    st.Code,
	}).Warn("Upload failed: " + st.Reason())

	p.viewer.Fail(selection, st.Reason())
	st.Message = st.Reason()
	st.Send(c)
}

func (s *Server) loaded(c *gin.Context) {
	p := previewOf(c)

	var req LoadedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status.NewHTTPStatus(c, http.StatusBadRequest, err)
		return
	}

	snapshot, applied, err := p.viewer.Loaded(req.AssetURL, math.Vec3f{X: req.X, Y: req.Y, Z: req.Z})
	if err != nil {
		status.NewHTTPStatus(c, http.StatusConflict, err)
		return
	}
	c.JSON(http.StatusOK, LoadedResponse{
		Scale:   snapshot.Scale,
		Applied: applied,
		State:   snapshot,
	})
}

func (s *Server) viewerError(c *gin.Context) {
	p := previewOf(c)

	var req ViewerErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status.NewHTTPStatus(c, http.StatusBadRequest, err)
		return
	}

	current := p.viewer.Snapshot()
	if current.AssetURL == "" || (req.AssetURL != "" && req.AssetURL != current.AssetURL) {
		status.NewHTTPStatus(c, http.StatusConflict, viewer.ErrStaleAsset)
		return
	}
	message := req.Message
	if message == "" {
		message = "The viewer could not load the model"
	}
	snapshot, err := p.viewer.Fail(current.Selection, message)
	if err != nil {
		status.NewHTTPStatus(c, http.StatusConflict, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func isModelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb", ".gltf":
		return true
	}
	return false
}
