package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/metadata"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/social"
	"github.com/rovshanmuradov/pumpbot/internal/upload"
)

const (
	msgImageUploaded   = "Image uploaded successfully"
	msgMetadataStored  = "Metadata stored successfully"
	msgLaunchPrepared  = "Transaction prepared. Sign with your wallet + mint keypair, then broadcast"
	msgLegacyImageHint = `Use the "url" value in your !pumpbot JSON as the "image" field`
)

type imageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*upload.Image
}

type metadataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*metadata.Stored
}

type prepareResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*launch.UnsignedLaunch
}

// confirmResponse carries its message inside Confirmation.
type confirmResponse struct {
	Success bool `json:"success"`
	*launch.Confirmation
}

type socialResponse struct {
	Success bool `json:"success"`
	*social.LaunchResult
}

type launchesResponse struct {
	Launches interface{} `json:"launches"`
	Count    int         `json:"count"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

func (s *Server) health(c *gin.Context) {
	database := "connected"
	if err := s.deps.Registry.Ping(c.Request.Context()); err != nil {
		database = "disconnected"
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Database:  database,
	})
}

func (s *Server) uploadImage(c *gin.Context) {
	var file upload.File

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, openErr := fh.Open()
		if openErr != nil {
			s.fail(c, apperr.Internal("Internal server error", openErr))
			return
		}
		defer f.Close()
		file = upload.File{
			Reader:       f,
			Size:         fh.Size,
			DeclaredMIME: fh.Header.Get("Content-Type"),
			Filename:     fh.Filename,
		}
	case errors.Is(err, http.ErrMissingFile):
		// the intake reports the missing file
	default:
		s.fail(c, requestError("Upload error", err))
		return
	}

	img, err := s.deps.Images.Store(c.Request.Context(), file, s.baseURL(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imageResponse{Success: true, Message: msgImageUploaded, Image: img})
}

func (s *Server) uploadLegacy(c *gin.Context) {
	var req struct {
		Image string `json:"image"`
	}
	if !s.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		s.fail(c, apperr.Validation("Missing image data", "image field is required (base64 or URL)"))
		return
	}

	img, err := s.deps.Images.Resolve(c.Request.Context(), req.Image, s.baseURL(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": img.URL, "hint": msgLegacyImageHint})
}

func (s *Server) storeMetadata(c *gin.Context) {
	var req metadata.Metadata
	if !s.bind(c, &req) {
		return
	}

	stored, err := s.deps.Metadata.Put(c.Request.Context(), req, s.baseURL(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, metadataResponse{Success: true, Message: msgMetadataStored, Stored: stored})
}

func (s *Server) getMetadata(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := s.deps.Metadata.GetRaw(c.Request.Context(), c.Param(param))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
	}
}

func (s *Server) prepareLaunch(c *gin.Context) {
	var req launch.PrepareRequest
	if !s.bind(c, &req) {
		return
	}

	unsigned, err := s.deps.Preparer.Prepare(c.Request.Context(), req, s.baseURL(c))
	s.recordLaunch("prepare", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prepareResponse{Success: true, Message: msgLaunchPrepared, UnsignedLaunch: unsigned})
}

func (s *Server) confirmLaunch(c *gin.Context) {
	var req launch.ConfirmRequest
	if !s.bind(c, &req) {
		return
	}

	conf, err := s.deps.Confirmer.Confirm(c.Request.Context(), req)
	s.recordLaunch("confirm", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, confirmResponse{Success: true, Confirmation: conf})
}

func (s *Server) recentLaunches(c *gin.Context) {
	limit := registry.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(c, apperr.Validation("Invalid query", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	launches, err := s.deps.Registry.Recent(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, launchesResponse{Launches: launches, Count: len(launches)})
}

func (s *Server) listTokens(c *gin.Context) {
	page, err := s.deps.Registry.List(c.Request.Context(), registry.Query{
		Page:  c.Query("page"),
		Limit: c.Query("limit"),
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getToken(c *gin.Context) {
	rec, err := s.deps.Registry.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) socialLaunch(c *gin.Context) {
	var req social.LaunchRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.deps.Social.Launch(c.Request.Context(), req)
	s.recordLaunch("social", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, socialResponse{Success: true, LaunchResult: res})
}

// bind decodes a JSON body, answering with a validation error on failure.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.fail(c, requestError("Invalid request body", err))
		return false
	}
	return true
}

// baseURL is the public origin used in returned URLs.
func (s *Server) baseURL(c *gin.Context) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (s *Server) recordLaunch(operation string, err error) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.RecordLaunch(operation, err == nil)
}
