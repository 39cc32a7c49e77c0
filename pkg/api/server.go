// Package api provides the REST API server for the lead sheet builder.
package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet"
	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet/xf"
	"github.com/ito55/smf-leadsheet-builder/pkg/musicxml"
)

// @title Leadsheet API
// @version 1.0
// @description API for rebuilding lead sheets from XF chord and melody MIDI files
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine with all middleware and routes registered.
func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/build", handleBuild)
		v1.POST("/chords", handleChords)
		v1.GET("/qualities", listQualities)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags every request with a uuid, echoed in the
// X-Request-ID response header and the per-request log line.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)

		c.Next()

		logrus.WithFields(logrus.Fields{
			"id":     id,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Info("request")
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "leadsheet",
	})
}

// listQualities godoc
// @Summary List XF chord qualities
// @Description Returns the XF chord type chart with lead sheet suffixes
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]xf.ChartEntry
// @Router /api/v1/qualities [get]
func listQualities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"qualities": xf.Chart(),
	})
}

// handleBuild godoc
// @Summary Build a lead sheet
// @Description Upload an XF chord MIDI file and a melody MIDI file, receive a MusicXML lead sheet
// @Tags build
// @Accept multipart/form-data
// @Produce application/vnd.recordare.musicxml+xml
// @Param chord formData file true "XF chord MIDI file"
// @Param melody formData file true "Melody MIDI file"
// @Param channel query int false "Melody channel 1-16 (default: 1)"
// @Param title query string false "Score title (default: melody filename)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/build [post]
func handleBuild(c *gin.Context) {
	chordData, _, err := formFileBytes(c, "chord")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	melodyData, melodyName, err := formFileBytes(c, "melody")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := strconv.Atoi(c.DefaultQuery("channel", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be an integer"})
		return
	}

	stem := strings.TrimSuffix(melodyName, filepath.Ext(melodyName))
	if stem == "" {
		stem = "leadsheet"
	}
	title := c.Query("title")
	if title == "" {
		title = stem
	}

	score, warnings, err := leadsheet.Build(chordData, melodyData, leadsheet.Options{
		Channel: channel,
		Title:   title,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    err.Error(),
			"warnings": warningList(warnings),
		})
		return
	}

	var buf bytes.Buffer
	if err := musicxml.Write(&buf, score); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-Leadsheet-Warnings", strconv.Itoa(len(warnings)))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.musicxml", stem))
	c.Data(http.StatusOK, "application/vnd.recordare.musicxml+xml", buf.Bytes())
}

// handleChords godoc
// @Summary Extract chord events
// @Description Upload an XF chord MIDI file and receive its chord timeline as JSON
// @Tags build
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/chords [post]
func handleChords(c *gin.Context) {
	data, _, err := formFileBytes(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := leadsheet.ParseSMF(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	track, err := leadsheet.ExtractChords(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chords := make([]chordJSON, 0, len(track.Events))
	for _, ev := range track.Events {
		chords = append(chords, chordJSON{
			StartTick: ev.StartTick,
			EndTick:   ev.EndTick,
			Seconds:   ev.Seconds,
			Label:     ev.Label,
			Chord:     ev.Chord,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"ppq":      track.PPQ,
		"chords":   chords,
		"warnings": warningList(track.Warnings),
	})
}

// chordJSON is the wire shape of one chord event.
type chordJSON struct {
	StartTick int64    `json:"startTick"`
	EndTick   int64    `json:"endTick"`
	Seconds   float64  `json:"seconds"`
	Label     string   `json:"label"`
	Chord     xf.Chord `json:"chord"`
}

// warningJSON is the wire shape of one extraction warning.
type warningJSON struct {
	Tick    int64  `json:"tick"`
	Message string `json:"message"`
}

func warningList(warnings []leadsheet.Warning) []warningJSON {
	out := make([]warningJSON, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, warningJSON{Tick: w.Tick, Message: w.Message})
	}
	return out
}

func formFileBytes(c *gin.Context, field string) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field", field)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading %q upload: %w", field, err)
	}
	return data, header.Filename, nil
}
