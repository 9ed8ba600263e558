// SPDX-License-Identifier: MIT

// Package control exposes the session controls to remote surfaces: a REST
// API and a MIDI pad controller.
package control

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"lightdesk/internal/choreo"
	"lightdesk/internal/lighting"
	applog "lightdesk/internal/log"
	"lightdesk/internal/session"
)

// HTTPServer serves the REST control API under /api. If a websocket
// handler is given it is mounted at /ws on the same listener.
type HTTPServer struct {
	ctl    session.Controls
	router *gin.Engine
	server *http.Server
}

// NewHTTPServer builds the router. ws may be nil.
func NewHTTPServer(ctl session.Controls, ws http.Handler) *HTTPServer {
	h := &HTTPServer{ctl: ctl, router: gin.New()}
	h.router.Use(gin.Recovery(), requestLog)

	api := h.router.Group("/api")
	api.GET("/state", h.getState)
	api.POST("/start", h.start)
	api.POST("/stop", h.stop)
	api.POST("/reset", h.command(ctl.Reset))
	api.POST("/force/build", h.command(ctl.ForceBuild))
	api.POST("/force/drop", h.command(ctl.ForceDrop))
	api.PUT("/style", h.setStyle)
	api.PUT("/palette", h.setPalette)
	api.PUT("/sensitivity", h.setSensitivity)
	api.PUT("/colors", h.setColors)
	api.PUT("/tier", h.setTier)
	api.DELETE("/tier", h.command(ctl.ClearManualTier))
	api.PUT("/preset", h.setPreset)
	api.DELETE("/preset", h.command(ctl.DisablePreset))
	api.GET("/styles", list(choreo.StyleNames))
	api.GET("/palettes", list(choreo.PaletteNames))
	api.GET("/presets", list(presetNames))
	api.GET("/modes", h.getModes)

	if ws != nil {
		h.router.GET("/ws", gin.WrapH(ws))
	}
	return h
}

// Handler returns the router for mounting or testing.
func (h *HTTPServer) Handler() http.Handler { return h.router }

// Listen binds addr and serves on a new goroutine.
func (h *HTTPServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "control: listen on %s", addr)
	}
	h.server = &http.Server{Handler: h.router, ReadHeaderTimeout: 5 * time.Second}
	srv := h.server
	go func() {
		applog.Infof("Control: REST API on http://%s/api", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("Control: Server error: %v", err)
		}
	}()
	return nil
}

// Close stops the server started by Listen.
func (h *HTTPServer) Close() error {
	if h.server == nil {
		return nil
	}
	return h.server.Close()
}

func requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	applog.Debugf("Control: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *HTTPServer) command(fn func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn()
		accepted(c)
	}
}

func list(names func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, names())
	}
}

func presetNames() []string {
	presets := choreo.Presets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.String()
	}
	return names
}

func (h *HTTPServer) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctl.State())
}

func (h *HTTPServer) start(c *gin.Context) {
	if err := h.ctl.Start(); err != nil && !errors.Is(err, session.ErrRunning) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.ctl.State())
}

func (h *HTTPServer) stop(c *gin.Context) {
	if err := h.ctl.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.ctl.State())
}

func (h *HTTPServer) setStyle(c *gin.Context) {
	var req struct {
		Style string `json:"style" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := choreo.ParseStyle(req.Style)
	if err != nil {
		badRequest(c, err)
		return
	}
	h.ctl.SetStyle(s)
	accepted(c)
}

func (h *HTTPServer) setPalette(c *gin.Context) {
	var req struct {
		Palette string `json:"palette" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.ctl.SetPalette(req.Palette); err != nil {
		badRequest(c, err)
		return
	}
	accepted(c)
}

func (h *HTTPServer) setSensitivity(c *gin.Context) {
	var req struct {
		Sensitivity *float64 `json:"sensitivity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.ctl.SetSensitivity(*req.Sensitivity); err != nil {
		badRequest(c, err)
		return
	}
	accepted(c)
}

func (h *HTTPServer) setColors(c *gin.Context) {
	var req struct {
		Base *lighting.Color `json:"base" binding:"required"`
		Alt  *lighting.Color `json:"alt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.ctl.SetColors(*req.Base, *req.Alt)
	accepted(c)
}

func (h *HTTPServer) setTier(c *gin.Context) {
	var req struct {
		Tier string `json:"tier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := choreo.ParseTier(req.Tier)
	if err != nil {
		badRequest(c, err)
		return
	}
	h.ctl.SetManualTier(t)
	accepted(c)
}

func (h *HTTPServer) setPreset(c *gin.Context) {
	var req struct {
		Preset string `json:"preset" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := choreo.ParsePreset(req.Preset)
	if err != nil {
		badRequest(c, err)
		return
	}
	h.ctl.EnablePreset(p)
	accepted(c)
}

type modeInfo struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

func (h *HTTPServer) getModes(c *gin.Context) {
	modes := lighting.Modes()
	out := make([]modeInfo, len(modes))
	for i, m := range modes {
		out[i] = modeInfo{ID: uint8(m), Name: m.String()}
	}
	c.JSON(http.StatusOK, out)
}
