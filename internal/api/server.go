// Package api exposes the card designer over HTTP with gin: templates,
// decks, art, rendering, exports and AI helpers, plus a websocket that
// streams export progress.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"github.com/youruser/cardsmith/internal/ai"
	"github.com/youruser/cardsmith/internal/api/websocket"
	"github.com/youruser/cardsmith/internal/assets"
	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/export"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/symbols"
)

// Options wires the server to its collaborators. AI may be nil or
// disabled; Fonts may be nil, in which case overview images carry no title.
type Options struct {
	Store       *storage.Store
	Auth        *auth.Service
	Assets      *assets.Service
	AI          *ai.Service
	Rasterizer  export.Rasterizer
	Fonts       *imagepkg.Fonts
	Symbols     *symbols.Registry
	Jobs        *export.Jobs
	Logger      *slog.Logger
	PublicURL   string
	Supersample int
	// CORSOrigins lists browser origins allowed to call the API; wildcards
	// such as "http://localhost:*" are accepted. Empty disables CORS.
	CORSOrigins []string
}

type Server struct {
	store       *storage.Store
	auth        *auth.Service
	assets      *assets.Service
	ai          *ai.Service
	raster      export.Rasterizer
	fonts       *imagepkg.Fonts
	symbols     *symbols.Registry
	layout      layout.Renderer
	jobs        *export.Jobs
	hub         *websocket.Hub
	logger      *slog.Logger
	publicURL   string
	supersample int
	corsOrigins []string
}

// NewServer builds the server and starts its websocket hub. Job updates
// are forwarded to the job owner's sockets.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Symbols
	if reg == nil {
		reg = symbols.Builtin()
	}
	s := &Server{
		store:       opts.Store,
		auth:        opts.Auth,
		assets:      opts.Assets,
		ai:          opts.AI,
		raster:      opts.Rasterizer,
		fonts:       opts.Fonts,
		symbols:     reg,
		layout:      layout.Renderer{Symbols: reg},
		jobs:        opts.Jobs,
		hub:         websocket.NewHub(logger.With("component", "ws")),
		logger:      logger,
		publicURL:   strings.TrimRight(opts.PublicURL, "/"),
		supersample: opts.Supersample,
		corsOrigins: opts.CORSOrigins,
	}
	if s.jobs != nil {
		s.jobs.OnUpdate = s.publishJob
	}
	go s.hub.Run()
	return s
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.MaxMultipartMemory = 32 << 20
	s.RegisterRoutes(r)
	if len(s.corsOrigins) == 0 {
		return r
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

// Close stops the websocket hub and waits for running export jobs.
func (s *Server) Close(ctx context.Context) error {
	s.hub.Stop()
	if s.jobs == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) publishJob(j export.Job) {
	s.hub.SendTo(j.OwnerID, websocket.Event{Type: "export.job", Data: j})
}

// shareURL is the public link printed as a QR code on deck exports.
func (s *Server) shareURL(deckID string) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/decks/" + deckID
}
