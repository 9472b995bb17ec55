package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/cards"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/template"
)

// bind decodes the JSON body into v.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return f, nil
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": s.ai.Enabled()})
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	size := 400
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = min(max(v, 64), 2048)
	}
	b, err := imagepkg.GenerateQRPNG(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func (s *Server) listSymbols(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, key := range s.symbols.Keys() {
		sym, _ := s.symbols.Lookup(key)
		out = append(out, gin.H{"key": sym.Key, "icon": sym.Icon})
	}
	c.JSON(http.StatusOK, gin.H{"symbols": out})
}

func (s *Server) serveWs(c *gin.Context) {
	s.hub.ServeWs(c.Writer, c.Request, auth.UserID(c))
}

// serveAsset streams uploaded art. Asset URLs are unguessable and public so
// they can be used directly as image sources.
func (s *Server) serveAsset(c *gin.Context) {
	data, err := s.assets.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// resolveTemplate picks the template for a render request: an inline
// template wins, otherwise templateID or the card's own template id is
// looked up. There is no fallback template.
func (s *Server) resolveTemplate(ctx context.Context, inline *template.Template, templateID string, card *cards.CardData) (*template.Template, error) {
	if inline != nil {
		tpl := inline.Clone()
		tpl.Normalize()
		return tpl, nil
	}
	probe := cards.CardData{TemplateID: templateID}
	if templateID == "" && card != nil {
		probe.TemplateID = card.TemplateID
	}
	var lookupErr error
	tpl, err := layout.ResolveTemplate(&probe, func(id string) (*template.Template, bool) {
		t, err := s.store.GetTemplate(ctx, id)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				lookupErr = err
			}
			return nil, false
		}
		return t, true
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	return tpl, err
}
