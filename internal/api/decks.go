package api

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/deck"
	"github.com/youruser/cardsmith/internal/export"
	imagepkg "github.com/youruser/cardsmith/internal/image"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/template"
)

// maxOverviewCards caps the thumbnails on a deck overview image.
const maxOverviewCards = 60

type deckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// cardRequest carries a card and the template to snapshot with it. An
// inline template wins over TemplateID, which wins over card.templateId.
type cardRequest struct {
	Card       cards.CardData     `json:"card"`
	TemplateID string             `json:"templateId,omitempty"`
	Template   *template.Template `json:"template,omitempty"`
}

func (s *Server) listDecks(c *gin.Context) {
	decks, err := s.store.GetDecks(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if decks == nil {
		decks = []deck.Deck{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(decks), "decks": decks})
}

func (s *Server) createDeck(c *gin.Context) {
	var req deckRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.store.CreateDeck(c.Request.Context(), auth.UserID(c), req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) getDeck(c *gin.Context) {
	d, err := s.store.GetDeck(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) renameDeck(c *gin.Context) {
	var req deckRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), auth.UserID(c)
	if err := s.store.RenameDeck(ctx, c.Param("id"), uid, req.Name, req.Description); err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.store.GetDeck(ctx, c.Param("id"), uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) deleteDeck(c *gin.Context) {
	if err := s.store.DeleteDeck(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addCard(c *gin.Context) {
	var req cardRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	tpl, err := s.resolveTemplate(ctx, req.Template, req.TemplateID, &req.Card)
	if err != nil {
		s.fail(c, err)
		return
	}
	sc, err := s.store.AddCardToDeck(ctx, c.Param("id"), auth.UserID(c), req.Card, tpl)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sc)
}

// updateCard replaces a saved card. Without a template in the request the
// stored snapshot is kept.
func (s *Server) updateCard(c *gin.Context) {
	var req cardRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), auth.UserID(c)
	var tpl *template.Template
	if req.Template != nil || req.TemplateID != "" {
		t, err := s.resolveTemplate(ctx, req.Template, req.TemplateID, nil)
		if err != nil {
			s.fail(c, err)
			return
		}
		tpl = t
	} else {
		d, err := s.store.GetDeck(ctx, c.Param("id"), uid)
		if err != nil {
			s.fail(c, err)
			return
		}
		saved, ok := d.Find(c.Param("cardId"))
		if !ok {
			s.fail(c, fmt.Errorf("card %s: %w", c.Param("cardId"), storage.ErrNotFound))
			return
		}
		tpl = &saved.Template
	}
	sc, err := s.store.UpdateCardInDeck(ctx, c.Param("id"), c.Param("cardId"), uid, req.Card, tpl)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) removeCard(c *gin.Context) {
	if err := s.store.RemoveCardFromDeck(c.Request.Context(), c.Param("id"), c.Param("cardId"), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// importCSV adds one card per CSV row, all designed against the template
// named by ?templateId=. The CSV comes as the "file" form field or as the
// raw body.
func (s *Server) importCSV(c *gin.Context) {
	ctx, uid := c.Request.Context(), auth.UserID(c)
	tpl, err := s.resolveTemplate(ctx, nil, c.Query("templateId"), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	var r io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		defer f.Close()
		r = f
	}
	rows, err := cards.LoadCardsCSV(r)
	if err != nil {
		s.fail(c, err)
		return
	}
	added := make([]deck.SavedCard, 0, len(rows))
	for i, card := range rows {
		sc, err := s.store.AddCardToDeck(ctx, c.Param("id"), uid, card, tpl)
		if err != nil {
			s.fail(c, fmt.Errorf("row %d: %w", i+2, err))
			return
		}
		added = append(added, sc)
	}
	s.logger.Info("cards imported", "deck", c.Param("id"), "count", len(added))
	c.JSON(http.StatusCreated, gin.H{"count": len(added), "cards": added})
}

// filterDeck searches the deck's saved cards.
func (s *Server) filterDeck(c *gin.Context) {
	var opt cards.FilterOptions
	if err := bind(c, &opt); err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.store.GetDeck(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := d.Search(opt)
	if out == nil {
		out = []deck.SavedCard{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "cards": out})
}

// deckList downloads the plain text card list.
func (s *Server) deckList(c *gin.Context) {
	d, err := s.store.GetDeck(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(export.Filename(d.Name, "txt")))
	c.String(http.StatusOK, deck.ExportDeckText(d))
}

// deckImage renders the deck overview: card thumbnails under the deck name
// with a share QR code. Cards that fail to render are left out.
func (s *Server) deckImage(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := s.store.GetDeck(ctx, c.Param("id"), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	var imgs []image.Image
	for i, sc := range d.Cards {
		if i >= maxOverviewCards {
			break
		}
		tree, err := s.layout.Render(&sc.Template, &sc.Card, 1)
		if err != nil {
			s.logger.Warn("overview card layout", "deck", d.ID, "card", sc.ID, "error", err)
			continue
		}
		img, err := s.raster.Rasterize(ctx, tree)
		if err != nil {
			s.logger.Warn("overview card render", "deck", d.ID, "card", sc.ID, "error", err)
			continue
		}
		imgs = append(imgs, img)
	}

	var qr image.Image
	if u := s.shareURL(d.ID); u != "" {
		if q, err := imagepkg.GenerateQRImage(u, 400); err == nil {
			qr = q
		}
	}
	out := imagepkg.ComposeDeckImage(imgs, qr, d.Name, s.fonts)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
