package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/editor"
	"github.com/youruser/cardsmith/internal/export"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/template"
)

// maxPreviewScale bounds interactive renders; larger output goes through
// the export endpoints.
const maxPreviewScale = 4.0

type renderRequest struct {
	Template    *template.Template `json:"template,omitempty"`
	TemplateID  string             `json:"templateId,omitempty"`
	Card        cards.CardData     `json:"card"`
	Scale       float64            `json:"scale,omitempty"`
	Supersample int                `json:"supersample,omitempty"`
}

func previewScale(v float64) (float64, error) {
	switch {
	case v == 0:
		return 1, nil
	case v > maxPreviewScale:
		return 0, fmt.Errorf("%w: scale above %v", errBadRequest, maxPreviewScale)
	}
	return v, nil
}

// layoutFor decodes a render request and lays the card out.
func (s *Server) layoutFor(c *gin.Context) (*layout.Tree, error) {
	var req renderRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	scale, err := previewScale(req.Scale)
	if err != nil {
		return nil, err
	}
	tpl, err := s.resolveTemplate(c.Request.Context(), req.Template, req.TemplateID, &req.Card)
	if err != nil {
		return nil, err
	}
	return s.layout.Render(tpl, &req.Card, scale)
}

// renderLayout returns the element tree the browser preview paints.
func (s *Server) renderLayout(c *gin.Context) {
	tree, err := s.layoutFor(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// renderPreview rasterizes the card server-side at preview scale.
func (s *Server) renderPreview(c *gin.Context) {
	tree, err := s.layoutFor(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	img, err := s.raster.Rasterize(c.Request.Context(), tree)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// exportCardPNG renders a supersampled PNG for download.
func (s *Server) exportCardPNG(c *gin.Context) {
	var req renderRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tpl, err := s.resolveTemplate(c.Request.Context(), req.Template, req.TemplateID, &req.Card)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.sendCardPNG(c, tpl, &req.Card, req.Scale, req.Supersample)
}

// exportSavedCard renders a saved card against its template snapshot.
func (s *Server) exportSavedCard(c *gin.Context) {
	scale, err := queryFloat(c, "scale", 1)
	if err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.store.GetDeck(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	sc, ok := d.Find(c.Param("cardId"))
	if !ok {
		s.fail(c, fmt.Errorf("card %s: %w", c.Param("cardId"), storage.ErrNotFound))
		return
	}
	s.sendCardPNG(c, &sc.Template, &sc.Card, scale, 0)
}

func (s *Server) sendCardPNG(c *gin.Context, tpl *template.Template, card *cards.CardData, scale float64, supersample int) {
	if scale > maxPreviewScale {
		s.fail(c, fmt.Errorf("%w: scale above %v", errBadRequest, maxPreviewScale))
		return
	}
	if supersample == 0 {
		supersample = s.supersample
	}
	out, name, err := export.CardPNG(c.Request.Context(), tpl, card, s.raster, export.PNGOptions{
		Scale:       scale,
		Supersample: supersample,
		Layout:      s.layout,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(name))
	c.Data(http.StatusOK, "image/png", out)
}

type editorRequest struct {
	Template   *template.Template `json:"template,omitempty"`
	TemplateID string             `json:"templateId,omitempty"`
	Card       *cards.CardData    `json:"card,omitempty"`
	Actions    []editor.Action    `json:"actions"`
	Scale      float64            `json:"scale,omitempty"`
}

// editorApply replays a batch of edits against a snapshot and returns the
// new state with its preview tree. Without a card a fresh one is started.
func (s *Server) editorApply(c *gin.Context) {
	var req editorRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	scale, err := previewScale(req.Scale)
	if err != nil {
		s.fail(c, err)
		return
	}
	tpl, err := s.resolveTemplate(c.Request.Context(), req.Template, req.TemplateID, req.Card)
	if err != nil {
		s.fail(c, err)
		return
	}
	uid := auth.UserID(c)
	st := editor.NewState(uid, tpl)
	if req.Card != nil {
		st = editor.Load(uid, tpl, *req.Card)
	}
	st, err = st.ApplyAll(req.Actions)
	if err != nil {
		s.fail(c, err)
		return
	}
	tree, err := st.PreviewWith(s.layout, scale)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st, "readOnly": st.ReadOnly(), "tree": tree})
}

type pointerMove struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type dragRequest struct {
	Template     *template.Template `json:"template,omitempty"`
	TemplateID   string             `json:"templateId,omitempty"`
	Element      string             `json:"element"`
	Handle       editor.Handle      `json:"handle,omitempty"`
	Moves        []pointerMove      `json:"moves"`
	ParentWidth  float64            `json:"parentWidth,omitempty"`
	ParentHeight float64            `json:"parentHeight,omitempty"`
}

// editorDrag runs one pointer gesture, grab then moves then release, over
// the template and returns the resulting box and template.
func (s *Server) editorDrag(c *gin.Context) {
	var req dragRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tpl, err := s.resolveTemplate(c.Request.Context(), req.Template, req.TemplateID, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.ParentWidth <= 0 {
		req.ParentWidth = layout.CardWidth
	}
	if req.ParentHeight <= 0 {
		req.ParentHeight = layout.CardHeight
	}

	in := editor.NewInteraction(tpl, auth.UserID(c))
	if err := in.PointerDown(req.Element, req.Handle); err != nil {
		s.fail(c, err)
		return
	}
	for _, m := range req.Moves {
		if _, err := in.PointerMove(m.DX, m.DY, req.ParentWidth, req.ParentHeight); err != nil {
			s.fail(c, err)
			return
		}
	}
	box, err := in.PointerUp()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"element": req.Element, "box": box, "template": in.Template()})
}
