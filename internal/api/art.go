package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/ai"
	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/storage"
)

func (s *Server) listArt(c *gin.Context) {
	refs, err := s.assets.ListArt(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if refs == nil {
		refs = []storage.AssetRef{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(refs), "assets": refs})
}

// uploadArt stores the "file" form field in the caller's art library.
func (s *Server) uploadArt(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: file is required", errBadRequest))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.assets.MaxBytes+1))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	ref, err := s.assets.UploadArt(c.Request.Context(), auth.UserID(c), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

// deleteArt refuses with 409 while a template or saved card uses the art.
func (s *Server) deleteArt(c *gin.Context) {
	if err := s.assets.DeleteArt(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) aiStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.ai.Enabled()})
}

type artPromptRequest struct {
	Prompt string `json:"prompt"`
}

// generateArt returns a generated image reference usable as card art.
func (s *Server) generateArt(c *gin.Context) {
	var req artPromptRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ref, err := s.ai.GenerateArt(c.Request.Context(), req.Prompt)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageRef": ref})
}

type cardTextRequest struct {
	Card       cards.CardData `json:"card"`
	PowerLevel int            `json:"powerLevel"`
	Theme      string         `json:"theme"`
}

func (s *Server) generateText(c *gin.Context) {
	var req cardTextRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	rules, flavor, err := s.ai.GenerateCardText(c.Request.Context(), ai.ContextFromCard(req.Card), req.PowerLevel, req.Theme)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rulesText": rules, "flavorText": flavor})
}
