package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/export"
)

// startDeckPDF snapshots the deck and builds its print sheet in the
// background. Progress arrives as "export.job" websocket events.
func (s *Server) startDeckPDF(c *gin.Context) {
	uid := auth.UserID(c)
	d, err := s.store.GetDeck(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(d.Cards) == 0 {
		s.fail(c, export.ErrEmptyDeck)
		return
	}
	deckCards := make([]export.Card, len(d.Cards))
	for i, sc := range d.Cards {
		deckCards[i] = export.Card{Data: sc.Card, Template: &sc.Template}
	}
	opts := export.SheetOptions{Title: d.Name, ShareURL: s.shareURL(d.ID), Layout: s.layout}
	logger := s.logger.With("deck", d.ID)

	job := s.jobs.Start(uid, "deck-pdf", export.Filename(d.Name, "pdf"), "application/pdf", len(deckCards),
		func(ctx context.Context, report export.ProgressFunc) ([]byte, error) {
			opts.Progress = report
			out, err := export.DeckSheet(ctx, deckCards, s.raster, opts)
			if err != nil {
				logger.Warn("deck export failed", "error", err)
				return nil, err
			}
			logger.Info("deck exported", "cards", len(deckCards), "bytes", len(out))
			return out, nil
		})
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) listJobs(c *gin.Context) {
	jobs := s.jobs.List(auth.UserID(c))
	if jobs == nil {
		jobs = []export.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ownJob returns the job if it belongs to the caller. Foreign jobs look
// missing.
func (s *Server) ownJob(c *gin.Context) (export.Job, error) {
	j, ok := s.jobs.Get(c.Param("id"))
	if !ok || j.OwnerID != auth.UserID(c) {
		return export.Job{}, fmt.Errorf("job %s: %w", c.Param("id"), export.ErrJobNotFound)
	}
	return j, nil
}

func (s *Server) getJob(c *gin.Context) {
	j, err := s.ownJob(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// downloadJob returns the finished output. A failed job answers with its
// error and status.
func (s *Server) downloadJob(c *gin.Context) {
	if _, err := s.ownJob(c); err != nil {
		s.fail(c, err)
		return
	}
	out, j, err := s.jobs.Result(c.Param("id"))
	if err != nil {
		if j.Status == export.StatusFailed {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": j.Error, "job": j})
			return
		}
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(j.Filename))
	c.Data(http.StatusOK, j.ContentType, out)
}
