package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/template"
)

// listTemplates returns every template, or only the caller's with
// ?mine=true.
func (s *Server) listTemplates(c *gin.Context) {
	owner := ""
	if c.Query("mine") == "true" {
		owner = auth.UserID(c)
	}
	tpls, err := s.store.GetTemplates(c.Request.Context(), owner)
	if err != nil {
		s.fail(c, err)
		return
	}
	if tpls == nil {
		tpls = []*template.Template{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tpls), "templates": tpls})
}

// defaultTemplate returns an unsaved starting layout.
func (s *Server) defaultTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, template.Default())
}

func (s *Server) getTemplate(c *gin.Context) {
	tpl, err := s.store.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (s *Server) createTemplate(c *gin.Context) {
	var tpl template.Template
	if err := bind(c, &tpl); err != nil {
		s.fail(c, err)
		return
	}
	tpl.ID = ""
	tpl.OwnerID = auth.UserID(c)
	out, err := s.store.CreateTemplate(c.Request.Context(), &tpl)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateTemplate(c *gin.Context) {
	var tpl template.Template
	if err := bind(c, &tpl); err != nil {
		s.fail(c, err)
		return
	}
	tpl.ID = c.Param("id")
	out, err := s.store.UpdateTemplate(c.Request.Context(), &tpl, auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if err := s.store.DeleteTemplate(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
