package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	u, tok, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("user registered", "user", u.ID)
	c.JSON(http.StatusCreated, gin.H{"user": u, "token": tok})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	u, tok, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "token": tok})
}
