package api

import "github.com/gin-gonic/gin"

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/assets/*key", s.serveAsset)

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/qr", qrHandler)
		api.GET("/symbols", s.listSymbols)
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
	}

	authed := api.Group("", s.auth.Middleware())
	{
		authed.GET("/ws", s.serveWs)

		authed.GET("/templates", s.listTemplates)
		authed.GET("/templates/default", s.defaultTemplate)
		authed.GET("/templates/:id", s.getTemplate)
		authed.POST("/templates", s.createTemplate)
		authed.PUT("/templates/:id", s.updateTemplate)
		authed.DELETE("/templates/:id", s.deleteTemplate)

		authed.GET("/decks", s.listDecks)
		authed.POST("/decks", s.createDeck)
		authed.GET("/decks/:id", s.getDeck)
		authed.PATCH("/decks/:id", s.renameDeck)
		authed.DELETE("/decks/:id", s.deleteDeck)
		authed.POST("/decks/:id/cards", s.addCard)
		authed.PUT("/decks/:id/cards/:cardId", s.updateCard)
		authed.DELETE("/decks/:id/cards/:cardId", s.removeCard)
		authed.GET("/decks/:id/cards/:cardId/png", s.exportSavedCard)
		authed.POST("/decks/:id/import", s.importCSV)
		authed.POST("/decks/:id/filter", s.filterDeck)
		authed.GET("/decks/:id/list", s.deckList)
		authed.GET("/decks/:id/image", s.deckImage)
		authed.POST("/decks/:id/pdf", s.startDeckPDF)

		authed.GET("/jobs", s.listJobs)
		authed.GET("/jobs/:id", s.getJob)
		authed.GET("/jobs/:id/download", s.downloadJob)

		authed.POST("/render/layout", s.renderLayout)
		authed.POST("/render/png", s.renderPreview)
		authed.POST("/export/png", s.exportCardPNG)
		authed.POST("/editor/apply", s.editorApply)
		authed.POST("/editor/drag", s.editorDrag)

		authed.GET("/art", s.listArt)
		authed.POST("/art", s.uploadArt)
		authed.DELETE("/art/:id", s.deleteArt)

		authed.GET("/ai/status", s.aiStatus)
		authed.POST("/ai/art", s.generateArt)
		authed.POST("/ai/text", s.generateText)
	}
}
