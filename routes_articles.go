package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"report-desk/services"
	"report-desk/workflow"
)

func setupArticleRoutes(rg *gin.RouterGroup, articles *services.ArticleService, store sessions.Store, log *zap.Logger) {
	// Statusliste, paginiert und durchsuchbar
	rg.GET("/status/:status", func(c *gin.Context) {
		user := currentUser(c)
		search := c.Query("search")
		page, hit, err := articles.List(c.Request.Context(), user, services.ListQuery{
			Status: c.Param("status"),
			Page:   queryPage(c, "page"),
			Search: search,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		observeCacheLookup(hit)

		renderPage(c, "Status/"+c.Param("status"), gin.H{
			"articles":    page.Articles,
			"currentPage": page.CurrentPage,
			"totalPages":  page.TotalPages,
			"total":       page.Total,
			"searchQuery": search,
			"userRoles":   user.RoleNames(),
			"flash": gin.H{
				"success": takeFlashes(c, store, flashSuccess, log),
				"error":   takeFlashes(c, store, flashError, log),
			},
		})
	})

	rg.GET("/status/:status/export", func(c *gin.Context) {
		export, err := articles.NewExport(currentUser(c), c.Param("status"))
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Header("Content-Type", "text/csv; charset=UTF-8")
		c.Header("Content-Disposition", `attachment; filename="`+export.Filename()+`"`)
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Status(http.StatusOK)

		if _, err := export.Stream(c.Request.Context(), c.Writer); err != nil {
			// Header sind schon raus, nur noch loggen
			log.Error("CSV export aborted", zap.String("status", c.Param("status")), zap.Error(err))
		}
	})

	rg.GET("/status/:status/:id", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		user := currentUser(c)
		detail, err := articles.Show(c.Request.Context(), user, c.Param("status"), id, queryPage(c, "page"))
		if errors.Is(err, services.ErrUnauthorized) && !wantsJSON(c) {
			addFlash(c, store, flashError, "Unauthorized", log)
			redirectBack(c, "/status/"+c.Param("status"))
			return
		}
		if err != nil {
			respondError(c, log, err)
			return
		}

		renderPage(c, "Status/Show", gin.H{
			"article":    detail.Article,
			"comments":   detail.Comments,
			"imagePaths": detail.ImagePaths,
			"userRoles":  user.RoleNames(),
		})
	})

	rg.POST("/articles", func(c *gin.Context) {
		var input services.ArticleInput
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		article, err := articles.Create(c.Request.Context(), currentUser(c), input)
		if err != nil {
			respondError(c, log, err)
			return
		}
		articlesSubmittedCounter.Inc()

		if wantsJSON(c) {
			c.JSON(http.StatusCreated, article)
			return
		}
		addFlash(c, store, flashSuccess, workflow.SuccessMessage(article.ApprovalStatus), log)
		c.Redirect(http.StatusFound, "/status/"+string(article.ApprovalStatus))
	})

	rg.GET("/articles/:id/edit", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		form, err := articles.EditForm(c.Request.Context(), currentUser(c), id, queryPage(c, "page"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		renderPage(c, "Articles/Edit", gin.H{
			"article":             form.Article,
			"comments":            form.Comments,
			"typeOfReportOptions": form.TypeOfReportOptions,
		})
	})

	rg.PUT("/articles/:id", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var input services.ArticleInput
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		article, err := articles.Resubmit(c.Request.Context(), currentUser(c), id, input)
		if err != nil {
			respondError(c, log, err)
			return
		}

		if wantsJSON(c) {
			c.JSON(http.StatusOK, article)
			return
		}
		addFlash(c, store, flashSuccess, workflow.SuccessMessage(article.ApprovalStatus), log)
		c.Redirect(http.StatusFound, "/status/"+string(article.ApprovalStatus))
	})

	rg.POST("/articles/:id/approval", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			Status string `json:"status" form:"status"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := articles.Transition(c.Request.Context(), currentUser(c), id, req.Status)
		if err != nil {
			respondError(c, log, err)
			return
		}
		statusTransitionsCounter.WithLabelValues(string(result.From), string(result.To)).Inc()

		if wantsJSON(c) {
			c.JSON(http.StatusOK, result)
			return
		}
		addFlash(c, store, flashSuccess, result.Message, log)
		c.Redirect(http.StatusFound, "/status/"+string(result.To))
	})

	rg.POST("/articles/:id/comments", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var input services.CommentInput
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		comment, err := articles.AddComment(c.Request.Context(), currentUser(c), id, input)
		if err != nil {
			respondError(c, log, err)
			return
		}

		if wantsJSON(c) {
			c.JSON(http.StatusCreated, comment)
			return
		}
		redirectBack(c, "/status/Review")
	})

	rg.GET("/dashboard/stats", func(c *gin.Context) {
		stats, err := articles.Stats(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}
