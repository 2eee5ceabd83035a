package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"report-desk/services"
)

// wantsJSON: Clients, die JSON erwarten, bekommen Daten statt Seiten-Payload und Redirects.
func wantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "json")
}

// renderPage liefert die Daten für eine Seite. Die Darstellung selbst übernimmt das Frontend.
func renderPage(c *gin.Context, component string, props gin.H) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, props)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"component": component,
		"props":     props,
		"url":       c.Request.URL.RequestURI(),
	})
}

// respondError übersetzt Service-Fehler in HTTP-Antworten.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	case errors.Is(err, services.ErrInvalidFileType):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid file type"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrAlreadyApproved):
		c.JSON(http.StatusConflict, gin.H{"error": "Approved articles cannot change status"})
	case errors.Is(err, services.ErrNotEvaluated):
		c.JSON(http.StatusConflict, gin.H{"error": "Article must be evaluated by an administrator first"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid approval status"})
	default:
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return 0, false
	}
	return uint(id), true
}

func queryPage(c *gin.Context, name string) int {
	page, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 1
	}
	return page
}

// redirectBack folgt dem Referer, sonst fallback.
func redirectBack(c *gin.Context, fallback string) {
	target := c.GetHeader("Referer")
	if target == "" {
		target = fallback
	}
	c.Redirect(http.StatusFound, target)
}
