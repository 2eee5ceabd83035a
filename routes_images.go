package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"report-desk/services"
)

func setupImageRoutes(rg *gin.RouterGroup, images *services.ImageService, log *zap.Logger) {
	rg.POST("/articles/images", func(c *gin.Context) {
		// Obergrenze für den gesamten Body: alle Dateien plus etwas Luft für Multipart-Header
		limit := images.MaxBytes*int64(images.MaxFiles) + 1<<20
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"images": "The images field is required."}})
			return
		}
		paths, err := images.Upload(c.Request.Context(), currentUser(c), form.File["images"])
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"paths": paths})
	})

	rg.GET("/articles/images/:filename", func(c *gin.Context) {
		img, err := images.Fetch(c.Request.Context(), currentUser(c), c.Param("filename"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Data(http.StatusOK, img.ContentType, img.Data)
	})
}
