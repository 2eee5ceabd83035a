package main

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"report-desk/models"
)

const (
	sessionName   = "report_desk_session"
	sessionUserID = "user_id"
	ctxUserKey    = "currentUser"

	flashSuccess = "success"
	flashError   = "error"
)

// newSessionStore leitet Signatur- und Verschlüsselungsschlüssel aus dem Secret ab.
func newSessionStore(secret string, secure bool) *sessions.CookieStore {
	h := sha256.Sum256([]byte("auth:" + secret))
	e := sha256.Sum256([]byte("enc:" + secret))

	store := sessions.NewCookieStore(h[:], e[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	return store
}

// requireUser lädt den angemeldeten Benutzer samt Rollen. Ohne Sitzung: 401.
func requireUser(db *gorm.DB, store sessions.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			// kaputtes oder fremd signiertes Cookie: wie nicht angemeldet
			log.Debug("Session cookie rejected", zap.Error(err))
		}
		id, ok := session.Values[sessionUserID].(uint)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}

		var user models.User
		err = db.WithContext(c.Request.Context()).Preload("Roles").First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}
		if err != nil {
			log.Error("Loading session user failed", zap.Uint("user_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.Set(ctxUserKey, &user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

// addFlash legt eine Meldung für die nächste Seite ab.
func addFlash(c *gin.Context, store sessions.Store, kind, message string, log *zap.Logger) {
	session, _ := store.Get(c.Request, sessionName)
	session.AddFlash(message, kind)
	if err := session.Save(c.Request, c.Writer); err != nil {
		log.Warn("Saving flash failed", zap.Error(err))
	}
}

// takeFlashes liest und verbraucht die Meldungen einer Art.
func takeFlashes(c *gin.Context, store sessions.Store, kind string, log *zap.Logger) []string {
	session, _ := store.Get(c.Request, sessionName)
	raw := session.Flashes(kind)
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(c.Request, c.Writer); err != nil {
		log.Warn("Saving session failed", zap.Error(err))
	}
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}

func setupAuthRoutes(router *gin.Engine, db *gorm.DB, store sessions.Store, log *zap.Logger) {
	router.POST("/login", func(c *gin.Context) {
		type LoginRequest struct {
			Email    string `json:"email" form:"email" binding:"required,email"`
			Password string `json:"password" form:"password" binding:"required"`
		}
		var req LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"email": "Email and password are required."}})
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Login lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"email": "These credentials do not match our records."}})
			return
		}

		session, _ := store.Get(c.Request, sessionName)
		session.Values[sessionUserID] = user.ID
		if err := session.Save(c.Request, c.Writer); err != nil {
			log.Error("Saving session failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
			return
		}
		log.Info("User logged in", zap.Uint("user_id", user.ID))
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name})
	})

	router.POST("/logout", func(c *gin.Context) {
		session, _ := store.Get(c.Request, sessionName)
		delete(session.Values, sessionUserID)
		session.Options.MaxAge = -1
		if err := session.Save(c.Request, c.Writer); err != nil {
			log.Error("Clearing session failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
