package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"report-desk/cache"
	"report-desk/models"
)

var fixedNow = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC) // Donnerstag

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// eine Verbindung, sonst hat jede ihre eigene :memory:-Datenbank
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Article{}, &models.Comment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*ArticleService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	svc := NewArticleService(db, cache.NewMemoryStore(), time.Hour, zaptest.NewLogger(t))
	svc.Now = func() time.Time { return fixedNow }
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, name string, roles ...string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	for _, r := range roles {
		role := models.Role{Name: r}
		if err := db.Where(models.Role{Name: r}).FirstOrCreate(&role).Error; err != nil {
			t.Fatalf("role %s: %v", r, err)
		}
		user.Roles = append(user.Roles, role)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createArticle(t *testing.T, db *gorm.DB, owner *models.User, title, reportType string, status models.ApprovalStatus) *models.Article {
	t.Helper()
	article := models.Article{
		Title:           title,
		PublicationDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		TypeOfReport:    reportType,
		URL:             "https://example.com/" + title,
		DetailedSummary: "summary",
		Analysis:        "analysis",
		Recommendation:  "recommendation",
		ApprovalStatus:  status,
		UserID:          owner.ID,
		EditorName:      owner.Name,
	}
	if err := db.Create(&article).Error; err != nil {
		t.Fatalf("create article: %v", err)
	}
	return &article
}

func reload(t *testing.T, db *gorm.DB, id uint) models.Article {
	t.Helper()
	var a models.Article
	if err := db.First(&a, id).Error; err != nil {
		t.Fatalf("reload article %d: %v", id, err)
	}
	return a
}

func validInput() ArticleInput {
	return ArticleInput{
		Title:           "Credential phishing wave",
		PublicationDate: "2024-03-10",
		TypeOfReport:    "Phishing",
		URL:             "https://example.com/report",
		DetailedSummary: "<p>Summary</p>",
		Analysis:        "Analysis",
		Recommendation:  "Rotate credentials",
	}
}
