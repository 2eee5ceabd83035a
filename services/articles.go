package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"report-desk/cache"
	"report-desk/models"
	"report-desk/workflow"
)

const (
	// ArticlesPerPage gilt für alle Statuslisten.
	ArticlesPerPage = 10
	// CommentsPerPage gilt für die Kommentare auf der Detailseite.
	CommentsPerPage = 5

	// Seiten der Review-Liste, die nach einer Einreichung gezielt verworfen werden.
	invalidatedReviewPages = 5

	keyTotalReports     = "total_reports"
	keyReportsThisWeek  = "reports_this_week"
	keyReportsThisMonth = "reports_this_month"
)

// ArticleService bündelt Listen, Detailansicht, Einreichung, Überarbeitung,
// Freigabe-Übergänge und Kommentare.
type ArticleService struct {
	DB         *gorm.DB
	Cache      cache.Store
	TTL        time.Duration
	Logger     *zap.Logger
	Normalizer *TextNormalizer
	// Now ersetzt time.Now, z. B. in Tests.
	Now func() time.Time

	validate *validator.Validate
}

// NewArticleService erstellt einen ArticleService mit Standardwerten.
func NewArticleService(db *gorm.DB, store cache.Store, ttl time.Duration, logger *zap.Logger) *ArticleService {
	return &ArticleService{
		DB:         db,
		Cache:      store,
		TTL:        ttl,
		Logger:     logger,
		Normalizer: NewTextNormalizer(),
		Now:        time.Now,
		validate:   newValidator(),
	}
}

// ListQuery sind die Parameter einer Statusliste.
type ListQuery struct {
	Status string
	Page   int
	Search string
}

// ArticlePage ist eine Seite einer Statusliste.
type ArticlePage struct {
	Articles    []models.Article `json:"articles"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int              `json:"totalPages"`
	Total       int64            `json:"total"`
}

// ListCacheKey baut den Cache-Schlüssel einer Listenseite. Ein Suchbegriff steht
// immer in Anführungszeichen, "none" markiert nur die fehlende Suche.
func ListCacheKey(status models.ApprovalStatus, page int, userID uint, search string) string {
	term := "none"
	if search != "" {
		term = strconv.Quote(search)
	}
	return fmt.Sprintf("articles_%s_page_%d_user_%d_search_%s", status, page, userID, term)
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func totalPages(total int64, perPage int) int {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		return 1
	}
	return pages
}

// List liefert eine Seite der Artikel im angegebenen Status. hit meldet einen Cache-Treffer.
// Reine Autoren sehen nur ihre eigenen Artikel, Benutzer ohne Rolle gar keine.
func (s *ArticleService) List(ctx context.Context, user *models.User, q ListQuery) (ArticlePage, bool, error) {
	status, ok := models.ParseStatus(q.Status)
	if !ok {
		return ArticlePage{}, false, ErrNotFound
	}
	if !user.HasRole(models.RoleEditor, models.RoleAdministrator, models.RoleExecutive) {
		return ArticlePage{}, false, ErrUnauthorized
	}
	page := clampPage(q.Page)
	search := strings.TrimSpace(q.Search)
	key := ListCacheKey(status, page, user.ID, search)

	result, hit, err := cache.Remember(ctx, s.Cache, key, s.TTL, func() (ArticlePage, error) {
		return s.queryPage(ctx, user, status, page, search)
	})
	if err != nil {
		return ArticlePage{}, false, fmt.Errorf("list %s: %w", status, err)
	}
	return result, hit, nil
}

func (s *ArticleService) scoped(ctx context.Context, user *models.User, status models.ApprovalStatus) *gorm.DB {
	query := s.DB.WithContext(ctx).Model(&models.Article{}).Where("approval_status = ?", status)
	if user.EditorOnly() {
		query = query.Where("user_id = ?", user.ID)
	}
	return query
}

func (s *ArticleService) queryPage(ctx context.Context, user *models.User, status models.ApprovalStatus, page int, search string) (ArticlePage, error) {
	query := s.scoped(ctx, user, status)
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(type_of_report) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ArticlePage{}, err
	}

	// Review nach Einreichung, alle anderen nach letzter Bearbeitung
	order := "updated_at DESC"
	if status == models.StatusReview {
		order = "created_at DESC"
	}

	articles := []models.Article{}
	err := query.Session(&gorm.Session{}).
		Order(order).Order("id DESC").
		Offset((page - 1) * ArticlesPerPage).
		Limit(ArticlesPerPage).
		Find(&articles).Error
	if err != nil {
		return ArticlePage{}, err
	}

	return ArticlePage{
		Articles:    articles,
		CurrentPage: page,
		TotalPages:  totalPages(total, ArticlesPerPage),
		Total:       total,
	}, nil
}

// CommentPage ist eine Seite der Kommentare eines Artikels.
type CommentPage struct {
	Data        []models.Comment `json:"data"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int              `json:"totalPages"`
	TotalItems  int64            `json:"totalItems"`
	PageSize    int              `json:"pageSize"`
}

// ArticleDetail ist die Detailansicht eines Artikels.
type ArticleDetail struct {
	Article    models.Article `json:"article"`
	Comments   CommentPage    `json:"comments"`
	ImagePaths []string       `json:"imagePaths"`
}

// canView: Autor des Artikels oder Reviewer.
func canView(user *models.User, article *models.Article) bool {
	if article.UserID == user.ID {
		return true
	}
	return user.HasRole(models.RoleAdministrator, models.RoleExecutive)
}

func (s *ArticleService) find(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	err := s.DB.WithContext(ctx).First(&article, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	return &article, nil
}

// Show lädt einen Artikel samt Kommentarseite. Der Status aus der URL muss zum
// gespeicherten Status passen, sonst gilt der Artikel als nicht gefunden.
func (s *ArticleService) Show(ctx context.Context, user *models.User, rawStatus string, id uint, commentPage int) (*ArticleDetail, error) {
	status, ok := models.ParseStatus(rawStatus)
	if !ok {
		return nil, ErrNotFound
	}
	article, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(string(article.ApprovalStatus), string(status)) {
		return nil, ErrNotFound
	}
	if !canView(user, article) {
		return nil, ErrUnauthorized
	}

	comments, err := s.comments(ctx, user, article.ID, commentPage)
	if err != nil {
		return nil, err
	}
	return &ArticleDetail{Article: *article, Comments: comments, ImagePaths: article.ImagePaths()}, nil
}

// comments: neueste zuerst; executives sehen nur ihre eigenen Kommentare.
func (s *ArticleService) comments(ctx context.Context, user *models.User, articleID uint, page int) (CommentPage, error) {
	page = clampPage(page)
	query := s.DB.WithContext(ctx).Model(&models.Comment{}).Where("article_id = ?", articleID)
	if user.HasRole(models.RoleExecutive) {
		query = query.Where("user_id = ?", user.ID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return CommentPage{}, fmt.Errorf("count comments: %w", err)
	}
	comments := []models.Comment{}
	err := query.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * CommentsPerPage).
		Limit(CommentsPerPage).
		Find(&comments).Error
	if err != nil {
		return CommentPage{}, fmt.Errorf("load comments: %w", err)
	}
	return CommentPage{
		Data:        comments,
		CurrentPage: page,
		TotalPages:  totalPages(total, CommentsPerPage),
		TotalItems:  total,
		PageSize:    CommentsPerPage,
	}, nil
}

// EditForm ist der Inhalt des Überarbeitungsformulars.
type EditForm struct {
	Article             models.Article `json:"article"`
	Comments            CommentPage    `json:"comments"`
	TypeOfReportOptions []string       `json:"typeOfReportOptions"`
}

// ownRevision lädt einen eigenen Artikel im Status Revision. Alles andere ist ErrUnauthorized.
func (s *ArticleService) ownRevision(ctx context.Context, user *models.User, id uint) (*models.Article, error) {
	if !user.HasRole(models.RoleEditor) {
		return nil, ErrUnauthorized
	}
	var article models.Article
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND approval_status = ?", id, user.ID, models.StatusRevision).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	return &article, nil
}

// EditForm liefert die Formulardaten für einen eigenen Artikel in Revision.
func (s *ArticleService) EditForm(ctx context.Context, user *models.User, id uint, commentPage int) (*EditForm, error) {
	article, err := s.ownRevision(ctx, user, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments(ctx, user, article.ID, commentPage)
	if err != nil {
		return nil, err
	}
	return &EditForm{Article: *article, Comments: comments, TypeOfReportOptions: models.ReportTypes}, nil
}

func (s *ArticleService) checkInput(in ArticleInput) (ArticleInput, time.Time, error) {
	in = s.Normalizer.CleanArticle(in)
	if err := validateStruct(s.validate, in); err != nil {
		return in, time.Time{}, err
	}
	published, err := time.Parse("2006-01-02", in.PublicationDate)
	if err != nil {
		return in, time.Time{}, &ValidationError{Fields: map[string]string{
			"publication_date": "The publication date field must be a valid date.",
		}}
	}
	return in, published, nil
}

// Create reicht einen neuen Artikel im Status Review ein.
func (s *ArticleService) Create(ctx context.Context, user *models.User, in ArticleInput) (*models.Article, error) {
	if !user.HasRole(models.RoleEditor) {
		return nil, ErrUnauthorized
	}
	in, published, err := s.checkInput(in)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	article := models.Article{
		Title:           in.Title,
		PublicationDate: published,
		TypeOfReport:    in.TypeOfReport,
		URL:             in.URL,
		DetailedSummary: in.DetailedSummary,
		Analysis:        in.Analysis,
		Recommendation:  in.Recommendation,
		ApprovalStatus:  models.StatusReview,
		UserID:          user.ID,
		EditorName:      user.Name,
		ImagePath:       in.ImagePath,
		PostedDate:      now.Format("2006-01-02"),
		TimePosted:      now.Format("15:04:05"),
	}
	if err := s.DB.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	s.Logger.Info("Artikel eingereicht",
		zap.Uint("article_id", article.ID),
		zap.Uint("user_id", user.ID),
		zap.String("type", article.TypeOfReport))

	keys := make([]string, 0, invalidatedReviewPages+3)
	for page := 1; page <= invalidatedReviewPages; page++ {
		keys = append(keys, ListCacheKey(models.StatusReview, page, user.ID, ""))
	}
	keys = append(keys, keyTotalReports, keyReportsThisWeek, keyReportsThisMonth)
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		s.Logger.Error("Cache-Schlüssel konnten nicht verworfen werden", zap.Error(err))
	}
	s.invalidate(ctx, "create")
	return &article, nil
}

// Resubmit übernimmt die Überarbeitung eines eigenen Artikels in Revision und setzt ihn auf Updated.
// Die Bildliste bleibt unverändert.
func (s *ArticleService) Resubmit(ctx context.Context, user *models.User, id uint, in ArticleInput) (*models.Article, error) {
	article, err := s.ownRevision(ctx, user, id)
	if err != nil {
		return nil, err
	}
	in, published, err := s.checkInput(in)
	if err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Article{}).
		Where("id = ? AND user_id = ? AND approval_status = ?", article.ID, user.ID, models.StatusRevision).
		Updates(map[string]any{
			"title":            in.Title,
			"publication_date": published,
			"type_of_report":   in.TypeOfReport,
			"url":              in.URL,
			"detailed_summary": in.DetailedSummary,
			"analysis":         in.Analysis,
			"recommendation":   in.Recommendation,
			"approval_status":  models.StatusUpdated,
			"updated_at":       s.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update article %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// zwischenzeitlich von einem Reviewer verschoben
		return nil, ErrUnauthorized
	}

	s.Logger.Info("Artikel überarbeitet", zap.Uint("article_id", article.ID), zap.Uint("user_id", user.ID))
	s.invalidate(ctx, "resubmit")
	return s.find(ctx, article.ID)
}

// TransitionResult beschreibt einen ausgeführten Übergang.
type TransitionResult struct {
	ArticleID uint                  `json:"article_id"`
	From      models.ApprovalStatus `json:"from"`
	To        models.ApprovalStatus `json:"to"`
	Message   string                `json:"message"`
}

// Transition setzt den Status gemäß Rolle und Aktion. Approved wird nie verlassen und
// Review führt nicht direkt zu Approved; beide Bedingungen stehen auch im UPDATE,
// damit parallele Entscheidungen sie nicht umgehen.
func (s *ArticleService) Transition(ctx context.Context, user *models.User, id uint, rawAction string) (*TransitionResult, error) {
	article, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Decide(user.RoleNames(), rawAction)
	switch {
	case errors.Is(err, workflow.ErrNoReviewerRole):
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, workflow.ErrUnknownAction):
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	case err != nil:
		return nil, err
	}
	if err := transitionGuard(article.ApprovalStatus, next); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Article{}).
		Where("id = ? AND approval_status NOT IN ?", article.ID, workflow.BlockedSources(next)).
		Updates(map[string]any{"approval_status": next, "updated_at": s.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("transition article %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Status hat sich seit dem Laden geändert
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := transitionGuard(current.ApprovalStatus, next); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyApproved
	}

	s.Logger.Info("Status geändert",
		zap.Uint("article_id", article.ID),
		zap.Uint("user_id", user.ID),
		zap.String("from", string(article.ApprovalStatus)),
		zap.String("to", string(next)))
	s.invalidate(ctx, "transition")

	return &TransitionResult{
		ArticleID: article.ID,
		From:      article.ApprovalStatus,
		To:        next,
		Message:   workflow.SuccessMessage(next),
	}, nil
}

func transitionGuard(from, next models.ApprovalStatus) error {
	if from.Terminal() {
		return ErrAlreadyApproved
	}
	if !workflow.Allowed(from, next) {
		return ErrNotEvaluated
	}
	return nil
}

// AddComment hängt einen Kommentar an einen Artikel, den der Benutzer sehen darf.
func (s *ArticleService) AddComment(ctx context.Context, user *models.User, articleID uint, in CommentInput) (*models.Comment, error) {
	article, err := s.find(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !canView(user, article) {
		return nil, ErrUnauthorized
	}
	in.Body = s.Normalizer.Clean(in.Body)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	comment := models.Comment{ArticleID: article.ID, UserID: user.ID, Body: in.Body}
	if err := s.DB.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.Logger.Info("Kommentar gespeichert", zap.Uint("article_id", article.ID), zap.Uint("user_id", user.ID))
	s.invalidate(ctx, "comment")
	return &comment, nil
}

// invalidate leert den Cache nach jedem Schreibzugriff. Ein Fehler wird geloggt,
// die bereits gespeicherte Änderung bleibt gültig.
func (s *ArticleService) invalidate(ctx context.Context, reason string) {
	if err := s.Cache.Flush(ctx); err != nil {
		s.Logger.Error("Cache konnte nicht geleert werden", zap.String("reason", reason), zap.Error(err))
	}
}
