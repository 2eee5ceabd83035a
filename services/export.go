package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"report-desk/models"
)

var exportHeader = []string{
	"ID", "Title", "Publication Date", "Type of Report", "URL",
	"Editor Name", "Detailed Summary", "Analysis", "Recommendation",
	"Approval Status", "Created At", "Updated At",
}

// EscapeCSVValue entschärft Werte, die eine Tabellenkalkulation als Formel lesen würde.
func EscapeCSVValue(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@':
		return "'" + v
	}
	return v
}

// Export ist ein vorbereiteter CSV-Export einer Statusliste.
type Export struct {
	service *ArticleService
	user    *models.User
	status  models.ApprovalStatus
}

// NewExport prüft Rolle und Status, bevor etwas geschrieben wird.
func (s *ArticleService) NewExport(user *models.User, rawStatus string) (*Export, error) {
	if !user.HasRole(models.RoleAdministrator, models.RoleExecutive, models.RoleEditor) {
		return nil, ErrUnauthorized
	}
	status, ok := models.ParseStatus(rawStatus)
	if !ok {
		return nil, ErrNotFound
	}
	return &Export{service: s, user: user, status: status}, nil
}

// Filename ist der Name für Content-Disposition.
func (e *Export) Filename() string {
	return "articles_" + strings.ToLower(string(e.status)) + ".csv"
}

// Stream schreibt die Artikel zeilenweise. Implementiert w http.Flusher, wird nach jeder Zeile geflusht.
func (e *Export) Stream(ctx context.Context, w io.Writer) (int, error) {
	s := e.service
	out := csv.NewWriter(w)
	flush := func() error {
		out.Flush()
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return out.Error()
	}

	if err := out.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	if err := flush(); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	order := "updated_at DESC"
	if e.status == models.StatusReview {
		order = "created_at DESC"
	}
	rows, err := s.scoped(ctx, e.user, e.status).Order(order).Order("id DESC").Rows()
	if err != nil {
		return 0, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()

	written := 0
	for rows.Next() {
		var a models.Article
		if err := s.DB.ScanRows(rows, &a); err != nil {
			return written, fmt.Errorf("export scan: %w", err)
		}
		if err := out.Write(exportRecord(&a)); err != nil {
			return written, fmt.Errorf("export write: %w", err)
		}
		if err := flush(); err != nil {
			return written, fmt.Errorf("export write: %w", err)
		}
		written++
	}
	if err := rows.Err(); err != nil {
		return written, fmt.Errorf("export rows: %w", err)
	}

	s.Logger.Info("CSV-Export abgeschlossen",
		zap.String("status", string(e.status)),
		zap.Uint("user_id", e.user.ID),
		zap.Int("rows", written))
	return written, nil
}

func exportRecord(a *models.Article) []string {
	return []string{
		strconv.FormatUint(uint64(a.ID), 10),
		EscapeCSVValue(a.Title),
		a.PublicationDate.Format("2006-01-02"),
		EscapeCSVValue(a.TypeOfReport),
		EscapeCSVValue(a.URL),
		EscapeCSVValue(a.EditorName),
		EscapeCSVValue(a.DetailedSummary),
		EscapeCSVValue(a.Analysis),
		EscapeCSVValue(a.Recommendation),
		string(a.ApprovalStatus),
		a.CreatedAt.Format("2006-01-02 15:04:05"),
		a.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
