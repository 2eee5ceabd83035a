package models

import (
	"time"

	"gorm.io/datatypes"
)

// ApprovalStatus ist die Position eines Artikels im Freigabe-Workflow.
type ApprovalStatus string

const (
	StatusReview    ApprovalStatus = "Review"
	StatusUpdated   ApprovalStatus = "Updated"
	StatusRevision  ApprovalStatus = "Revision"
	StatusEvaluated ApprovalStatus = "Evaluated"
	StatusApproved  ApprovalStatus = "Approved"
)

// Statuses listet alle gültigen Status in Workflow-Reihenfolge.
var Statuses = []ApprovalStatus{StatusReview, StatusUpdated, StatusRevision, StatusEvaluated, StatusApproved}

// ParseStatus prüft einen Status aus der URL. Groß-/Kleinschreibung muss exakt passen.
func ParseStatus(raw string) (ApprovalStatus, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Terminal meldet, ob der Status keine weiteren Übergänge mehr erlaubt.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved
}

// ReportTypes sind die festen Kategorien für type_of_report.
var ReportTypes = []string{
	"Breach",
	"Data Leak",
	"Malware Information",
	"Threat Actors Updates",
	"Cyber Awareness",
	"Vulnerability Exploitation",
	"Phishing",
	"Ransomware",
	"Social Engineering",
	"Illegal Access",
}

// IsReportType prüft, ob value eine der festen Kategorien ist.
func IsReportType(value string) bool {
	for _, t := range ReportTypes {
		if t == value {
			return true
		}
	}
	return false
}

// Article ist ein eingereichter Bericht inklusive Freigabestatus.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	// Inhalt
	Title           string    `json:"title" gorm:"size:255;not null"`
	PublicationDate time.Time `json:"publication_date" gorm:"type:date"`
	TypeOfReport    string    `json:"type_of_report" gorm:"size:64;index"`
	URL             string    `json:"url" gorm:"column:url;size:2083"`
	DetailedSummary string    `json:"detailed_summary" gorm:"type:text"`
	Analysis        string    `json:"analysis" gorm:"type:text"`
	Recommendation  string    `json:"recommendation" gorm:"type:text"`

	// Workflow
	ApprovalStatus ApprovalStatus `json:"approval_status" gorm:"size:16;index;not null;default:'Review'"`

	// Autor
	UserID     uint   `json:"user_id" gorm:"index;not null"`
	EditorName string `json:"editor_name"`

	// Bilder in Upload-Reihenfolge, als JSON gespeichert
	ImagePath datatypes.JSONSlice[string] `json:"image_path"`

	PostedDate string `json:"posted_date" gorm:"size:10"`
	TimePosted string `json:"time_posted" gorm:"size:8"`

	Comments []Comment `json:"-"`
}

// TableName gibt explizit den Tabellennamen an.
func (Article) TableName() string {
	return "articles"
}

// ImagePaths liefert die gespeicherten Bildreferenzen, nie nil.
func (a *Article) ImagePaths() []string {
	if len(a.ImagePath) == 0 {
		return []string{}
	}
	return []string(a.ImagePath)
}
