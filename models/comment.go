package models

import "time"

// Comment ist ein Kommentar eines Reviewers oder Autors zu genau einem Artikel.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	ArticleID uint   `json:"article_id" gorm:"index;not null"`
	UserID    uint   `json:"user_id" gorm:"index;not null"`
	User      *User  `json:"user,omitempty"`
	Body      string `json:"body" gorm:"type:text;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Comment) TableName() string {
	return "comments"
}
