package models

import "time"

// Rollennamen, wie sie in der roles-Tabelle stehen.
const (
	RoleEditor        = "editor"
	RoleAdministrator = "administrator"
	RoleExecutive     = "executive"
)

// DefaultRoles werden beim Start angelegt.
var DefaultRoles = []string{RoleEditor, RoleAdministrator, RoleExecutive}

// Role ist eine benannte Berechtigungsgruppe.
type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:64;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Role) TableName() string {
	return "roles"
}

// User ist ein angemeldeter Benutzer mit seinen Rollen.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `json:"name" gorm:"not null"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `json:"-" gorm:"not null"`

	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles"`
}

// TableName gibt explizit den Tabellennamen an.
func (User) TableName() string {
	return "users"
}

// RoleNames liefert die Rollennamen des Benutzers.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole meldet, ob der Benutzer mindestens eine der Rollen besitzt.
func (u *User) HasRole(names ...string) bool {
	for _, r := range u.Roles {
		for _, n := range names {
			if r.Name == n {
				return true
			}
		}
	}
	return false
}

// EditorOnly meldet, ob der Benutzer Autor ohne Reviewer-Rolle ist.
// Solche Benutzer sehen in Listen und Exporten nur eigene Artikel.
func (u *User) EditorOnly() bool {
	return u.HasRole(RoleEditor) && !u.HasRole(RoleAdministrator, RoleExecutive)
}
