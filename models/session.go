package models

import "time"

// Session replaces the browser's session storage. The five member fields are the keys the
// pages used to read and clear.
type Session struct {
	ID             string `gorm:"primaryKey;size:36"`
	Token          string `gorm:"type:text"`
	MemberID       string `gorm:"size:64"`
	MemberName     string `gorm:"size:100"`
	MemberNickname string `gorm:"size:100"`
	AdminYN        string `gorm:"size:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.AdminYN == "Y"
}

// Clear drops every member key.
func (s *Session) Clear() {
	s.Token = ""
	s.MemberID = ""
	s.MemberName = ""
	s.MemberNickname = ""
	s.AdminYN = ""
}
