package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"focusonmeal/models"
)

var (
	ErrInvalidAlertID = errors.New("invalid alert id")
	ErrAlertNotFound  = errors.New("alert not found")
)

const (
	AlertInvalidIDMessage = "Invalid alert id."
	AlertNotFoundMessage  = "Alert not found."
	AlertListPath         = "/board/safety/list"
)

type HazardBadge string

const (
	BadgeDanger  HazardBadge = "danger"
	BadgeGlobal  HazardBadge = "global"
	BadgeDefault HazardBadge = "default"
)

// hazard types as tagged by the board backend
var (
	dangerHazards = map[string]struct{}{"DANGER": {}, "RECALL": {}, "HAZARD": {}, "위해": {}, "회수": {}}
	globalHazards = map[string]struct{}{"GLOBAL": {}, "OVERSEAS": {}, "INTERNATIONAL": {}, "해외": {}}
)

// ClassifyHazard maps a record's hazard type to the badge it is shown with.
func ClassifyHazard(hazardType string) HazardBadge {
	key := strings.ToUpper(strings.TrimSpace(hazardType))
	if _, ok := dangerHazards[key]; ok {
		return BadgeDanger
	}
	if _, ok := globalHazards[key]; ok {
		return BadgeGlobal
	}
	return BadgeDefault
}

// ParseAlertID accepts only positive base-10 integers written as plain digits.
func ParseAlertID(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrInvalidAlertID
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAlertID
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidAlertID
	}
	return id, nil
}

type AlertFetcher interface {
	GetSafetyAlert(ctx context.Context, id int64) (*models.Alert, error)
}

// AlertView is everything the detail page shows.
type AlertView struct {
	Error       string      `json:"error,omitempty"`
	ID          int64       `json:"id,omitempty"`
	Badge       HazardBadge `json:"badge,omitempty"`
	HazardType  string      `json:"hazard_type,omitempty"`
	Title       string      `json:"title,omitempty"`
	Nation      string      `json:"nation,omitempty"`
	PublishedOn string      `json:"published_on,omitempty"`
	Description string      `json:"description,omitempty"`
	BackURL     string      `json:"back_url"`
	PrevLabel   string      `json:"prev_label"`
	NextLabel   string      `json:"next_label"`
}

type AlertViewService struct {
	api AlertFetcher
}

func NewAlertViewService(api AlertFetcher) *AlertViewService {
	return &AlertViewService{api: api}
}

// Load validates the route id and fetches the record. The returned error is one of
// ErrInvalidAlertID or ErrAlertNotFound; the view is always renderable.
func (s *AlertViewService) Load(ctx context.Context, rawID string) (AlertView, error) {
	id, err := ParseAlertID(rawID)
	if err != nil {
		return errorAlertView(AlertInvalidIDMessage), err
	}

	alert, err := s.api.GetSafetyAlert(ctx, id)
	if err != nil {
		log.Printf("alert %d: fetch failed: %v", id, err)
		return errorAlertView(AlertNotFoundMessage), ErrAlertNotFound
	}
	if alert == nil || (alert.ID == 0 && alert.Title == "") {
		return errorAlertView(AlertNotFoundMessage), ErrAlertNotFound
	}
	return RenderAlert(alert), nil
}

// RenderAlert maps a fetched record onto the page.
func RenderAlert(a *models.Alert) AlertView {
	v := AlertView{
		ID:          a.ID,
		Badge:       ClassifyHazard(a.HazardType),
		HazardType:  a.HazardType,
		Title:       a.Title,
		Nation:      a.Nation,
		Description: a.Description,
		BackURL:     AlertListPath,
		PrevLabel:   "Previous article: none",
		NextLabel:   "Next article: none",
	}
	if !a.PublicationDate.IsZero() {
		v.PublishedOn = a.PublicationDate.Format("2006.01.02")
	}
	return v
}

func errorAlertView(msg string) AlertView {
	return AlertView{
		Error:     msg,
		BackURL:   AlertListPath,
		PrevLabel: "Previous article: none",
		NextLabel: "Next article: none",
	}
}
