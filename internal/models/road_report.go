package models

import (
	"fmt"
	"strings"
	"time"
)

// Cause is the reported reason for a blockage, stored as its display label
type Cause string

// Cause constants
const (
	CauseLandslide Cause = "Landslide"
	CauseSnowfall  Cause = "Snowfall"
	CauseFlooding  Cause = "Flooding"
	CauseAccident  Cause = "Accident"
	CauseRoadWork  Cause = "Road work"
	CauseOther     Cause = "Other"
)

// Causes lists the selectable causes in display order
var Causes = []Cause{CauseLandslide, CauseSnowfall, CauseFlooding, CauseAccident, CauseRoadWork, CauseOther}

// ParseCause matches a cause case-insensitively ("landslide", "road work", "Road Work")
func ParseCause(s string) (Cause, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	for _, c := range Causes {
		if strings.ToLower(string(c)) == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cause %q", s)
}

// ReportStatus is the moderation state of a report
type ReportStatus string

// ReportStatus constants
const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusVerified  ReportStatus = "verified"
	ReportStatusIncorrect ReportStatus = "incorrect"
)

// IsModerationTarget reports whether an admin may move a report into this status
func (s ReportStatus) IsModerationTarget() bool {
	return s == ReportStatusVerified || s == ReportStatusIncorrect
}

// RoadReportColumns are the columns of road_reports that reads may filter and order by
var RoadReportColumns = []string{"id", "road_id", "road_name", "user_id", "cause", "status", "created_at"}

// RoadReport represents a user-submitted observation about a road
// RoadName is captured at submission time and never re-joined with roads
type RoadReport struct {
	ID              int          `json:"id"`
	RoadID          int          `json:"road_id"`
	RoadName        string       `json:"road_name"`
	UserID          int          `json:"user_id"`
	NearestTown     string       `json:"nearest_town"`
	BlockedDuration string       `json:"blocked_duration"`
	Subdivision     string       `json:"subdivision,omitempty"`
	Cause           Cause        `json:"cause"`
	PhotoURL        *string      `json:"photo_url"`
	Status          ReportStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewReportRequest is the insert payload for road_reports
type NewReportRequest struct {
	RoadID          int     `json:"road_id" validate:"required,gt=0"`
	RoadName        string  `json:"road_name" validate:"required,max=255"`
	NearestTown     string  `json:"nearest_town" validate:"required,max=255"`
	BlockedDuration string  `json:"blocked_duration" validate:"required,max=255"`
	Subdivision     string  `json:"subdivision,omitempty" validate:"max=255"`
	Cause           string  `json:"cause" validate:"required"`
	PhotoURL        *string `json:"photo_url" validate:"omitempty,url,max=1024"`
}

// UpdateReportRequest is the update payload for road_reports
type UpdateReportRequest struct {
	Status ReportStatus `json:"status" validate:"required,oneof=verified incorrect"`
}
