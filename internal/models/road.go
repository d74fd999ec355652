package models

import (
	"fmt"
	"strings"
	"time"
)

// RoadStatus is the traffic condition of a road or segment
type RoadStatus string

// RoadStatus constants
const (
	RoadStatusOpen   RoadStatus = "open"
	RoadStatusDelays RoadStatus = "delays"
	RoadStatusClosed RoadStatus = "closed"
)

// ParseRoadStatus accepts any letter case ("Open", "CLOSED") and returns the canonical status
func ParseRoadStatus(s string) (RoadStatus, error) {
	switch status := RoadStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case RoadStatusOpen, RoadStatusDelays, RoadStatusClosed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown road status %q", s)
	}
}

// Label returns the display form of the status
func (s RoadStatus) Label() string {
	switch s {
	case RoadStatusOpen:
		return "Open"
	case RoadStatusDelays:
		return "Delays"
	case RoadStatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

// RoadColumns are the columns of roads that reads may filter and order by
var RoadColumns = []string{"id", "name", "acronym", "status", "distance_km", "sort_order", "updated_at"}

// Road represents a tracked travel route
type Road struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Acronym    string     `json:"acronym"`
	Status     RoadStatus `json:"status"`
	DistanceKm float64    `json:"distance_km"`
	SortOrder  int        `json:"sort_order"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
