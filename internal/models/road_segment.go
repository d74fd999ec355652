package models

// RoadSegmentColumns are the columns of road_segments that reads may filter and order by
var RoadSegmentColumns = []string{"id", "road_id", "title", "status", "distance_km", "sequence"}

// RoadSegment represents a sub-section of a road with its own status
type RoadSegment struct {
	ID         int        `json:"id"`
	RoadID     int        `json:"road_id"`
	Title      string     `json:"title"`
	Status     RoadStatus `json:"status"`
	StatusNote string     `json:"status_note"`
	DistanceKm float64    `json:"distance_km"`
	TravelTime string     `json:"travel_time"`
	Sequence   int        `json:"sequence"`
}
