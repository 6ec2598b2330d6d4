package models

import (
	"time"
)

// Request statuses. RequestClosed is a reserved value carried for data
// compatibility; no operation currently produces it.
const (
	RequestOpen      = "open"
	RequestFulfilled = "fulfilled"
	RequestClosed    = "closed"
)

type Request struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Urgency        string     `json:"urgency"`
	Location       string     `json:"location"`
	Tags           []string   `json:"tags"`
	RequesterID    string     `json:"requester_id"`
	RequesterName  string     `json:"requester_name"`
	RequesterEmail string     `json:"requester_email"`
	Status         string     `json:"status"`
	FulfilledBy    string     `json:"fulfilled_by,omitempty"`
	FulfilledAt    *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CreateRequestRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Urgency     string   `json:"urgency"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

func (r *CreateRequestRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.Description == "" {
		errors["description"] = "Description is required"
	}
	if r.Category == "" {
		errors["category"] = "Category is required"
	}
	if UrgencyRank(r.Urgency) == 0 {
		errors["urgency"] = "Urgency must be one of: low, medium, high, urgent"
	}
	if r.Location == "" {
		errors["location"] = "Location is required"
	}

	return errors
}

var Urgencies = []string{
	"low",
	"medium",
	"high",
	"urgent",
}

// UrgencyRank returns the sort weight of an urgency level (urgent highest).
// Unknown values rank 0 and sort last.
func UrgencyRank(urgency string) int {
	switch urgency {
	case "urgent":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	}
	return 0
}
