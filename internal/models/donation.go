package models

import (
	"time"
)

// Donation statuses. A donation only ever moves forward:
// available -> reserved -> completed.
const (
	DonationAvailable = "available"
	DonationReserved  = "reserved"
	DonationCompleted = "completed"
)

type Donation struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	Location    string     `json:"location"`
	Tags        []string   `json:"tags"`
	DonorID     string     `json:"donor_id"`
	DonorName   string     `json:"donor_name"`
	DonorEmail  string     `json:"donor_email"`
	Status      string     `json:"status"`
	ImageURL    string     `json:"image_url,omitempty"`
	ReservedBy  string     `json:"reserved_by,omitempty"`
	ReservedAt  *time.Time `json:"reserved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateDonationRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"image_url"`
}

func (r *CreateDonationRequest) Validate() map[string]string {
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
	if !isValidCondition(r.Condition) {
		errors["condition"] = "Condition must be one of: new, like-new, good, fair"
	}
	if r.Location == "" {
		errors["location"] = "Location is required"
	}

	return errors
}

// Categories shown by clients. Storage accepts free-form categories; the
// "all" sentinel in list queries means no category filter.
var Categories = []string{
	"clothing",
	"electronics",
	"furniture",
	"books",
	"toys",
	"kitchen",
	"sports",
	"tools",
	"other",
}

var Conditions = []string{
	"new",
	"like-new",
	"good",
	"fair",
}

func isValidCondition(c string) bool {
	for _, v := range Conditions {
		if c == v {
			return true
		}
	}
	return false
}
