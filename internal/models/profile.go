package models

// UserProfile holds per-user activity counters, one document per user.
// It is created lazily on the user's first listing and seeded from that
// listing's location and the author's display name; afterwards only the
// counters change.
type UserProfile struct {
	UserID             string `json:"user_id"`
	DisplayName        string `json:"display_name"`
	Bio                string `json:"bio,omitempty"`
	Location           string `json:"location"`
	DonationsCount     int    `json:"donations_count"`
	RequestsCount      int    `json:"requests_count"`
	CompletedDonations int    `json:"completed_donations"`
	CompletedRequests  int    `json:"completed_requests"`
}
