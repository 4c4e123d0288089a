package booking

import "time"

// Urgency represents how quickly the requested service is needed.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// urgencyRank orders urgencies from least to most urgent.
var urgencyRank = map[Urgency]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// IsValid returns true if the urgency is recognized.
func (u Urgency) IsValid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank returns the ordering position of the urgency (low=0 .. critical=3).
func (u Urgency) Rank() int {
	return urgencyRank[u]
}

// Location is a value object describing where the service is needed.
// RemoteArea is a classification supplied by the upstream geo layer, not
// computed here.
type Location struct {
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	RemoteArea bool     `json:"remote_area"`
}

// ContactInfo holds how dispatch reaches the requester. Phone is required.
type ContactInfo struct {
	Phone            string `json:"phone"`
	Email            string `json:"email,omitempty"`
	AlternateContact string `json:"alternate_contact,omitempty"`
}

// TransitionSource identifies which path requested a status transition.
type TransitionSource string

const (
	SourceWebhook TransitionSource = "webhook"
	SourcePoll    TransitionSource = "poll"
	SourceAdmin   TransitionSource = "admin"
	SourceSystem  TransitionSource = "system"
)

// StatusChange is a single entry in a booking's append-only audit trail.
type StatusChange struct {
	Status BookingStatus    `json:"status"`
	Actor  string           `json:"actor"`
	Source TransitionSource `json:"source"`
	Note   string           `json:"note,omitempty"`
	At     time.Time        `json:"at"`
}
