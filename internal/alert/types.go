package alert

import (
	"fmt"
	"time"

	"droneops-dispatch/internal/geo"
)

// EmergencyContact is the person to call for a subject.
type EmergencyContact struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
}

// Subject is a wearer of an emergency wristband.
type Subject struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	BloodType        string           `json:"blood_type" yaml:"blood_type"`
	Allergies        []string         `json:"allergies" yaml:"allergies"`
	Conditions       []string         `json:"conditions" yaml:"conditions"`
	EmergencyContact EmergencyContact `json:"emergency_contact" yaml:"emergency_contact"`
	Location         geo.Point        `json:"location" yaml:"location"`
}

// Event is one synthetic emergency. It stays visible until ExpiresAt.
type Event struct {
	ID        string    `json:"id"`
	Subject   Subject   `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the display window has passed at now.
func (e Event) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

func alertMessage(s Subject) string {
	return fmt.Sprintf("Emergency Alert: %s has triggered their emergency button!", s.Name)
}

// DefaultSubjects returns the built-in mock wristband roster.
func DefaultSubjects() []Subject {
	return []Subject{
		{
			ID:               "U001",
			Name:             "John Doe",
			BloodType:        "O+",
			Allergies:        []string{"Penicillin", "Peanuts"},
			Conditions:       []string{"Asthma"},
			EmergencyContact: EmergencyContact{Name: "Jane Doe", Phone: "+1 234 567 8900"},
			Location:         geo.Pt(-74.006, 40.7128),
		},
		{
			ID:               "U002",
			Name:             "Alice Smith",
			BloodType:        "A-",
			Allergies:        []string{"Shellfish"},
			Conditions:       []string{"Diabetes"},
			EmergencyContact: EmergencyContact{Name: "Bob Smith", Phone: "+1 234 567 8901"},
			Location:         geo.Pt(-73.9851, 40.7589),
		},
	}
}
