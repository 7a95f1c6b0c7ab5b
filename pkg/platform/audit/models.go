package audit

import (
	"context"
	"time"

	id "clockgate/pkg/domain"
)

// EventCategory classifies audit events by retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers HR-relevant facts: attendance records and
	// decisions on lost-device requests.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers trust decisions: rejected clock attempts,
	// device enrollment changes, credential registration.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	IdentityID id.IdentityID
	Subject    string
	Action     string
	Decision   string
	Reason     string
	// Fingerprint of the device involved, when one is.
	Fingerprint string
	Station     string
	RequestID   string
	// ActorID is set when someone other than IdentityID acted, e.g. the
	// HR approver of a lost-device request.
	ActorID string
}

type AuditEvent string

const (
	EventIdentityRegistered  AuditEvent = "identity_registered"
	EventIdentityApproved    AuditEvent = "identity_approved"
	EventIdentityDeactivated AuditEvent = "identity_deactivated"

	EventDeviceEnrolled   AuditEvent = "device_enrolled"
	EventDeviceRejected   AuditEvent = "device_enrollment_rejected"
	EventDeviceMarkedLost AuditEvent = "device_marked_lost"
	EventDeviceRemoved    AuditEvent = "device_removed"

	EventLostDeviceSubmitted AuditEvent = "lost_device_request_submitted"
	EventLostDeviceGranted   AuditEvent = "lost_device_request_granted"
	EventLostDeviceRejected  AuditEvent = "lost_device_request_rejected"

	EventCredentialRegistered AuditEvent = "biometric_credential_registered"
	EventBiometricFailed      AuditEvent = "biometric_verification_failed"

	EventLocationVerified AuditEvent = "location_verified"
	EventLocationRejected AuditEvent = "location_rejected"
	EventClockedIn        AuditEvent = "clocked_in"
	EventClockedOut       AuditEvent = "clocked_out"
	EventClockRejected    AuditEvent = "clock_attempt_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityRegistered:  CategoryCompliance,
	EventIdentityApproved:    CategoryCompliance,
	EventIdentityDeactivated: CategoryCompliance,
	EventLostDeviceGranted:   CategoryCompliance,
	EventLostDeviceRejected:  CategoryCompliance,
	EventClockedIn:           CategoryCompliance,
	EventClockedOut:          CategoryCompliance,

	EventDeviceEnrolled:       CategorySecurity,
	EventDeviceRejected:       CategorySecurity,
	EventDeviceMarkedLost:     CategorySecurity,
	EventDeviceRemoved:        CategorySecurity,
	EventCredentialRegistered: CategorySecurity,
	EventBiometricFailed:      CategorySecurity,
	EventClockRejected:        CategorySecurity,
	EventLocationRejected:     CategorySecurity,

	EventLostDeviceSubmitted: CategoryOperations,
	EventLocationVerified:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

func (e AuditEvent) String() string {
	return string(e)
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]Event, error)
}
