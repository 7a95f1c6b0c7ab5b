package audit

import (
	"clockgate/pkg/attrs"
	id "clockgate/pkg/domain"
)

// NewEvent builds an Event from the key/value pairs a service already logs.
// Recognised keys: identity_id, subject, decision, reason, fingerprint,
// station, request_id, actor_id.
func NewEvent(action AuditEvent, attributes ...any) Event {
	e := Event{
		Category:    action.Category(),
		Action:      string(action),
		Subject:     attrs.ExtractString(attributes, "subject"),
		Decision:    attrs.ExtractString(attributes, "decision"),
		Reason:      attrs.ExtractString(attributes, "reason"),
		Fingerprint: attrs.ExtractString(attributes, "fingerprint"),
		Station:     attrs.ExtractString(attributes, "station"),
		RequestID:   attrs.ExtractString(attributes, "request_id"),
		ActorID:     attrs.ExtractString(attributes, "actor_id"),
	}
	if identityID, ok := attrs.Extract[id.IdentityID](attributes, "identity_id"); ok {
		e.IdentityID = identityID
	}
	if e.Subject == "" && !e.IdentityID.IsNil() {
		e.Subject = e.IdentityID.String()
	}
	return e
}
