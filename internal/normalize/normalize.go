package normalize

import "errors"

var (
	// ErrMalformedURL is returned for an HTTP trigger without a usable path or query.
	ErrMalformedURL = errors.New("malformed url")
	// ErrUnmappedTopic is returned for an MQTT topic without a mapping.
	ErrUnmappedTopic = errors.New("unmapped topic")
	// ErrUnresolvedState is returned when an MQTT payload matches neither configured message.
	ErrUnresolvedState = errors.New("unresolved state")
	// ErrBadRecipient is returned for an SMTP recipient without a usable local part.
	ErrBadRecipient = errors.New("bad recipient")
)
