package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

const resetSegment = "/reset"

// HTTP normalizes GET /<triggerType>[/reset]?<cameraName>.
//
// The whole query string is the percent-decoded camera name. A path holding
// /reset is always a motion reset; every other path is a positive trigger.
// Besides a missing path or query, a first segment other than motion or
// doorbell (e.g. /siren?Garage) is rejected as ErrMalformedURL.
func HTTP(path, rawQuery string) (trigger.Trigger, error) {
	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if segment == "" {
		return trigger.Trigger{}, fmt.Errorf("%w: missing trigger type", ErrMalformedURL)
	}

	if rawQuery == "" {
		return trigger.Trigger{}, fmt.Errorf("%w: missing camera name", ErrMalformedURL)
	}

	name, err := url.PathUnescape(rawQuery)
	if err != nil {
		return trigger.Trigger{}, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return trigger.Trigger{}, fmt.Errorf("%w: blank camera name", ErrMalformedURL)
	}

	result := trigger.Trigger{
		Camera:  name,
		State:   true,
		Channel: trigger.ChannelHTTP,
	}

	if strings.Contains(path, resetSegment) {
		result.Type = trigger.Motion
		result.State = false

		return result, nil
	}

	switch trigger.Type(segment) {
	case trigger.Motion, trigger.Doorbell:
		result.Type = trigger.Type(segment)
	default:
		return trigger.Trigger{}, fmt.Errorf("%w: unknown trigger type %q", ErrMalformedURL, segment)
	}

	return result, nil
}
