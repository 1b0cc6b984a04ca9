package normalize

import (
	"fmt"
	"strings"
)

// SMTPRecipient recovers the camera name from an envelope recipient: the
// local part with every delimiter replaced by a space.
func SMTPRecipient(address, delimiter string) (string, error) {
	address = strings.Trim(strings.TrimSpace(address), "<>")

	local, _, found := strings.Cut(address, "@")
	if !found {
		return "", fmt.Errorf("%w: %q has no domain", ErrBadRecipient, address)
	}

	if delimiter != "" {
		local = strings.ReplaceAll(local, delimiter, " ")
	}

	name := strings.TrimSpace(local)
	if name == "" {
		return "", fmt.Errorf("%w: %q has an empty local part", ErrBadRecipient, address)
	}

	return name, nil
}
