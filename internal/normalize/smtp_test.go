package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSMTPRecipient recovers camera names from recipient local parts.
func TestSMTPRecipient(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Garage@cameras.local":     "Garage",
		"Front+Door@cameras.local": "Front Door",
		"<Back+Yard+Gate@x>":       "Back Yard Gate",
		"  Porch@cameras.local  ":  "Porch",
		"Side+Door+@cameras.local": "Side Door",
	}

	for address, want := range cases {
		got, err := SMTPRecipient(address, "+")
		require.NoError(t, err, address)
		require.Equal(t, want, got, address)
	}

	got, err := SMTPRecipient("Front__Door@x", "__")
	require.NoError(t, err)
	require.Equal(t, "Front Door", got)
}

// TestSMTPRecipient_Rejected covers addresses without a camera name.
func TestSMTPRecipient_Rejected(t *testing.T) {
	t.Parallel()

	for _, address := range []string{"no-domain", "@cameras.local", "+@cameras.local", ""} {
		_, err := SMTPRecipient(address, "+")
		require.ErrorIs(t, err, ErrBadRecipient, address)
	}
}
