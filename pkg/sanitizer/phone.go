package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Regions tried, in order, for numbers typed without a country code. Thailand first,
// then the other markets the card gateway settles in.
var phoneRegions = []string{"TH", "SG", "MY", "JP", "US", "GB"}

// NormalizePhone returns the E.164 form of phone, or "" when no region yields a valid
// number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	for _, region := range phoneRegions {
		num, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return ""
}
