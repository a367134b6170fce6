package portal

import (
	"net/mail"
	"regexp"
)

var macPattern = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

// ValidEmail reports whether s parses as an RFC 5322 address.
func ValidEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// ValidPhone reports whether s is an 11-digit phone number, the national
// format the portal form collects.
func ValidPhone(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidMAC reports whether s is a colon-separated MAC address.
func ValidMAC(s string) bool {
	return macPattern.MatchString(s)
}
