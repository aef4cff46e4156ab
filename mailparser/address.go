package mailparser

import "strings"

// Domain returns the part after the last "@", lowercased. Empty when the
// address carries no domain.
func Domain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}

// LocalPart returns the part before the "@". The whole string when there is
// no "@".
func LocalPart(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return strings.TrimSpace(address)
	}
	return strings.TrimSpace(address[:at])
}

// IsDomainPattern reports whether a ban-list entry names a domain rather
// than a full address.
func IsDomainPattern(entry string) bool {
	return !strings.Contains(entry, "@") && strings.Contains(entry, ".")
}
