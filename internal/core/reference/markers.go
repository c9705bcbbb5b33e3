package reference

import "strings"

// Keyed markers embedded in references for the downstream accounting system.
const (
	MarkerCompany      = "_CMPY_"
	MarkerRegistration = "_REG_"
	MarkerTerritory    = "_TERI_"
	MarkerPhone        = "_PHONE_"

	// MarkerNotify flags references whose payments must be pushed to EVA.
	MarkerNotify = "_APP_EVA_"
)

// HasMarker reports whether reference contains marker, ignoring case.
func HasMarker(reference, marker string) bool {
	return indexFold(reference, marker) >= 0
}

// Extract returns the value that follows marker up to the next "_" or the end
// of the reference. The marker is matched case-insensitively; a missing marker
// yields "".
func Extract(reference, marker string) string {
	i := indexFold(reference, marker)
	if i < 0 {
		return ""
	}
	value := reference[i+len(marker):]
	if j := strings.Index(value, valueSep); j >= 0 {
		value = value[:j]
	}
	return value
}

// indexFold is strings.Index with ASCII case folding that keeps byte offsets
// valid for the original string.
func indexFold(s, substr string) int {
	if substr == "" {
		return -1
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}
