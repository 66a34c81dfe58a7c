package payments

import "time"

// Normalize maps a raw provider payload into the canonical event shape.
// Each source has its own discriminated schema; anything structurally
// unknown comes back as a *NormalizationError rather than a partial event.
func Normalize(source string, raw []byte, receivedAt time.Time) (*CanonicalEvent, error) {
	switch source {
	case SourceHotmart:
		return parseHotmartEvent(raw, receivedAt)
	case SourceDoppus:
		return parseDoppusEvent(raw, receivedAt)
	default:
		return nil, normErr(source, "unknown webhook source")
	}
}
