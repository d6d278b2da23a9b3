// Package host defines the immutable record describing one cluster member.
package host

import (
	"github.com/google/uuid"
)

// Host is an immutable description of one cluster member. Identity is the
// IP address: two Hosts with the same IP represent the same cluster member
// at different points in time, never the same in-memory value mutated.
type Host struct {
	IP             string
	DataCenter     string
	Rack           string
	ID             uuid.UUID
	ReleaseVersion string
}

// New constructs a Host. ID may be uuid.Nil if the discovery row carried no
// parseable host_id — callers decide whether that is acceptable.
func New(ip, dataCenter, rack string, id uuid.UUID, releaseVersion string) Host {
	return Host{
		IP:             ip,
		DataCenter:     dataCenter,
		Rack:           rack,
		ID:             id,
		ReleaseVersion: releaseVersion,
	}
}

// Attributes is the subset of a Host that determines whether a rediscovery
// changed anything. Two Hosts with the same IP and equal Attributes are
// considered unchanged for the purposes of Registry.host_found's
// idempotence rule (spec §4.2, §8 round-trip law).
type Attributes struct {
	DataCenter     string
	Rack           string
	ID             uuid.UUID
	ReleaseVersion string
}

// Attrs extracts the comparable attribute set from a Host.
func (h Host) Attrs() Attributes {
	return Attributes{
		DataCenter:     h.DataCenter,
		Rack:           h.Rack,
		ID:             h.ID,
		ReleaseVersion: h.ReleaseVersion,
	}
}

// WithAttrs returns a new Host with the same IP and the given attributes.
// Host values are never mutated in place; a rediscovery always produces a
// fresh value via this constructor.
func WithAttrs(ip string, attrs Attributes) Host {
	return Host{
		IP:             ip,
		DataCenter:     attrs.DataCenter,
		Rack:           attrs.Rack,
		ID:             attrs.ID,
		ReleaseVersion: attrs.ReleaseVersion,
	}
}

// ParseID parses a host_id column value into a uuid.UUID, returning
// uuid.Nil (not an error) for an empty string since some discovery rows
// omit it.
func ParseID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
