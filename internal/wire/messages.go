// Package wire defines the CQL-family message vocabulary and the external
// collaborator contracts (Reactor, Connection, RequestRunner) the Control
// Connection is built against. No frame encoding/decoding lives here — per
// spec §1 the wire codec is an external collaborator, not part of the
// core.
package wire

import "fmt"

// Kind tags a Request, Response, or Event with its message family.
type Kind int

const (
	KindOptions Kind = iota
	KindSupported
	KindStartup
	KindReady
	KindAuthenticate
	KindAuthResponse
	KindAuthSuccess
	KindRegister
	KindQuery
	KindResult
	KindError
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindOptions:
		return "OPTIONS"
	case KindSupported:
		return "SUPPORTED"
	case KindStartup:
		return "STARTUP"
	case KindReady:
		return "READY"
	case KindAuthenticate:
		return "AUTHENTICATE"
	case KindAuthResponse:
		return "AUTH_RESPONSE"
	case KindAuthSuccess:
		return "AUTH_SUCCESS"
	case KindRegister:
		return "REGISTER"
	case KindQuery:
		return "QUERY"
	case KindResult:
		return "RESULT"
	case KindError:
		return "ERROR"
	case KindEvent:
		return "EVENT"
	default:
		return fmt.Sprintf("UNKNOWN_%d", int(k))
	}
}

// ErrCodeProtocolMismatch is the error code the server sends when it
// cannot speak the protocol version the client announced (spec §6).
const ErrCodeProtocolMismatch = 0x0A

// EventFamily distinguishes the two event push families the core
// subscribes to (spec §4.1.5).
type EventFamily string

const (
	EventStatusChange   EventFamily = "STATUS_CHANGE"
	EventTopologyChange EventFamily = "TOPOLOGY_CHANGE"
)

// EventSubtype is the subtype carried by a StatusChange/TopologyChange
// event.
type EventSubtype string

const (
	SubtypeUp          EventSubtype = "UP"
	SubtypeDown        EventSubtype = "DOWN"
	SubtypeNewNode     EventSubtype = "NEW_NODE"
	SubtypeRemovedNode EventSubtype = "REMOVED_NODE"
)

// Request is a frame sent by the client.
type Request struct {
	Kind Kind

	// Startup
	CQLVersion string

	// AuthResponse
	AuthToken []byte

	// Register
	EventFamilies []EventFamily

	// Query
	CQL  string
	Args []any
}

// Options is a convenience constructor for the version-negotiation probe
// (spec §4.1.3 step 2).
func Options() Request { return Request{Kind: KindOptions} }

// Startup is a convenience constructor for the STARTUP message (spec
// §4.1.3 step 3).
func Startup(cqlVersion string) Request {
	return Request{Kind: KindStartup, CQLVersion: cqlVersion}
}

// AuthResponse is a convenience constructor carrying the SASL token
// produced by a settings.AuthProvider.
func AuthResponse(token []byte) Request {
	return Request{Kind: KindAuthResponse, AuthToken: token}
}

// Register is a convenience constructor for subscribing to event families
// (spec §4.1.3 step 5).
func Register(families ...EventFamily) Request {
	return Request{Kind: KindRegister, EventFamilies: families}
}

// Query is a convenience constructor for a discovery SELECT.
func Query(cql string, args ...any) Request {
	return Request{Kind: KindQuery, CQL: cql, Args: args}
}

// Row is one row of a Rows result, column name to decoded value.
type Row map[string]any

// Response is a frame received in reply to a Request.
type Response struct {
	Kind Kind

	// Supported (reply to Options) — unused by the core beyond presence,
	// kept for completeness of the external contract.
	Options map[string][]string

	// Authenticate
	AuthenticatorClass string

	// Rows (reply to Query)
	Rows []Row

	// Error
	ErrorCode    int
	ErrorMessage string
}

// IsError reports whether the response is an ERROR frame.
func (r Response) IsError() bool { return r.Kind == KindError }

// IsProtocolMismatch reports whether the response is the specific ERROR
// frame that drives version negotiation (spec §4.1.3 step 2, §6).
func (r Response) IsProtocolMismatch() bool {
	return r.Kind == KindError && r.ErrorCode == ErrCodeProtocolMismatch
}

// Event is a server-pushed frame received outside the request/response
// cycle, after a successful Register (spec §4.1.5).
type Event struct {
	Family  EventFamily
	Subtype EventSubtype
	// Address is the canonical string IP form of the affected host. Per
	// spec §4.1.5, any port component on the wire is ignored before this
	// struct is constructed.
	Address string
}
