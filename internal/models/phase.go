package models

// Phase is the login phase of a session. Exactly one of the concrete
// phase types below is held at any time.
type Phase interface {
	// Name returns a short identifier used in logs and the JSON API.
	Name() string
	phase()
}

// Initializing is the phase before the sync client has been consulted.
type Initializing struct{}

// AwaitingPairing holds the link the user must open to pair this device.
type AwaitingPairing struct {
	Link string
}

// LoggedIn is the phase once the sync client holds an active session.
type LoggedIn struct {
	Username string
}

func (Initializing) Name() string    { return "initializing" }
func (AwaitingPairing) Name() string { return "awaiting_pairing" }
func (LoggedIn) Name() string        { return "logged_in" }

func (Initializing) phase()    {}
func (AwaitingPairing) phase() {}
func (LoggedIn) phase()        {}

// IsLoggedIn reports whether p is the logged in phase.
func IsLoggedIn(p Phase) bool {
	_, ok := p.(LoggedIn)
	return ok
}

// PairingLink returns the pairing link if p is awaiting pairing.
func PairingLink(p Phase) (string, bool) {
	ap, ok := p.(AwaitingPairing)
	if !ok || ap.Link == "" {
		return "", false
	}
	return ap.Link, true
}
