// Package masq provides the sync client the task list delegates
// authentication, pairing and storage to.
//
// Client is the contract the session controller depends on. LocalClient
// implements it on top of a SQLite replica and an in-process pairing broker:
// a device obtains a pairing link, the pairing application answers on one of
// the hub URLs embedded in the link, and from then on records are read and
// written for the paired profile.
package masq

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by record operations without an active session.
	ErrNotConnected = errors.New("not connected")
	// ErrNoPairingLink is returned by LogIntoMasq before a link was requested.
	ErrNoPairingLink = errors.New("no pairing link requested")
	// ErrPairingRejected is returned when the user declines the pairing.
	ErrPairingRejected = errors.New("pairing rejected")
	// ErrPairingTimeout is returned when no pairing answer arrives in time.
	ErrPairingTimeout = errors.New("pairing timed out")
	// ErrPairingSuperseded is returned to a waiter whose link was replaced.
	ErrPairingSuperseded = errors.New("pairing link superseded")
	// ErrUnknownChannel is returned when a reply targets no open channel.
	ErrUnknownChannel = errors.New("unknown pairing channel")
	// ErrAlreadyAnswered is returned for a second reply on the same channel.
	ErrAlreadyAnswered = errors.New("pairing channel already answered")
	// ErrBadSignature is returned when a reply is not signed with the link key.
	ErrBadSignature = errors.New("bad pairing reply signature")
	// ErrInvalidKey is returned for storage keys that are not "/<label>".
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidLink is returned when a pairing link cannot be decoded.
	ErrInvalidLink = errors.New("invalid pairing link")
)

// Client is the sync client contract.
type Client interface {
	// IsLoggedIn reports whether a previous session can be resumed or is active.
	IsLoggedIn(ctx context.Context) (bool, error)
	// LoginLink opens a new pairing channel and returns its link.
	LoginLink(ctx context.Context) (string, error)
	// ConnectToMasq resumes an existing session.
	ConnectToMasq(ctx context.Context) error
	// LogIntoMasq waits for the pairing started by LoginLink to complete.
	// It fails with ErrPairingRejected if the user declines.
	LogIntoMasq(ctx context.Context, stayConnected bool) error
	// SignOut ends the active session and forgets any remembered one.
	SignOut(ctx context.Context) error
	// Username returns the name of the paired user, or "" when signed out.
	Username() string

	// List returns the full task snapshot keyed by label.
	List(ctx context.Context) (map[string]bool, error)
	// Put writes value under key, which has the form "/<label>".
	Put(ctx context.Context, key string, value bool) error
	// Del removes key, which has the form "/<label>".
	Del(ctx context.Context, key string) error
}
