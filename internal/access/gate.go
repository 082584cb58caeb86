// Package access decides whether a resolved profile may enter a protected area.
package access

import (
	"sync"

	"agency/internal/domain/entity"
	domainerrors "agency/internal/domain/errors"
)

// Decision is the outcome of the role gate.
type Decision int

const (
	// Pending means the profile is still being resolved.
	Pending Decision = iota
	// Admit lets the profile through.
	Admit
	// Deny turns the profile away.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Deny:
		return "deny"
	default:
		return "pending"
	}
}

// Decide is the role gate. It is a pure function of its inputs: pending while
// loading, deny for a missing or inactive profile or a role mismatch when
// required is set, admit otherwise.
func Decide(profile *entity.Profile, required entity.Role, loading bool) Decision {
	if loading {
		return Pending
	}
	if profile == nil || !profile.Active {
		return Deny
	}
	if required != "" && profile.Role != required {
		return Deny
	}

	return Admit
}

// Authorize applies the gate to a settled profile and reports why it was denied.
func Authorize(profile *entity.Profile, required entity.Role) error {
	if Decide(profile, required, false) == Admit {
		return nil
	}

	switch {
	case profile == nil:
		return domainerrors.ErrProfileNotFound
	case !profile.Active:
		return domainerrors.ErrAccountInactive
	default:
		return domainerrors.ErrForbidden
	}
}

// ProfileSource publishes the resolved profile of a session as it changes.
type ProfileSource interface {
	// WatchProfile calls fn with the current profile at once and after every change.
	WatchProfile(fn func(profile *entity.Profile, loading bool)) (stop func())
}

// Follow re-evaluates the gate on every profile change and calls fn with the
// first decision and then only when the decision changes.
func Follow(source ProfileSource, required entity.Role, fn func(Decision)) (stop func()) {
	var (
		mu      sync.Mutex
		started bool
		last    Decision
	)

	return source.WatchProfile(func(profile *entity.Profile, loading bool) {
		decision := Decide(profile, required, loading)

		mu.Lock()
		if started && decision == last {
			mu.Unlock()

			return
		}
		started = true
		last = decision
		mu.Unlock()

		fn(decision)
	})
}
