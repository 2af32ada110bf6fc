package domain

import "errors"

// Sentinel errors returned by services and repositories. Handlers map these
// to HTTP status codes; everything else is treated as an internal error.
var (
	// ErrNotFound means the session or note does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSessionEnded means a mutation was attempted after the session was
	// terminated. Termination is terminal; nothing transitions out of it.
	ErrSessionEnded = errors.New("session has ended")

	// ErrAlreadyEnded means EndSession was called on an ended session.
	ErrAlreadyEnded = errors.New("session already ended")

	// ErrNotOwner means a privileged operation was attempted by a non-owner.
	ErrNotOwner = errors.New("only the session owner may do this")

	// ErrOwnerMustEndSession means the owner tried to leave through the
	// ordinary member path. Owners end sessions, they do not leave them.
	ErrOwnerMustEndSession = errors.New("owner must end the session instead of leaving")

	// ErrRoomFull means the session is at its member limit.
	ErrRoomFull = errors.New("session is full")

	// ErrAlreadyMember means the user is already in the session.
	ErrAlreadyMember = errors.New("already a member of this session")

	// ErrNotMember means the user is not currently in the session.
	ErrNotMember = errors.New("not a member of this session")

	// ErrCodeExhausted means code generation failed after bounded retries.
	ErrCodeExhausted = errors.New("could not allocate a session code")

	// ErrStoreUnavailable wraps transport failures talking to the shared
	// store. Callers should retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrResponderTimeout means the AI reply never arrived within the
	// configured window. The original user message stays visible.
	ErrResponderTimeout = errors.New("responder did not reply in time")

	// ErrInvalidFolder means the note folder is not in the allowed set.
	ErrInvalidFolder = errors.New("invalid note folder")

	// ErrConflict means an optimistic write lost too many CAS rounds.
	ErrConflict = errors.New("concurrent modification, retry")
)
