package errs

// Failure classes of the messaging core. Codes are wire-visible in error
// frames and REST bodies; keep them stable.
var (
	// ErrProtocol: malformed or unknown inbound frame. The connection stays
	// open; the client receives an error frame.
	ErrProtocol = NewCodeError(40001, "protocol error")

	// ErrUserNotFound: recipient/target user does not resolve.
	ErrUserNotFound = NewCodeError(40401, "user not found")

	// ErrConsistency: contact uniqueness constraint tripped by a concurrent
	// first-message race. Benign; callers retry once as an update.
	ErrConsistency = NewCodeError(40901, "contact uniqueness race")

	// ErrTransientInfra: cache or queue unavailable. Never fails the primary
	// send path; logged and absorbed.
	ErrTransientInfra = NewCodeError(50301, "transient infrastructure error")

	// ErrFatalAuth: connection identity cannot be resolved at connect time.
	// The connection is closed before registry registration.
	ErrFatalAuth = NewCodeError(40101, "authentication failed")

	ErrInternal = NewCodeError(50000, "server internal error")
)
