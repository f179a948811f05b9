package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrScriptNotFound is returned by script loaders for unknown IDs.
var ErrScriptNotFound = errors.New("script not found")

// ErrNotInitialized is returned when a session operation runs before a scenario was loaded.
var ErrNotInitialized = errors.New("scenario not initialized")

// ErrInvalidSessionID is returned for empty or unsafe session identifiers.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrActNotFound is returned by hosts when an operation names an act the scenario does not define.
var ErrActNotFound = errors.New("act not found")

// ErrInvalidContext is returned when context values do not match the types a script declares.
var ErrInvalidContext = errors.New("invalid context")
