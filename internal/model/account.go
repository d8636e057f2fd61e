package model

// AccountID uniquely identifies an account across the system.
// Identity itself is owned by an external provider; the server only
// ever sees opaque account identifiers.
type AccountID string
