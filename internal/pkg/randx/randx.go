/*
Package randx provides generation of unique identifiers for connections and
sessions.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID generates a UUID v4 string identifying one accepted connection.
// The identifier is opaque; it never leaves server-side logs and registries.
func ConnectionID() string {
	return uuid.New().String()
}
