// Package utils provides small helpers shared across the client: identifier
// generation for local entities and storage requests, and the HTTP client
// used by the note service adapter.
package utils
