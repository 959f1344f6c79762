// Package docs is the typed client for the external documentation backend.
//
// The backend is an MCP server exposing exactly two tools:
// "resolve-library-id" turns a free-form library name into a canonical
// identifier, and "query-docs" returns documentation snippets for a canonical
// identifier plus a question. Calls always happen in that order within a
// request; the orchestrator owns the ordering.
package docs

// LibraryQuery is the user's free-form library reference, as typed.
type LibraryQuery struct {
	Name    string // e.g. "requests", "react router"
	Version string // optional version hint, e.g. "v6"
}

// ResolvedLibrary is the canonical identifier the backend uses to address a
// library, plus match metadata from the resolve step.
type ResolvedLibrary struct {
	ID    string  // canonical identifier, e.g. "/psf/requests"
	Name  string  // display name reported by the backend
	Score float64 // match confidence reported by the backend
}

// Snippet is one bounded excerpt of documentation content.
type Snippet struct {
	Content string
	Source  string // optional citation / location
}
