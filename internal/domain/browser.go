package domain

type WindowSize struct {
	Width  int
	Height int
}

// APICallOptions mirrors the fetch options a foreground context passes to API_CALL.
type APICallOptions struct {
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}
