package api

// Health is the response body of the health endpoint.
type Health struct {
	Status string `json:"status"`
}

// Error is the generic error response body. Missing lists the categories a
// dashboard aggregation is still waiting on.
type Error struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}
