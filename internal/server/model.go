package server

import "github.com/emotevault/emotevault/internal/emotes"

// SearchResponse is the common payload shape for every emote-listing
// endpoint. ProcessingTime is seconds and always reflects the current
// request, even when the rest of the payload came from cache.
type SearchResponse struct {
	Success        bool                 `json:"success"`
	TotalFound     int                  `json:"totalFound"`
	Emotes         []emotes.StoredEmote `json:"emotes"`
	Message        string               `json:"message,omitempty"`
	Cached         bool                 `json:"cached"`
	ProcessingTime float64              `json:"processingTime"`
	Page           int                  `json:"page,omitempty"`
	TotalPages     int                  `json:"totalPages,omitempty"`
	ResultsPerPage int                  `json:"resultsPerPage,omitempty"`
	HasNextPage    bool                 `json:"hasNextPage"`
}

type searchRequest struct {
	Query        string `json:"query"`
	Limit        *int   `json:"limit"`
	AnimatedOnly bool   `json:"animated_only"`
}
