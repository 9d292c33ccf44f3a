package domain

import "time"

// ConversationTurn is one query/response exchange.
type ConversationTurn struct {
	Timestamp time.Time
	Query     string
	Response  string
}

// ChatResponse is the structured answer returned for every chat query.
type ChatResponse struct {
	Response     string    `json:"response"`
	Sources      []string  `json:"sources"`
	Confidence   float64   `json:"confidence"`
	QueryID      string    `json:"query_id"`
	SecurityFlag bool      `json:"security_flag"`
	Timestamp    time.Time `json:"timestamp"`
}
