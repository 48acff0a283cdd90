// Package ui provides the Bubble Tea chat over the query router.
package ui

import "time"

// AnswerReady is sent when the router has answered a query.
type AnswerReady struct {
	Query  string
	Answer string
	Dur    time.Duration
}
