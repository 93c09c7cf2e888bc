package pipeline

import "errors"

// ErrResourceExhausted means the pending-query bound was reached and the
// query was refused without being processed. Degradations inside a
// single adapter or route never surface as errors; they reduce that
// contribution only. An unresolvable origin is a structured response,
// not an error.
var ErrResourceExhausted = errors.New("query queue is full")

// noOriginMessage is the user-facing guidance when neither parsing path
// could resolve a starting location.
const noOriginMessage = "Could not determine your starting location. " +
	"Please include a place name, address, or landmark in your message."
