package dagstore

import "errors"

var (
	// ErrUnknownAuthor indicates the node's author isn't a validator of the current epoch.
	ErrUnknownAuthor = errors.New("unknown author")
	// ErrRoundTooLow indicates the node's round is below the store's floor.
	ErrRoundTooLow = errors.New("round too low")
	// ErrRoundTooHigh indicates the node's round would create a round gap.
	ErrRoundTooHigh = errors.New("round too high")
	// ErrMissingParent indicates one of the node's parents isn't stored yet.
	ErrMissingParent = errors.New("parent not exist")
	// ErrDuplicateNode indicates the author already has a node at this round.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrNotFound indicates the requested node isn't stored.
	ErrNotFound = errors.New("node not found")
	// ErrInvalidTransition indicates a backward or no-op status transition.
	ErrInvalidTransition = errors.New("invalid status transition")
)
