package engine

import "fmt"

// State is a step of the per-URL pipeline.
type State int

const (
	StatePending State = iota
	StateRendering
	StateExtracting
	StateFetchingAssets
	StatePersisting
	StateVisited
	StateFailed
)

var stateNames = [...]string{
	StatePending:        "pending",
	StateRendering:      "rendering",
	StateExtracting:     "extracting",
	StateFetchingAssets: "fetching_assets",
	StatePersisting:     "persisting",
	StateVisited:        "visited",
	StateFailed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Observer is told about every state a URL enters. It is called from
// worker goroutines.
type Observer func(url string, state State)

// StageError is a per-URL failure tagged with the state it happened in.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedItem is reported for every URL that did not reach StateVisited.
type FailedItem struct {
	URL   string
	State State
	Err   error
}
