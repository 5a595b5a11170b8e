package types

// TrackResult records one track's fate within a top-level URL.
type TrackResult struct {
	TrackID string
	Path    string
	Err     error
}

type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomePartial
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	}

	return "unknown"
}

// Outcome is the aggregated result for one top-level URL.
type Outcome struct {
	URL    string
	Tracks []TrackResult
	// Err is set when the URL failed before any track work started, e.g. an
	// unrecognized link or a metadata fetch failure.
	Err error
}

func (o Outcome) Status() OutcomeStatus {
	if nil != o.Err {
		return OutcomeFailed
	}

	var succeeded, failed int
	for _, t := range o.Tracks {
		if nil != t.Err {
			failed++
		} else {
			succeeded++
		}
	}

	switch {
	case failed == 0:
		return OutcomeSuccess
	case succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// FirstErr returns the URL-level error, or the first failed track's error.
func (o Outcome) FirstErr() error {
	if nil != o.Err {
		return o.Err
	}

	for _, t := range o.Tracks {
		if nil != t.Err {
			return t.Err
		}
	}

	return nil
}

// Paths lists the finalized destination paths in track order.
func (o Outcome) Paths() []string {
	paths := make([]string, 0, len(o.Tracks))
	for _, t := range o.Tracks {
		if nil == t.Err && t.Path != "" {
			paths = append(paths, t.Path)
		}
	}

	return paths
}

// Summary tallies outcomes across a whole run.
type Summary struct {
	Succeeded int
	Partial   int
	Failed    int
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status() {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomePartial:
			s.Partial++
		case OutcomeFailed:
			s.Failed++
		}
	}

	return s
}

func (s Summary) AnyFailed() bool {
	return s.Partial > 0 || s.Failed > 0
}
