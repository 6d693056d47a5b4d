package domain

// ResolutionStatus is the lifecycle stage of one offer's address lookup.
type ResolutionStatus string

const (
	StatusNotStarted ResolutionStatus = "not-started"
	StatusInFlight   ResolutionStatus = "in-flight"
	StatusResolved   ResolutionStatus = "resolved"
	StatusFailed     ResolutionStatus = "failed"
)

// Resolution is the single tagged state kept per offer. Coords is set only
// when Status is StatusResolved, Message only when Status is StatusFailed.
type Resolution struct {
	Status  ResolutionStatus `json:"state"`
	Coords  *Coordinates     `json:"coords,omitempty"`
	Message string           `json:"message,omitempty"`
}

func NotStarted() Resolution { return Resolution{Status: StatusNotStarted} }
func InFlight() Resolution   { return Resolution{Status: StatusInFlight} }

func Resolved(c Coordinates) Resolution {
	return Resolution{Status: StatusResolved, Coords: &c}
}

func Failed(msg string) Resolution {
	return Resolution{Status: StatusFailed, Message: msg}
}

// Terminal reports whether the lookup finished, either way.
func (r Resolution) Terminal() bool {
	return r.Status == StatusResolved || r.Status == StatusFailed
}
