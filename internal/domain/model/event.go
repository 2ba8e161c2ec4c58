package model

// Criterion is one scored dimension of a rubric.
type Criterion struct {
	Key      string  `json:"key"`
	MaxScore float64 `json:"max_score"`
}

// Round is a judging round with its weight and rubric.
type Round struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Weight   float64     `json:"weight"`
	Criteria []Criterion `json:"criteria,omitempty"`
}

// Event is the externally owned hackathon event.
type Event struct {
	ID       string      `json:"id"`
	Status   string      `json:"status"`
	Rounds   []Round     `json:"rounds,omitempty"`
	Criteria []Criterion `json:"criteria,omitempty"`
}

// Round returns the round with the given id.
func (e Event) Round(id string) (Round, bool) {
	for _, r := range e.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return Round{}, false
}

// Schema returns the criteria that apply to a review in roundID.
// An empty roundID selects the event-level schema.
func (e Event) Schema(roundID string) []Criterion {
	if roundID == "" {
		return e.Criteria
	}
	r, _ := e.Round(roundID)
	return r.Criteria
}
