package enrichment

// StageProgress tracks aggregate counts for one pipeline stage. Skipped is
// only used by the score stage and sits outside Total: Total counts the
// records the stage will actually attempt, Skipped counts records the stage
// ruled out without an external call.
type StageProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

// Consistent reports whether the counter arithmetic holds.
func (p StageProgress) Consistent() bool {
	if p.Total < 0 || p.Completed < 0 || p.Pending < 0 || p.Failed < 0 || p.Skipped < 0 {
		return false
	}
	return p.Total == p.Completed+p.Pending+p.Failed
}

// Done reports whether the stage has no work left.
func (p StageProgress) Done() bool {
	return p.Pending == 0
}

func (p *StageProgress) complete() {
	p.Pending--
	p.Completed++
}

func (p *StageProgress) fail() {
	p.Pending--
	p.Failed++
}
