package domain

const (
	// MaxCodeBytes bounds the code carried by one editor change or submission.
	MaxCodeBytes = 256 * 1024

	// MaxEventBytes is the largest inbound frame. JSON escaping can double
	// the code, and the envelope needs a little more.
	MaxEventBytes = 2*MaxCodeBytes + 16*1024
)

// Verdict is the judge's outcome for one test case.
type Verdict struct {
	TestCase int    `json:"testCase"`
	StatusID int    `json:"statusId"`
	Status   string `json:"status"`
	Accepted bool   `json:"accepted"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Time     string `json:"time,omitempty"`
	Memory   int    `json:"memory,omitempty"`
}

// AllAccepted reports whether a non-empty verdict list passed every case.
func AllAccepted(verdicts []Verdict) bool {
	if len(verdicts) == 0 {
		return false
	}
	for _, v := range verdicts {
		if !v.Accepted {
			return false
		}
	}
	return true
}
