package problems

// problemResponse is a problem without its hidden test cases
type problemResponse struct {
	ID          string `json:"id" example:"two-sum"`                // Problem identifier
	Title       string `json:"title" example:"Two Sum"`             // Problem title
	Description string `json:"description"`                         // Problem statement
	Difficulty  string `json:"difficulty,omitempty" example:"easy"` // Difficulty label
	Examples    int    `json:"examples" example:"3"`                // Number of test cases the judge runs
}
