package domain

import "context"

type TestCase struct {
	Input          string `bson:"input" json:"input"`
	ExpectedOutput string `bson:"expected_output" json:"expectedOutput"`
}

// Problem is owned by an external document store and read by id only.
type Problem struct {
	ID          string     `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description" json:"description"`
	Difficulty  string     `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	TestCases   []TestCase `bson:"test_cases" json:"testCases"`
}

type ProblemRepository interface {
	GetByID(ctx context.Context, id string) (*Problem, error)
}
