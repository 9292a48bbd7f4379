package assist

import "errors"

var (
	// ErrNoJSON is returned when a model response contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")

	// ErrInvalidPlan is returned when the JSON does not match the plan schema.
	ErrInvalidPlan = errors.New("model response does not match the modification plan schema")

	// ErrEmptyResponse is returned when Bedrock answers without text content.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrUnsafePath is returned when a plan names a file outside the repository.
	ErrUnsafePath = errors.New("path escapes the repository root")
)
