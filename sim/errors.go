package sim

import "errors"

var (
	// ErrParse reports a scene file that is not valid JSON
	ErrParse = errors.New("scene parse error")
	// ErrSchema reports a well-formed scene missing required fields or holding invalid values
	ErrSchema = errors.New("scene schema error")
)
