package model

import "github.com/rotisserie/eris"

// Root errors callers can test for with eris.Is.
var (
	// ErrInputShape marks a structurally invalid input collection (nil or empty).
	ErrInputShape = eris.New("invalid input shape")
	// ErrConfiguration marks a threshold or radius outside its sane range.
	ErrConfiguration = eris.New("invalid configuration")
)
