package dto

// RecordWordRequest credits explicit practice of a vocabulary word.
type RecordWordRequest struct {
	Word      string `json:"word" validate:"required,min=1,max=32"`
	Increment *int   `json:"increment,omitempty"`
}
