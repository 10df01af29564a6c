package models

// Prompt is a reusable instruction template. Its content is prepended to
// the tournament question to form the text sent to the model.
type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}
