// Package prelude serves the pre-authored cinematic opening. The beats
// are deterministic, stored-forever content, not generated per request.
package prelude

// Beat is one timed caption in the prelude overlay.
type Beat struct {
	T     int    `json:"t"` // milliseconds from start
	Text  string `json:"text"`
	Style string `json:"style"`
}

// Prelude is the full opening sequence.
type Prelude struct {
	ID         string `json:"prelude_id"`
	DurationMS int    `json:"duration_ms"`
	Skippable  bool   `json:"skippable"`
	Beats      []Beat `json:"beats"`
}

// Default returns the standard opening.
func Default() Prelude {
	return Prelude{
		ID:         "default_v1",
		DurationMS: 8000,
		Skippable:  true,
		Beats: []Beat{
			{T: 0, Text: "Year 2149.", Style: "fade-in"},
			{T: 1200, Text: "Wars no longer end by surrender.", Style: "slide-up"},
			{T: 2800, Text: "They end when the General falls.", Style: "hold"},
			{T: 4600, Text: "Cixus is watching.", Style: "pulse-crimson"},
		},
	}
}
