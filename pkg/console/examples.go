package console

// DefaultExamples are the prompts offered as one-click starting points.
var DefaultExamples = []string{
	"Create a lower third template with animated text for news broadcasts",
	"Design a sports scoreboard template with team logos and score display",
	"Make a weather forecast template with animated icons and temperature",
	"Build a breaking news banner with scrolling text and urgent styling",
}

// Examples returns a copy of the default example prompts.
func Examples() []string {
	out := make([]string, len(DefaultExamples))
	copy(out, DefaultExamples)
	return out
}
