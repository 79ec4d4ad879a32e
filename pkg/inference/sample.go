package inference

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// SampleModelID is reported by the offline sample backend.
const SampleModelID = "sample/spx-placeholder"

// Sample is an offline pipeline that answers every prompt with a fixed
// animated SPX placeholder template. The prompt text is echoed into the
// document so previews visibly change between requests.
type Sample struct{}

var _ Pipeline = Sample{}

// NewSample returns the offline pipeline.
func NewSample() Sample {
	return Sample{}
}

// Load returns the sample generator after reporting an immediate ready.
func (Sample) Load(ctx context.Context, task, modelID string, progress ProgressFunc) (Generator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if task != TaskTextGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}
	reportProgress(progress, Progress{Status: "ready", File: SampleModelID, Percent: 100})
	return GeneratorFunc(sampleGenerate), nil
}

func sampleGenerate(ctx context.Context, prompt string, _ DecodeOptions) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Output{{GeneratedText: "Here is your template:\n" + SampleTemplate(userTextFromPrompt(prompt))}}, nil
}

// userTextFromPrompt recovers the quoted description from a framed prompt,
// falling back to the whole prompt.
func userTextFromPrompt(prompt string) string {
	start := strings.Index(prompt, `"""`)
	if start < 0 {
		return strings.TrimSpace(prompt)
	}
	rest := prompt[start+3:]
	end := strings.Index(rest, `"""`)
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// SampleTemplate renders the placeholder template for the given description.
func SampleTemplate(description string) string {
	return fmt.Sprintf(sampleHTML, html.EscapeString(description))
}

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
    <title>SPX Template</title>
    <style>
        body {
            margin: 0;
            padding: 20px;
            font-family: Arial, sans-serif;
            background: linear-gradient(45deg, #295aaf, #2a3641);
            color: white;
        }
        .template-container {
            display: flex;
            align-items: center;
            justify-content: center;
            height: 100vh;
        }
        .content {
            text-align: center;
            animation: fadeIn 1s ease-in;
        }
        @keyframes fadeIn {
            from { opacity: 0; transform: translateY(20px); }
            to { opacity: 1; transform: translateY(0); }
        }
    </style>
</head>
<body>
    <div class="template-container">
        <div class="content">
            <h1 id="f0">Generated Template</h1>
            <p id="f1">Based on: %s</p>
        </div>
    </div>
</body>
</html>`
