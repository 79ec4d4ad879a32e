// Package inference defines the boundary to external text-generation
// pipelines. A Pipeline is loaded once per process (Load) and yields a
// Generator that turns prompts into generated text. Concrete backends cover
// Hugging Face style text-generation endpoints, Ollama, and an offline
// sample generator used for demos and tests.
package inference
