package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/goliatone/go-spx-templategen/internal/app"
	"github.com/goliatone/go-spx-templategen/internal/config"
	"github.com/goliatone/go-spx-templategen/pkg/console"
	"github.com/goliatone/go-spx-templategen/pkg/export"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/tui"
)

func main() {
	overrides := config.RegisterFlags(flag.CommandLine)
	promptText := flag.String("prompt", "", "template description (remaining arguments are used when empty)")
	output := flag.String("output", "", "HTML output file (stdout if empty)")
	descriptorPath := flag.String("descriptor", "", "write the field descriptor to this file")
	copyHTML := flag.Bool("copy", false, "copy the generated HTML to the clipboard")
	save := flag.Bool("save", false, "save into the SPX-GC templates folder")
	name := flag.String("name", "", "template name used by -save (defaults to the prompt)")
	interactive := flag.Bool("i", false, "pick an example or describe the template interactively")
	flag.Parse()

	cfg, err := overrides.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := app.NewLogger(cfg, "templategen", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wizard := tui.New(console.Examples())
	notify := func(format string, args ...any) {
		if err := wizard.Info(ctx, fmt.Sprintf(format, args...)); err != nil {
			logger.Warnf("Failed to print message: %v", err)
		}
	}

	text := strings.TrimSpace(*promptText)
	if text == "" {
		text = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if text == "" && *interactive {
		text, err = wizard.AskPrompt(ctx)
		if code := abortStatus(err); code != 0 {
			os.Exit(code)
		}
		if err != nil {
			log.Fatalf("Failed to read prompt: %v", err)
		}
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: templategen [flags] <description>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	gen, err := app.NewOrchestrator(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up generator: %v", err)
	}
	if err := gen.EnsureInitialized(ctx); err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}

	result, err := gen.Generate(ctx, orchestrator.Request{Prompt: text})
	if err != nil {
		log.Fatalf("Failed to generate template: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.HTML), 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		notify("Template written to %s", *output)
	} else {
		fmt.Println(result.HTML)
	}

	if result.Failed() {
		log.Fatalf("Generation failed: %s", result.Error)
	}

	if *descriptorPath != "" {
		artifact, err := export.DefaultRegistry().Export(ctx, export.Descriptor, result)
		if err != nil {
			log.Fatalf("Failed to export descriptor: %v", err)
		}
		if err := os.WriteFile(*descriptorPath, artifact.Data, 0o644); err != nil {
			log.Fatalf("Failed to write descriptor: %v", err)
		}
		notify("Descriptor written to %s (%s)", *descriptorPath, artifact.Size())
	}

	saver := app.NewSaver(cfg, logger)
	wantCopy, wantSave, saveName := *copyHTML, *save, *name
	if *interactive {
		choice, err := wizard.AskExports(ctx, saver.Configured(), text)
		if code := abortStatus(err); code != 0 {
			os.Exit(code)
		}
		if err != nil {
			log.Fatalf("Failed to read export choices: %v", err)
		}
		wantCopy = wantCopy || choice.Copy
		if choice.Save {
			wantSave, saveName = true, choice.Name
		}
	}

	if wantCopy {
		if err := export.CopyToClipboard(result.HTML); err != nil {
			logger.Errorf("Failed to copy: %v", err)
		} else {
			notify("HTML copied to the clipboard")
		}
	}
	if wantSave {
		path, err := saver.Save(ctx, saveName, result)
		if err != nil {
			log.Fatalf("Failed to save template: %v", err)
		}
		notify("Template saved to %s", path)
	}
}

// abortStatus returns 130 when the user interrupted a prompt and 0 otherwise.
func abortStatus(err error) int {
	if errors.Is(err, tui.ErrAborted) {
		return 130
	}
	return 0
}
