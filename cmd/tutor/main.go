// Command tutor is the interactive CLI entry point: flag-based configuration
// mirroring cmd/app/main.go, wiring the Pattern Registry, the Retriever, the
// chosen LLM Gateway and the device-config Tool into one AgentGraph, then
// driving it with the Streaming Driver over a REPL loop instead of a
// single-shot Generate call.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	runtime "github.com/netlab-tutor/tutor-core"
	"github.com/netlab-tutor/tutor-core/src/detector"
	"github.com/netlab-tutor/tutor-core/src/embed"
	"github.com/netlab-tutor/tutor-core/src/index"
	"github.com/netlab-tutor/tutor-core/src/models"
	"github.com/netlab-tutor/tutor-core/src/patterns"
	"github.com/netlab-tutor/tutor-core/src/retrieval"
	"github.com/netlab-tutor/tutor-core/src/toolexec"
)

func main() {
	cfg, err := runtime.LoadConfig(os.Args[1:])
	if err != nil {
		fail(err)
	}

	ctx := context.Background()

	registry := patterns.NewRegistry()
	vocabulary := patterns.NewVocabulary()
	if err := loadPatterns(registry, vocabulary, cfg.Paths); err != nil {
		// PatternLoadError is fatal at startup per §7.
		fail(err)
	}

	idx := index.NewLocalIndex()
	if cfg.Retriever.IndexPath != "" {
		if err := idx.LoadFile(cfg.Retriever.IndexPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: retrieval index unavailable: %v\n", err)
		}
	}
	embedder := embed.NewFromEndpoint(ctx, cfg.Embeddings.EndpointURL, cfg.Embeddings.ModelName, cfg.LLM.APIKey, cfg.Embeddings.Dim)
	retriever := retrieval.New(idx, embedder, vocabulary, cfg.Retriever.KTeaching, cfg.Retriever.KTroubleshooting)

	gateway, err := models.New(ctx, models.Config{
		Mode:        cfg.LLM.Mode,
		EndpointURL: cfg.LLM.EndpointURL,
		ModelName:   cfg.LLM.ModelName,
		APIKey:      cfg.LLM.APIKey,
		Retries:     2,
	})
	if err != nil {
		fail(err)
	}

	simClient := toolexec.NewSimulatorClient(cfg.Simulator.BaseURL, cfg.Simulator.Timeout())
	catalog := runtime.NewStaticToolCatalog([]runtime.Tool{toolexec.NewDeviceConfigTool(simClient)})

	det := detector.New(registry, vocabulary)
	graph := runtime.NewAgentGraph(gateway, retriever, det, catalog)
	graph.Limits = cfg.Limits

	driver := runtime.NewStreamingDriver(graph, runtime.NewSessionStore())
	runREPL(ctx, driver)
}

func loadPatterns(registry *patterns.Registry, vocabulary *patterns.Vocabulary, paths runtime.PathsConfig) error {
	var sources []string
	if paths.PatternsDir != "" {
		entries, err := os.ReadDir(paths.PatternsDir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
					sources = append(sources, filepath.Join(paths.PatternsDir, e.Name()))
				}
			}
		}
	}
	if len(sources) > 0 {
		if err := registry.Load(sources...); err != nil {
			return toPatternLoadError(err)
		}
	}
	if paths.CiscoVocabulary != "" {
		if err := vocabulary.LoadFile(paths.CiscoVocabulary); err != nil {
			fmt.Fprintf(os.Stderr, "warning: vocabulary unavailable: %v\n", err)
		}
	}
	return nil
}

// toPatternLoadError converts the leaf patterns.LoadError into the root
// package's PatternLoadError, keeping src/patterns free of any dependency
// on the root package (§7, §9 design note).
func toPatternLoadError(err error) error {
	if le, ok := err.(*patterns.LoadError); ok {
		return &runtime.PatternLoadError{PatternID: le.PatternID, Field: le.Field, Reason: le.Reason}
	}
	return err
}

func runREPL(ctx context.Context, driver *runtime.StreamingDriver) {
	sessionID := driver.StartSession(runtime.LabContext{LabID: "demo-lab"}, runtime.MasteryNovice)
	fmt.Println("netlab tutor — session", sessionID)
	fmt.Println("type a question, or a CLI line prefixed with '$' to feed terminal activity")

	var cliHistory []runtime.CLIEntry
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		if strings.HasPrefix(line, "$") {
			cliHistory = append(cliHistory, parseCLIEntry(strings.TrimPrefix(line, "$")))
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		for ev := range driver.Ask(turnCtx, sessionID, line, cliHistory) {
			printEvent(ev)
		}
		cancel()
		cliHistory = nil
	}
}

// parseCLIEntry accepts "$command => output" as a shorthand for feeding one
// observed terminal line into the session's CLI history; output defaults to
// empty (pure command echo) when no "=>" separator is present.
func parseCLIEntry(raw string) runtime.CLIEntry {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "=>"); idx >= 0 {
		return runtime.CLIEntry{Command: strings.TrimSpace(raw[:idx]), Output: strings.TrimSpace(raw[idx+2:])}
	}
	return runtime.CLIEntry{Command: raw}
}

func printEvent(ev runtime.StreamEvent) {
	switch ev.Type {
	case runtime.EventInfo:
		fmt.Fprintf(os.Stderr, "[%s]\n", ev.Phase)
	case runtime.EventContent:
		fmt.Print(ev.Text)
	case runtime.EventError:
		fmt.Fprintf(os.Stderr, "\nerror(%s): %s\n", ev.ErrorKind, ev.ErrorMessage)
	case runtime.EventDone:
		fmt.Println()
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
