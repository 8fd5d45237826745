// Command councild runs the council orchestrator as a standalone process:
// it reads provider credentials from the environment, wires the registry
// of adapters and pacers, and drives one query end to end, printing the
// projected event stream to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/opencouncil/orchestrator/ai"
	_ "github.com/opencouncil/orchestrator/ai/providers/gemini"
	_ "github.com/opencouncil/orchestrator/ai/providers/kimi"
	_ "github.com/opencouncil/orchestrator/ai/providers/openai"
	_ "github.com/opencouncil/orchestrator/ai/providers/perplexity"
	"github.com/opencouncil/orchestrator/core"
	"github.com/opencouncil/orchestrator/orchestration"
	"github.com/opencouncil/orchestrator/pacer"
	"github.com/opencouncil/orchestrator/telemetry"
)

func main() {
	query := flag.String("query", "", "the query to run through the council")
	outputMode := flag.String("output-mode", string(core.OutputDeliverableOnly), "deliverable-only|deliverable-ownership|audit|full-transcript")
	enableValidation := flag.Bool("validate", true, "run the Quality Validator against the final artefact")
	flag.Parse()

	if *query == "" {
		log.Fatal("councild: -query is required")
	}

	cfg, err := core.NewConfig(core.WithName("councild"))
	if err != nil {
		log.Fatalf("councild: config: %v", err)
	}
	logger := cfg.Logger()

	creds := credentialsFromEnv()
	if len(creds) == 0 {
		log.Fatal("councild: no provider credentials found in the environment (OPENAI_API_KEY, GEMINI_API_KEY, PERPLEXITY_API_KEY, KIMI_API_KEY)")
	}

	// Route the REST provider adapters' (gemini, perplexity, kimi) outbound
	// calls through an otelhttp-instrumented transport so each call gets a
	// client span; no root span is started here, so the calls of one query
	// are not joined under one trace. The openai adapter uses the go-openai
	// SDK's own transport.
	tracedTransport := telemetry.NewTracedHTTPClientWithTransport(nil).Transport
	registry := ai.NewRegistry(core.NewDefaultHTTPClientWithTransport(cfg.HTTP, tracedTransport), logger)
	facade := orchestration.NewFacade(registry, pacer.NewRegistry(), orchestration.NewManager(0), nil, logger)

	input := core.RunInput{
		Query:            *query,
		Credentials:      creds,
		OutputMode:       core.OutputMode(*outputMode),
		EnableValidation: *enableValidation,
	}

	ctx, cancel := context.WithTimeout(context.Background(), core.DefaultRunDeadline)
	defer cancel()

	result := facade.Run(ctx, input, printEvent)

	fmt.Println("---")
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func printEvent(ev orchestration.Event) {
	fmt.Printf("[%s] phase=%s delta=%q\n", ev.Kind, ev.Phase, truncate(ev.DeltaText, 80))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func credentialsFromEnv() core.CredentialMap {
	creds := core.CredentialMap{}
	for provider, envVar := range map[core.Provider]string{
		core.OpenAIFamily:     "OPENAI_API_KEY",
		core.GeminiFamily:     "GEMINI_API_KEY",
		core.PerplexityFamily: "PERPLEXITY_API_KEY",
		core.KimiFamily:       "KIMI_API_KEY",
	} {
		if v := os.Getenv(envVar); v != "" {
			creds[provider] = v
		}
	}
	return creds
}
