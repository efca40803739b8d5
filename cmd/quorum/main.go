// Command quorum runs one contest cycle: it loads the stage configuration,
// builds LLM-backed executors for both agent pools, executes the data and
// research rounds, and writes the aggregated decisions as a JSON report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-quorum/infrastructure/agents"
	"github.com/ahrav/go-quorum/infrastructure/llm"
	"github.com/ahrav/go-quorum/infrastructure/middleware"
	"github.com/ahrav/go-quorum/infrastructure/report"
	"github.com/ahrav/go-quorum/internal/contest"
)

func main() {
	var (
		configPath  = flag.String("config", "quorum.yaml", "Path to the contest configuration file")
		provider    = flag.String("provider", "anthropic", "LLM provider: anthropic, openai, or google")
		model       = flag.String("model", "", "Model override; empty uses the provider default")
		outputPath  = flag.String("output", "", "Report file path; empty writes to stdout")
		triggerStr  = flag.String("trigger", "", "Trigger time (RFC3339); empty uses now")
		metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on; empty disables")
		rps         = flag.Float64("rps", 2, "Sustained LLM requests per second")
	)
	flag.Parse()

	cfg, err := contest.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	trigger := time.Now()
	if *triggerStr != "" {
		trigger, err = time.Parse(time.RFC3339, *triggerStr)
		if err != nil {
			log.Fatalf("Failed to parse trigger time: %v", err)
		}
	}

	metrics := middleware.NewPrometheusMetrics()
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	client, err := buildClient(*provider, *model, *rps, cfg, metrics)
	if err != nil {
		log.Fatalf("Failed to build LLM client: %v", err)
	}

	out := os.Stdout
	if *outputPath != "" {
		out, err = os.Create(*outputPath)
		if err != nil {
			log.Fatalf("Failed to create report file: %v", err)
		}
		defer out.Close()
	}

	pipeline, err := contest.NewPipeline(cfg, contest.Deps{
		DataExecutor:     agents.NewAnalystExecutor(client, nil),
		ResearchExecutor: agents.NewResearcherExecutor(client, nil),
		Sink:             report.NewJSONSink(out),
		Metrics:          metrics,
	})
	if err != nil {
		log.Fatalf("Failed to assemble pipeline: %v", err)
	}

	ctx := context.Background()
	decisions, err := pipeline.Run(ctx, trigger)
	if err != nil {
		log.Fatalf("Contest cycle failed: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Contest cycle complete: %d decision(s)\n", len(decisions))
	for _, d := range decisions {
		flags := ""
		if d.Ambiguous {
			flags = " [ambiguous]"
		}
		fmt.Fprintf(os.Stderr, "- %s %s (confidence %.2f)%s\n", d.Action, d.Symbol, d.Confidence, flags)
	}
}

// buildClient assembles the provider client with the standard middleware
// chain: per-request timeout, retries, pacing, circuit breaking, metrics.
func buildClient(provider, model string, rps float64, cfg contest.Config, metrics *middleware.PrometheusMetrics) (*llm.Client, error) {
	apiKey := os.Getenv(strings.ToUpper(provider) + "_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %s_API_KEY is not set", strings.ToUpper(provider))
	}

	// Individual requests get half the round budget so a retry still
	// fits inside the round deadline.
	requestTimeout := cfg.RoundDeadline() / 2

	return llm.NewClient(provider, llm.ClientConfig{
		APIKey: apiKey,
		Model:  model,
		Middleware: []llm.Middleware{
			llm.MetricsMiddleware(provider, metrics),
			llm.CircuitBreakerMiddleware(5, 30*time.Second),
			llm.RetryMiddleware(2, time.Second, 15*time.Second),
			llm.RateLimitMiddleware(rate.Limit(rps), burstFor(rps)),
			llm.TimeoutMiddleware(requestTimeout),
		},
	})
}

func burstFor(rps float64) int {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return burst
}
