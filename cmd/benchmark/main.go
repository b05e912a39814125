package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"tourrag/config"
	"tourrag/internal/app"
	"tourrag/internal/domain"
)

type run struct {
	query    string
	tier     domain.Tier
	hits     int
	top      float64
	avg      float64
	duration time.Duration
	err      error
}

func main() {
	dir := flag.String("dir", ".", "Project directory (config and local store)")
	query := flag.String("q", "", "Single query to test")
	file := flag.String("f", "", "File with one query per line")
	topK := flag.Int("k", 5, "Number of results")
	verbose := flag.Bool("v", false, "Print every hit")
	flag.Parse()

	queries, err := loadQueries(*query, *file)
	if err != nil || len(queries) == 0 {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" | -f queries.txt")
		fmt.Println("\nRuns queries through the retrieval fallback chain and reports, per query:")
		fmt.Println("  1. Which tier answered (vector_search, text_filter, local_fallback, exhausted)")
		fmt.Println("  2. Top and average scores")
		fmt.Println("  3. Latency")
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Latency includes the embedding call.
	cfg.Retrieve.CacheSize = 0

	ctx := context.Background()
	a, err := app.New(ctx, cfg, *dir, arbor.NewNoOpLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Model: %s (%s), %d dims\n", cfg.Embedding.Model, cfg.Embedding.Provider, cfg.Embedding.Dimension)
	if a.Index != nil {
		if n, err := a.Index.Count(ctx); err == nil {
			fmt.Printf("Collection: %s (%d points)\n", a.Index.Name(), n)
		} else {
			fmt.Printf("Collection: %s (unavailable: %v)\n", a.Index.Name(), err)
		}
	}
	fmt.Printf("Local store: %s\n", a.Local.Path())
	fmt.Printf("Queries: %d, top-k: %d\n\n", len(queries), *topK)

	runs := make([]run, 0, len(queries))
	for _, q := range queries {
		start := time.Now()
		result, err := a.Retrieve.Retrieve(ctx, q, *topK)
		r := run{query: q, duration: time.Since(start), err: err}

		if err == nil {
			r.tier = result.Tier
			r.hits = len(result.Hits)
			for i, h := range result.Hits {
				if i == 0 {
					r.top = h.Score
				}
				r.avg += h.Score
			}
			if r.hits > 0 {
				r.avg /= float64(r.hits)
			}
		}
		runs = append(runs, r)

		printRun(r)
		if *verbose && err == nil {
			for i, h := range result.Hits {
				preview := []rune(strings.ReplaceAll(h.Payload.Content, "\n", " "))
				if len(preview) > 120 {
					preview = append(preview[:120], []rune("...")...)
				}
				fmt.Printf("     %d. [%.3f] %s: %s\n", i+1, h.Score, h.Payload.Title, string(preview))
			}
		}
	}

	printSummary(runs)
}

func loadQueries(query, file string) ([]string, error) {
	if query != "" {
		return []string{query}, nil
	}
	if file == "" {
		return nil, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}

func printRun(r run) {
	if r.err != nil {
		fmt.Printf("ERROR  %-40s %v\n", truncate(r.query, 40), r.err)
		return
	}
	fmt.Printf("%-15s %-40s hits=%d top=%.3f avg=%.3f %s\n",
		r.tier, truncate(r.query, 40), r.hits, r.top, r.avg, r.duration.Round(time.Millisecond))
}

func printSummary(runs []run) {
	type tierStats struct {
		count int
		total time.Duration
		top   float64
	}
	stats := make(map[domain.Tier]*tierStats)
	failed := 0

	for _, r := range runs {
		if r.err != nil {
			failed++
			continue
		}
		s, ok := stats[r.tier]
		if !ok {
			s = &tierStats{}
			stats[r.tier] = s
		}
		s.count++
		s.total += r.duration
		s.top += r.top
	}

	tiers := make([]domain.Tier, 0, len(stats))
	for t := range stats {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("SUMMARY BY TIER:")
	for _, t := range tiers {
		s := stats[t]
		fmt.Printf("  %-15s queries=%d  mean latency=%s  mean top score=%.3f\n",
			t, s.count, (s.total / time.Duration(s.count)).Round(time.Millisecond), s.top/float64(s.count))
	}
	if failed > 0 {
		fmt.Printf("  %-15s queries=%d\n", "error", failed)
	}

	if s, ok := stats[domain.TierVectorSearch]; ok && s.count == len(runs) {
		fmt.Println("  Status: GOOD - every query answered by vector search")
	} else if _, ok := stats[domain.TierExhausted]; ok {
		fmt.Println("  Status: POOR - some queries exhausted every tier; check ingestion")
	} else {
		fmt.Println("  Status: OK - fallbacks were needed for some queries")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
