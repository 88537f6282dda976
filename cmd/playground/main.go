// Playground for trying queries against a throwaway local index.
//
// Run with: go run ./cmd/playground
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/backend/local"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/logging"
	"harshagw/recsearch/internal/search"
)

func runQueries(ctx context.Context, engine *search.Engine, collection string, queries []string) {
	for _, raw := range queries {
		fmt.Printf("Query: %s", raw)
		if collection != "" {
			fmt.Printf("  [collection %s]", collection)
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 60))

		res, err := engine.NewQuery(raw).Search(ctx, search.SearchOptions{Collection: collection})
		if err != nil {
			fmt.Printf("  Error: %v\n\n", err)
			continue
		}
		records, err := res.Records(ctx)
		if err != nil {
			fmt.Printf("  Error: %v\n\n", err)
			continue
		}

		fmt.Printf("  strategy=%s index=%s\n", res.Strategy(), res.Index())
		if len(records) == 0 {
			fmt.Println("  No results found")
		}
		for i, r := range records {
			fmt.Printf("  %d. [%v] %v\n", i+1, r[search.RecidField], r["title"])
		}
		fmt.Println()
	}
}

func main() {
	dir, err := os.MkdirTemp("", "recsearch-playground-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	fmt.Println("=== recsearch playground ===")
	fmt.Printf("Index directory: %s\n\n", dir)

	cfg := config.Default()
	cfg.Backend.Local.Dir = dir
	cfg.Backend.Local.FlushThreshold = 4
	cfg.Search.RestrictedCollections = map[string][]string{"Internal": {"staff"}}

	logger := logging.Discard()
	client, err := local.Open(cfg.Backend.Local, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	engine, err := search.New(cfg.Search, client, search.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	records := []map[string]any{
		{"control_number": 1, "title": "Observation of a new boson at a mass of 125 GeV", "author": "Ellis, John", "collection": "Published", "citations": 9000},
		{"control_number": 2, "title": "Dark matter candidates from particle physics", "author": "Smith, Jane", "collection": "Published", "citations": 420},
		{"control_number": 3, "title": "Search for the Higgs boson in the diphoton channel", "author": "Ellis, John", "collection": "Preprint", "citations": 12},
		{"control_number": 4, "title": "Neutrino oscillations in matter", "author": "Ng, Kevin", "collection": "Published", "citations": 300},
		{"control_number": 5, "title": "Higgs couplings to the top quark", "author": "Smith, Jane", "collection": "Internal", "citations": 3},
		{"control_number": 6, "title": "A review of supersymmetry searches", "author": "Ng, Kevin", "collection": "Preprint", "citations": 77},
	}

	ctx := context.Background()
	fmt.Println("Indexing records...")
	for _, r := range records {
		id := fmt.Sprint(r["control_number"])
		if err := client.Index(ctx, cfg.Search.DefaultIndex, cfg.Search.DocType, id, r); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  Indexed: %s - %s\n", id, r["title"])
	}
	if err := client.Flush(); err != nil {
		log.Fatal(err)
	}
	fmt.Println()

	fmt.Println("--- Free text ---")
	runQueries(ctx, engine, "", []string{
		"higgs",
		"dark matter",
		"ellis",
		"",
		"title:",
	})

	fmt.Println("--- Structured ---")
	runQueries(ctx, engine, "", []string{
		"title:higgs",
		`title:"higgs boson"`,
		"author:'Smith, Jane'",
		"t:neutrino OR t:supersymmetry",
		"higgs AND -collection:'Preprint'",
		"citations:>100",
		"citations:10->100",
		"title:/high.*/",
	})

	fmt.Println("--- Collections ---")
	runQueries(ctx, engine, "Preprint", []string{"higgs", "ellis"})

	fmt.Println("--- Restricted collections ---")
	staff := auth.WithUser(ctx, auth.User{ID: "alice", Groups: []string{"staff"}})
	fmt.Println("As anonymous:")
	runQueries(ctx, engine, "", []string{"title:couplings"})
	fmt.Println("As staff:")
	runQueries(staff, engine, "", []string{"title:couplings"})

	fmt.Println("--- In-memory matching ---")
	q := engine.NewQuery("title:higgs AND -author:smith")
	for _, r := range records {
		ok, err := q.Match(ctx, r)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  %v %-55v %v\n", r["control_number"], r["title"], ok)
	}
	fmt.Println()

	terms, err := engine.NewQuery(`higgs title:"top quark" -author:ng`).Terms(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Terms: %s\n", strings.Join(terms, ", "))
}
