package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/leiyuou/lance-graph/graph/catalog"
	"github.com/leiyuou/lance-graph/graph/engine"
	"github.com/leiyuou/lance-graph/graph/parquetio"
	"github.com/leiyuou/lance-graph/graph/store"
)

func main() {
	var dataDir string
	var dbPath string
	var nodes string
	var rels string
	var interactive bool
	var queryStr string
	var explain bool
	var save bool
	var help bool

	flag.StringVar(&dataDir, "data", "", "directory of .parquet files to load as datasets")
	flag.StringVar(&dbPath, "db", "", "badger store path for persisted datasets")
	flag.StringVar(&nodes, "nodes", "", "node labels as Label:id_column[,Label:id_column...]")
	flag.StringVar(&rels, "rels", "", "relationship types as TYPE:from_column:to_column[,...]")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.StringVar(&queryStr, "query", "", "run a single query and exit")
	flag.BoolVar(&explain, "explain", false, "print the plan instead of executing (with -query)")
	flag.BoolVar(&save, "save", false, "persist loaded parquet datasets into the store at -db")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A graph pattern query engine over columnar tables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -data ./tables -nodes Person:person_id -query 'MATCH (p:Person) RETURN p.name'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -data ./tables -db graph.db -save       # persist parquet tables\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db graph.db -nodes Person:person_id -rels WORKS_FOR:person_id:company_id -i\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query '...' -explain                   # show the plan\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	cat, err := buildCatalog(nodes, rels)
	if err != nil {
		log.Fatalf("Invalid schema: %v", err)
	}

	eng := engine.New(cat)

	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer st.Close()
		stored, err := st.Datasets()
		if err != nil {
			log.Fatalf("Failed to load stored tables: %v", err)
		}
		eng.RegisterDatasets(stored)
	}

	if dataDir != "" {
		datasets, err := parquetio.LoadDir(dataDir)
		if err != nil {
			log.Fatalf("Failed to load parquet data: %v", err)
		}
		eng.RegisterDatasets(datasets)
		if save {
			if st == nil {
				log.Fatal("-save requires -db")
			}
			for name, tbl := range datasets {
				if err := st.PutTable(name, tbl); err != nil {
					log.Fatalf("Failed to persist %s: %v", name, err)
				}
				fmt.Printf("Saved %s\n", name)
			}
		}
	}

	switch {
	case queryStr != "":
		runSingleQuery(eng, queryStr, explain)
	case interactive:
		runInteractive(eng)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

// buildCatalog parses the -nodes and -rels flag syntax into a catalog.
func buildCatalog(nodes, rels string) (*catalog.Catalog, error) {
	builder := catalog.NewBuilder()
	if nodes != "" {
		for _, def := range strings.Split(nodes, ",") {
			parts := strings.Split(strings.TrimSpace(def), ":")
			if len(parts) != 2 {
				return nil, fmt.Errorf("node definition %q, expected Label:id_column", def)
			}
			builder = builder.WithNodeLabel(parts[0], parts[1])
		}
	}
	if rels != "" {
		for _, def := range strings.Split(rels, ",") {
			parts := strings.Split(strings.TrimSpace(def), ":")
			if len(parts) != 3 {
				return nil, fmt.Errorf("relationship definition %q, expected TYPE:from_column:to_column", def)
			}
			builder = builder.WithRelationship(parts[0], parts[1], parts[2])
		}
	}
	return builder.Build()
}

func runSingleQuery(eng *engine.Engine, queryStr string, explain bool) {
	if explain {
		plan, err := eng.Explain(queryStr)
		if err != nil {
			log.Fatalf("Compile error: %v", err)
		}
		fmt.Print(plan)
		return
	}
	result, err := eng.Execute(queryStr)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Println(result.Markdown())
}

func runInteractive(eng *engine.Engine) {
	fmt.Println("=== Lance Graph Interactive Mode ===")
	fmt.Println("Commands:")
	fmt.Println("  .help              - Show help")
	fmt.Println("  .exit              - Exit")
	fmt.Println("  .labels            - List node labels and relationship types")
	fmt.Println("  .explain <query>   - Show the plan for a query")
	fmt.Println("  MATCH ...          - Run a query")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":

		case line == ".exit":
			return

		case line == ".help":
			fmt.Println("Enter MATCH queries or commands")

		case line == ".labels":
			fmt.Printf("Node labels: %s\n", strings.Join(eng.NodeLabels(), ", "))
			fmt.Printf("Relationship types: %s\n", strings.Join(eng.RelationshipTypes(), ", "))

		case strings.HasPrefix(line, ".explain "):
			plan, err := eng.Explain(strings.TrimPrefix(line, ".explain "))
			if err != nil {
				fmt.Printf("Compile error: %v\n", err)
				continue
			}
			fmt.Print(plan)

		case len(line) >= 5 && strings.EqualFold(line[:5], "MATCH"):
			result, err := eng.Execute(line)
			if err != nil {
				fmt.Printf("Query failed: %v\n", err)
				continue
			}
			fmt.Println(result.Markdown())
			fmt.Println(result.String())

		default:
			fmt.Println("Unknown command. Use .help for help.")
		}
	}
}
