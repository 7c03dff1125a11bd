// Apex Rivals is a terminal street-racing game whose rival psychology and
// incident calls are delegated to a generative decision service.
// Usage: apexrivals [--version] [--plain] [--offline] [--seed <n>] [--content <dir>]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/nathoo/apexrivals/cli"
	"github.com/nathoo/apexrivals/engine"
	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/gateway"
	"github.com/nathoo/apexrivals/loader"
	"github.com/nathoo/apexrivals/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	offline := false
	var seed int64 = 1
	var contentDir string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("apexrivals %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--offline":
			offline = true
		case "--seed":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--seed requires a number\n")
				os.Exit(1)
			}
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--seed requires a number, got %q\n", args[i])
				os.Exit(1)
			}
			seed = n
		case "--content":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--content requires a directory\n")
				os.Exit(1)
			}
			i++
			contentDir = args[i]
		default:
			fmt.Fprintf(os.Stderr, "Usage: apexrivals [--version] [--plain] [--offline] [--seed <n>] [--content <dir>]\n")
			os.Exit(1)
		}
	}

	// Race content: built-in meeting, or a Lua content pack.
	defs := state.Default()
	if contentDir != "" {
		loaded, err := loader.Load(contentDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading content: %v\n", err)
			os.Exit(1)
		}
		defs = loaded
	}

	var source engine.DecisionSource
	if offline {
		source = gateway.NewOffline(seed)
	} else {
		// .env is optional; the key may come from the environment directly.
		_ = godotenv.Load()
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			fmt.Fprintf(os.Stderr, "GEMINI_API_KEY is not set. Set it (or use a .env file), or run with --offline.\n")
			os.Exit(1)
		}
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(key))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating decision client: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()
		source = gateway.NewGemini(client)
	}

	eng := engine.New(defs, source)

	if plain {
		cli.New(eng).Run()
		return
	}
	if err := tui.Run(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Error running UI: %v\n", err)
		os.Exit(1)
	}
}
