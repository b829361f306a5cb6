// deckhand is the CLI companion to deckhandd: it creates projects, starts
// generation jobs, and inspects slides and image versions over the daemon's
// local HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deckhand: %v\n", err)
		os.Exit(1)
	}
}
