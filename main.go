package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"coin-swap/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// Settings may come from the environment or .coin-swap.yaml alone.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
