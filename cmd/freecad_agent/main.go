// Package main provides the entry point for the FreeCAD design agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "freecad_agent",
	Short: "Iterative FreeCAD model generation agent",
	Long:  "freecad_agent turns a natural-language design requirement into a FreeCAD Python macro, executes it, renders projection views and repairs failures across bounded attempts.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
