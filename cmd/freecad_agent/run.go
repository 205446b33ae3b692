package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/freecad-agent/internal/config"
	"github.com/jonathan/freecad-agent/internal/llm"
	"github.com/jonathan/freecad-agent/internal/observability"
	"github.com/jonathan/freecad-agent/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run [requirement]",
	Short: "Run the generate-execute-render-review loop for one design requirement",
	Long: `Drives the full modeling loop: script generation -> FreeCAD execution -> projection rendering -> visual review -> repair, until an attempt succeeds or the iteration budget is spent.

The requirement is given as a positional argument or read from a file with --requirement-file. Configuration can be loaded from a JSON or YAML file using --config; command-line arguments override config file values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAgentCmd,
}

var (
	runConfigPath      string
	runRequirementFile string
	runProvider        string
	runModel           string
	runAPIKey          string
	runEngine          string
	runMaxIterations   int
	runWorkspace       string
	runViews           []string
	runNoReview        bool
	runVerbose         bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config file, JSON or YAML (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runRequirementFile, "requirement-file", "f", "", "Path to a file holding the design requirement (mutually exclusive with the positional argument)")
	runCommand.Flags().StringVar(&runProvider, "provider", "", "Model provider: openai, openrouter, local, gemini or stub")
	runCommand.Flags().StringVarP(&runModel, "model", "m", "", "Model name")
	runCommand.Flags().StringVar(&runEngine, "engine", "", "Path to the freecadcmd executable (empty selects simulation)")
	runCommand.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Maximum repair attempts")
	runCommand.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "Directory for run artifacts")
	runCommand.Flags().StringSliceVar(&runViews, "views", nil, "Projection views to render")
	runCommand.Flags().BoolVar(&runNoReview, "no-review", false, "Skip the model review of rendered views")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print per-step progress and a formatted report")

	// API key can be passed as a flag, or read from the provider's env var
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Provider API key (optional, defaults to the provider's env var)")

	rootCmd.AddCommand(runCommand)
}

func runAgentCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 1: Load config file if provided
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if runVerbose && runConfigPath != "" {
		_, _ = fmt.Fprintf(os.Stderr, "Loaded config from: %s\n", runConfigPath)
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("provider") {
		cfg.LLM.Provider = runProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.LLM.Model = runModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.LLM.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine.ExecutablePath = runEngine
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.Pipeline.MaxIterations = runMaxIterations
	}
	if cmd.Flags().Changed("workspace") {
		cfg.Pipeline.Workspace = runWorkspace
	}
	if cmd.Flags().Changed("views") {
		cfg.Renderer.Views = runViews
	}
	if cmd.Flags().Changed("no-review") {
		cfg.Pipeline.VisualReview = !runNoReview
	}

	// Step 3: API key handling, falling back to the provider's env var
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(apiKeyEnvVar(cfg.LLM.Provider))
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 4: Resolve the requirement
	requirement, err := resolveRequirement(args)
	if err != nil {
		return err
	}

	// Step 5: Wire and run
	deps := pipeline.Deps{}
	var printer *observability.Printer
	if runVerbose {
		printer = observability.NewPrinter(os.Stderr)
		deps.OnProgress = printer.PrintProgress
	}

	agent, err := pipeline.NewAgent(cfg, deps)
	if err != nil {
		return err
	}

	report, runErr := agent.Run(ctx, requirement)

	if printer != nil {
		printer.PrintRunReport(report)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	if runErr != nil {
		return runErr
	}
	switch report.Status {
	case pipeline.StatusSucceeded:
		return nil
	case pipeline.StatusCancelled:
		return fmt.Errorf("run cancelled")
	default:
		return fmt.Errorf("run did not succeed after %d iterations", len(report.Iterations))
	}
}

func resolveRequirement(args []string) (string, error) {
	if len(args) > 0 && runRequirementFile != "" {
		return "", fmt.Errorf("the positional requirement and --requirement-file are mutually exclusive; provide only one")
	}
	if runRequirementFile != "" {
		data, err := os.ReadFile(runRequirementFile)
		if err != nil {
			return "", fmt.Errorf("failed to read requirement file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("a design requirement is required (positional argument or --requirement-file)")
	}
	return args[0], nil
}

// apiKeyEnvVar maps a provider to its conventional API key variable.
func apiKeyEnvVar(provider string) string {
	switch llm.Provider(provider) {
	case llm.ProviderGemini:
		return "GEMINI_API_KEY"
	case llm.ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
