package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codewarden/internal/config"
	"codewarden/internal/engine"
	"codewarden/internal/explain"
	"codewarden/internal/generation"
	"codewarden/internal/governor"
	"codewarden/internal/logging"
)

var (
	runContextFile string
	runOutputFile  string
	runPlain       bool
)

var (
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Generate code and drive it to compliance",
	Long: `Run one orchestration loop: generate a candidate for the prompt,
verify it against all configured governors, and regenerate with
correction directives until it complies or the run terminates.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runContextFile, "context", "", "File whose contents seed the generation context")
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "", "Write the final artifact to this file")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Print the trace as raw markdown")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logging.Get(logging.CategoryCLI)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}

	registry, err := buildRegistry(cfg.Governors)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	gen, err := generation.NewGemini(ctx, generation.Config{
		APIKey: cfg.Generation.APIKey,
		Model:  cfg.Generation.Model,
	})
	if err != nil {
		return err
	}

	genContext := ""
	if runContextFile != "" {
		data, err := os.ReadFile(runContextFile)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		genContext = string(data)
	}

	eng := engine.New(engCfg, registry, gen)
	log.Info("starting run with %d governors", registry.Len())

	res, err := eng.Run(ctx, args[0], genContext)
	if err != nil {
		return err
	}

	if err := printTrace(res); err != nil {
		return err
	}

	if runOutputFile != "" && res.FinalArtifact != nil {
		if err := os.WriteFile(runOutputFile, []byte(res.FinalArtifact.Text()), 0o644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		fmt.Printf("Wrote final artifact to %s\n", runOutputFile)
	}

	vs, gs := eng.CacheStats()
	log.Debug("verification cache: %d hits / %d misses; generation cache: %d hits / %d misses",
		vs.Hits, vs.Misses, gs.Hits, gs.Misses)

	if res.State != engine.StateAccepted {
		os.Exit(1)
	}
	return nil
}

// buildRegistry turns governor declarations into live governors.
func buildRegistry(specs []config.GovernorSpec) (*governor.Registry, error) {
	registry := governor.NewRegistry()
	for _, spec := range specs {
		g, err := buildGovernor(spec)
		if err != nil {
			return nil, fmt.Errorf("governor %q: %w", spec.Name, err)
		}
		if err := registry.Register(g); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildGovernor(spec config.GovernorSpec) (governor.Governor, error) {
	switch spec.Kind {
	case "style":
		return governor.NewPatternGovernor(spec.Name, spec.Weight, governor.DefaultStyleRules()), nil
	case "security":
		return governor.NewSecurityGovernor(spec.Name, spec.Weight, governor.DefaultSecurityRules()), nil
	case "syntax":
		return governor.NewSyntaxGovernor(spec.Name, spec.Weight), nil
	case "datalog":
		if spec.PolicyPath == "" {
			return nil, fmt.Errorf("datalog governor requires policy_path")
		}
		policy, err := os.ReadFile(spec.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy: %w", err)
		}
		return governor.NewDatalogGovernor(spec.Name, spec.Weight, string(policy), spec.Blocking), nil
	case "script":
		if spec.ScriptPath == "" {
			return nil, fmt.Errorf("script governor requires script_path")
		}
		return governor.LoadScriptGovernor(spec.Name, spec.Weight, spec.ScriptPath, spec.Blocking)
	default:
		return nil, fmt.Errorf("unknown governor kind %q", spec.Kind)
	}
}

// printTrace renders the run trace to the terminal, through glamour
// unless --plain was given or the renderer cannot be built.
func printTrace(res *engine.RunResult) error {
	trace := explain.Render(res)

	if !runPlain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			if out, rerr := renderer.Render(trace); rerr == nil {
				trace = out
			}
		}
	}
	fmt.Print(trace)

	verdict := acceptedStyle.Render("ACCEPTED")
	if res.State != engine.StateAccepted {
		verdict = failedStyle.Render(fmt.Sprintf("FAILED (%s)", res.Reason))
	}
	fmt.Printf("%s after %d iteration(s)\n", verdict, len(res.History))
	return nil
}
