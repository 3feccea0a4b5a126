package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pipegen/internal/app"
	pgerrors "pipegen/internal/errors"
	"pipegen/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

var console = ui.NewConsole()

var rootCmd = &cobra.Command{
	Use:     "pipegen",
	Short:   "pipegen - CI/CD pipeline artifact generator",
	Version: version,
	Long: `pipegen turns a pipeline definition into a Jenkinsfile, an AWS CodePipeline
CloudFormation template, CodeBuild build specs and per-environment Kubernetes manifests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write every artifact for a pipeline definition",
	Long: `Generate writes Jenkinsfile, aws-codepipeline.yaml, buildspec.yml,
deploy-buildspec.yml and k8s/<env>/{deployment,service}.yaml for every environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromFlags(cmd)
		opts.OutputDir, _ = cmd.Flags().GetString("output")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Out = console.Out()

		paths, err := app.Generate(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if opts.DryRun {
			console.PrintInfo("Dry run completed. No files were written.")
			return nil
		}
		console.PrintFiles("Generated files:", paths)
		console.PrintSuccess(fmt.Sprintf("Wrote %d files to %s", len(paths), opts.OutputDir))
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <target>",
	Short: "Print one artifact to stdout",
	Long:  `Render prints a single artifact. Run "pipegen targets" for the accepted names.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := app.Render(cmd.Context(), optionsFromFlags(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(console.Out(), out)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a pipeline definition renders for every target",
	RunE: func(cmd *cobra.Command, args []string) error {
		artifacts, err := app.Validate(cmd.Context(), optionsFromFlags(cmd))
		if err != nil {
			return err
		}
		console.PrintSuccess(fmt.Sprintf("Pipeline definition is valid (%d artifacts)", len(artifacts)))
		return nil
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the render targets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range app.Targets() {
			fmt.Fprintln(console.Out(), name)
		}
	},
}

func optionsFromFlags(cmd *cobra.Command) app.Options {
	file, _ := cmd.Flags().GetString("file")
	workDir, _ := cmd.Flags().GetString("workdir")
	return app.Options{DefinitionPath: file, WorkDir: workDir}
}

func addDefinitionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Path to the pipeline definition YAML file (required)")
	cmd.Flags().String("workdir", "", "Directory to detect the git remote and branch from (default: the definition's directory)")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required", "command", cmd.Name(), "error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	addDefinitionFlags(generateCmd)
	generateCmd.Flags().StringP("output", "o", app.DefaultOutputDir, "Directory to write the generated files to")
	generateCmd.Flags().Bool("dry-run", false, "Print files that would be created without actually writing them")
	rootCmd.AddCommand(generateCmd)

	addDefinitionFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)

	addDefinitionFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(targetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pgerrors.HandleError(err)
		os.Exit(1)
	}
}
