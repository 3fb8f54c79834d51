package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		pythonPath   string
		onlyMakeVenv bool
		noCheckDeps  bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "venvstart [flags] -- [program args]",
		Short: "Bootstrap a python virtualenv and hand over to a program",
		Long: `venvstart reads a YAML manifest describing a python program, finds a
suitable python on this machine, provisions a virtualenv with the declared
dependencies, and replaces itself with the program.

Arguments after -- are passed through to the program.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if pythonPath != "" {
				os.Setenv("VENVSTART_PYTHON", pythonPath)
			}
			if onlyMakeVenv {
				os.Setenv("VENVSTARTER_ONLY_MAKE_VENV", "1")
			}
			if noCheckDeps {
				os.Setenv("VENV_STARTER_CHECK_DEPS", "0")
			}

			manifest, err := loadManifest(configPath)
			if err != nil {
				return err
			}
			manager, err := manifest.manager(configPath)
			if err != nil {
				return err
			}
			return manager.Run(args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "venvstart.yaml", "Path to the bootstrap manifest")
	cmd.Flags().StringVar(&pythonPath, "python", "", "Interpreter to try before walking PATH")
	cmd.Flags().BoolVar(&onlyMakeVenv, "only-make-venv", false, "Provision the virtualenv and exit without running the program")
	cmd.Flags().BoolVar(&noCheckDeps, "no-check-deps", false, "Skip dependency verification for an existing virtualenv")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log what the bootstrap is doing")

	return cmd
}
