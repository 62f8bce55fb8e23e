package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/internal/builtin"
	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/dsl"
	"github.com/aretw0/signaltree/pkg/registry"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "signaltree",
	Short:         "signaltree runs trees of synchronous and concurrent steps",
	Long:          `signaltree compiles YAML descriptions of steps, concurrent groups and output branches, and runs them against a host store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	switch logging.Format(format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level, logging.Format(format)), nil
}

// loadSignal reads a YAML description and compiles it against the built-in actions.
func loadSignal(path string, opts ...signaltree.Option) (*signaltree.Signal, error) {
	reg := registry.NewRegistry()
	builtin.Register(reg)

	def, err := dsl.LoadFile(path, reg.Resolver())
	if err != nil {
		return nil, err
	}

	name := def.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	opts = append([]signaltree.Option{
		signaltree.WithName(name),
		signaltree.WithRegistry(reg),
	}, opts...)
	return signaltree.Create(def.Description, opts...)
}

func describeError(err error) string {
	var derr *domain.DescriptionError
	if errors.As(err, &derr) && len(derr.Path) > 0 {
		return fmt.Sprintf("%s (at %s)", derr.Reason, derr.Path)
	}
	return err.Error()
}
