// Package main provides the CLI entrypoint for paranoid.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/charset"
	"github.com/verte-zerg/paranoid/internal/compliance"
	"github.com/verte-zerg/paranoid/internal/config"
	"github.com/verte-zerg/paranoid/internal/entropy"
	"github.com/verte-zerg/paranoid/internal/generator"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
)

const (
	defaultCharset     = "full"
	defaultLength      = 16
	defaultCount       = 1
	defaultBatchSize   = 500
	defaultAddr        = "127.0.0.1:8080"
	defaultTrendWindow = 5
	defaultBenchRuns   = 10
	defaultBenchPar    = 4
)

var (
	rootVerbose bool

	genCharset    string
	genLength     int
	genCount      int
	genMinLower   int
	genMinUpper   int
	genMinDigits  int
	genMinSymbols int

	digestStdin bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the absolute value of its audit status.
func exitCode(err error) int {
	if code := -audit.Status(err); code > 0 {
		return code
	}
	return 1
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paranoid",
		Short:         "Password generator with a built-in statistical self-audit",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newCharsetCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newDigestCmd())
	rootCmd.AddCommand(newComplianceCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if rootVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// settings is the file config with environment overrides applied.
type settings struct {
	file config.FileConfig
	env  config.EnvConfig
}

func loadSettings() (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return settings{}, fmt.Errorf("failed to load environment: %w", err)
	}
	return settings{file: config.Overlay(fileCfg, envCfg), env: envCfg}, nil
}

func (s settings) generatorOptions() []generator.Option {
	var opts []generator.Option
	if s.file.Policy.MaxAttempts != nil {
		opts = append(opts, generator.WithMaxAttempts(*s.file.Policy.MaxAttempts))
	}
	if s.file.Policy.MaxMulti != nil {
		opts = append(opts, generator.WithMaxMulti(*s.file.Policy.MaxMulti))
	}
	return opts
}

func (s settings) dbPath() string {
	return s.env.DBPathOr(config.DefaultDBPath())
}

// customFrameworks loads the policy file named by flag or config. The default
// policy path is optional; an explicit one must exist.
func (s settings) customFrameworks(flagPath string) ([]compliance.Framework, error) {
	path := flagPath
	if path == "" && s.file.Policy.PolicyFile != nil {
		path = *s.file.Policy.PolicyFile
	}
	if path == "" {
		path = config.DefaultPolicyPath()
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to stat policy file: %w", err)
		}
	}
	frameworks, err := compliance.LoadFrameworks(path)
	if err != nil {
		return nil, err
	}
	return frameworks, nil
}

// resolveCharset expands presets and normalizes the result.
func resolveCharset(raw string) (string, error) {
	cs, err := charset.Validate(charset.Resolve(raw), model.MaxCharsetLen)
	if err != nil {
		return "", fmt.Errorf("%w: %w", audit.ErrInvalidArgument, err)
	}
	return cs, nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate passwords",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().StringVarP(&genCharset, "charset", "c", defaultCharset, "charset or preset name")
	cmd.Flags().IntVarP(&genLength, "length", "l", defaultLength, "password length")
	cmd.Flags().IntVarP(&genCount, "count", "n", defaultCount, "number of passwords")
	cmd.Flags().IntVar(&genMinLower, "min-lower", 0, "minimum lowercase letters")
	cmd.Flags().IntVar(&genMinUpper, "min-upper", 0, "minimum uppercase letters")
	cmd.Flags().IntVar(&genMinDigits, "min-digits", 0, "minimum digits")
	cmd.Flags().IntVar(&genMinSymbols, "min-symbols", 0, "minimum symbols")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "charset", &genCharset, s.file.Generate.Charset)
	applyIntConfig(cmd, "length", &genLength, s.file.Generate.Length)
	applyIntConfig(cmd, "count", &genCount, s.file.Generate.Count)

	cs, err := resolveCharset(genCharset)
	if err != nil {
		return err
	}
	gen := generator.New(platform.NewSystem(), s.generatorOptions()...)
	req := model.Requirements{
		MinLowercase: genMinLower,
		MinUppercase: genMinUpper,
		MinDigits:    genMinDigits,
		MinSymbols:   genMinSymbols,
	}

	var passwords [][]byte
	defer func() {
		for _, pw := range passwords {
			platform.Wipe(pw)
		}
	}()
	switch {
	case req != model.Requirements{}:
		if genCount <= 0 {
			return fmt.Errorf("%w: --count must be > 0", audit.ErrInvalidArgument)
		}
		for i := 0; i < genCount; i++ {
			pw, err := gen.GenerateConstrained(cs, genLength, req)
			if err != nil {
				return err
			}
			passwords = append(passwords, pw)
		}
	case genCount == 1:
		pw, err := gen.Generate(cs, genLength)
		if err != nil {
			return err
		}
		passwords = append(passwords, pw)
	default:
		passwords, err = gen.GenerateMultiple(cs, genLength, genCount)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	for _, pw := range passwords {
		if _, err := w.Write(pw); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	proof := entropy.NewProof(len(cs), genLength)
	newLogger().Debug("generated passwords", "count", len(passwords), "charset_size", len(cs), "bits", proof.TotalEntropy)
	return nil
}

func newCharsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charset <charset|preset>",
		Short: "Validate and normalize a charset",
		Args:  cobra.ExactArgs(1),
		RunE:  runCharsetCmd,
	}
}

func runCharsetCmd(cmd *cobra.Command, args []string) error {
	cs, err := resolveCharset(args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(w, "%s\nsize %d, max byte %d, rejection %.4f%%\n",
		cs, len(cs), generator.MaxValid(len(cs)), generator.RejectionRatePct(len(cs))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List named charsets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range charset.PresetNames() {
				cs, _ := charset.Preset(name)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-7s %3d  %s\n", name, len(cs), cs); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest [text]",
		Short: "Print the SHA-256 hex digest of text or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDigestCmd,
	}
	cmd.Flags().BoolVar(&digestStdin, "stdin", false, "read input from stdin")
	return cmd
}

func runDigestCmd(cmd *cobra.Command, args []string) error {
	var data []byte
	switch {
	case len(args) == 1 && !digestStdin:
		data = []byte(args[0])
	default:
		read, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		data = read
	}
	defer platform.Wipe(data)
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), platform.HexDigest(platform.NewSystem(), data)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return errors.New("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# paranoid configuration
# Uncomment a value to enable it. Environment variables (PARANOID_*) override
# config values; CLI flags override both.

[generate]
# charset = %q           # Charset or preset name
# length = %d              # Password length
# count = %d                # Passwords per call

[audit]
# batch-size = %d         # Passwords in the collision batch
# save = false             # Store audit summaries in history

[policy]
# max-attempts = %d       # Constrained generation attempts
# max-multi = %d           # Passwords per generate call
# policy-file = "%s"

[server]
# addr = %q
`,
		defaultCharset,
		defaultLength,
		defaultCount,
		defaultBatchSize,
		generator.DefaultMaxAttempts,
		generator.DefaultMaxMulti,
		config.DefaultPolicyPath(),
		defaultAddr,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
