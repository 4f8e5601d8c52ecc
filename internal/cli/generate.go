package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/internal/emitter/goemitter"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	PackageName string
	OpenAPI     bool
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed Go bindings from a bot API schema",
		Long: "Generate typed Go bindings from a bot API schema document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  botapigen generate --input schema.yaml --out ./botapi
  botapigen generate --input openapi.yaml --openapi --out ./botapi
  botapigen --config config.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the schema document")
	flags.String("out", "", "Output directory (defaults to the package name)")
	flags.String("package-name", "", "Emitted Go package name (default botapi)")
	flags.Bool("openapi", false, "Treat the input as an OpenAPI v3 document")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := GenerateConfig{}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if cfg.Input == "" {
		return nil, newUsageError("generate: --input is required (set via flag or config file)")
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("package-name") {
		value, err := flags.GetString("package-name")
		if err != nil {
			return err
		}
		cfg.PackageName = strings.TrimSpace(value)
	}
	if flags.Changed("openapi") {
		value, err := flags.GetBool("openapi")
		if err != nil {
			return err
		}
		cfg.OpenAPI = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.PackageName = strings.TrimSpace(c.PackageName)
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	bindings, err := compile(ctx, cfg.Input, cfg.OpenAPI)
	if err != nil {
		return err
	}

	outDir := cfg.Out
	pkg := cfg.PackageName
	if pkg == "" {
		pkg = "botapi"
	}
	if outDir == "" {
		outDir = pkg
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	res, err := goemitter.Emit(ctx, bindings, goemitter.Options{
		OutDir:      outDir,
		PackageName: pkg,
		Force:       cfg.Force,
		DryRun:      cfg.DryRun,
		Verbose:     cfg.Verbose,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", absOut, len(res.Planned))
		for _, p := range res.Planned {
			fmt.Fprintf(os.Stdout, "- %s\n", p.RelPath)
		}
	}
	return nil
}

// compile runs the build-time pipeline: load the schema store, resolve the
// type graph, generate the binding set. Any failure here is fatal to the
// command; the system must never run with an inconsistent schema.
func compile(ctx context.Context, input string, openAPI bool) (*bind.Bindings, error) {
	store, err := loadStore(ctx, input, openAPI)
	if err != nil {
		return nil, err
	}

	graph, err := resolve.Resolve(store)
	if err != nil {
		var re *resolve.ResolutionError
		if errors.As(err, &re) {
			return nil, newUsageError(err.Error())
		}
		return nil, err
	}

	return bind.Generate(graph)
}

func loadStore(ctx context.Context, input string, openAPI bool) (*schema.Store, error) {
	if !openAPI {
		store, err := schema.Load(ctx, input)
		if err != nil {
			var se *schema.SchemaError
			if errors.As(err, &se) {
				msg := fmt.Sprintf("schema: %s", se.Message)
				if se.Location != "" {
					msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
				}
				return nil, newUsageError(msg)
			}
			return nil, err
		}
		return store, nil
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	var (
		doc     *openapi3.T
		loadErr error
	)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		doc, loadErr = loader.LoadFromURI(u)
	} else {
		doc, loadErr = loader.LoadFromFile(input)
	}
	if loadErr != nil {
		return nil, newUsageError(fmt.Sprintf("openapi: load %s: %v", input, loadErr))
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, newUsageError(fmt.Sprintf("openapi: validate %s: %v", input, err))
	}
	store, err := schema.BuildStoreFromOpenAPI(doc)
	if err != nil {
		return nil, newUsageError(err.Error())
	}
	return store, nil
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		switch normalizeKey(key) {
		case "input":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Input = str
		case "out":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = str
		case "packagename":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.PackageName = str
		case "openapi":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.OpenAPI = val
		case "dryrun":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.DryRun = val
		case "force":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Force = val
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Verbose = val
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
