package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/patchloader/internal/ctxlog"
	"github.com/vk/patchloader/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot mirrors the HCL file. Pointer fields tell an absent attribute
// apart from its zero value so defaults survive partial blocks.
type fileRoot struct {
	LogLevel        *string              `hcl:"log_level,optional"`
	LogFormat       *string              `hcl:"log_format,optional"`
	ResourceBinding *resourceBindingBlock `hcl:"resource_binding,block"`
	Dispatch        *dispatchBlock        `hcl:"dispatch,block"`
	FailureSink     *failureSinkBlock     `hcl:"failure_sink,block"`
	Metrics         *metricsBlock         `hcl:"metrics,block"`
}

type resourceBindingBlock struct {
	Enabled    *bool `hcl:"enabled,optional"`
	VerifyDirs *bool `hcl:"verify_dirs,optional"`
}

type dispatchBlock struct {
	Fallback   *bool    `hcl:"fallback,optional"`
	Deoptimize []string `hcl:"deoptimize,optional"`
}

type failureSinkBlock struct {
	RatePerSecond *float64 `hcl:"rate_per_second,optional"`
	Burst         *int     `hcl:"burst,optional"`
}

type metricsBlock struct {
	Namespace *string `hcl:"namespace,optional"`
}

// Load reads configuration from path. A directory is searched recursively
// for .hcl files, which are applied in lexical order so later files override
// earlier ones. A path that does not exist is not an error; the defaults are
// returned.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config path not found, using defaults.", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	cfg := Default()
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := decodeInto(cfg, hclFile, file); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger.Debug("Config loaded.", "path", path, "log_level", cfg.LogLevel, "fallback", cfg.Dispatch.Fallback)
	return cfg, nil
}

// Parse decodes HCL source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	cfg := Default()
	if err := decodeInto(cfg, file, filename); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

func decodeInto(cfg *Config, file *hcl.File, filename string) error {
	var root fileRoot
	diags := gohcl.DecodeBody(file.Body, evalContext(), &root)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	root.apply(cfg)
	return nil
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envValue(os.Environ()),
		},
	}
}

// envValue turns KEY=VALUE pairs into a map(string).
func envValue(environ []string) cty.Value {
	vals := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	if len(vals) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(vals)
}

func (r *fileRoot) apply(cfg *Config) {
	setIf(&cfg.LogLevel, r.LogLevel)
	setIf(&cfg.LogFormat, r.LogFormat)
	if b := r.ResourceBinding; b != nil {
		setIf(&cfg.ResourceBinding.Enabled, b.Enabled)
		setIf(&cfg.ResourceBinding.VerifyDirs, b.VerifyDirs)
	}
	if b := r.Dispatch; b != nil {
		setIf(&cfg.Dispatch.Fallback, b.Fallback)
		if b.Deoptimize != nil {
			cfg.Dispatch.Deoptimize = b.Deoptimize
		}
	}
	if b := r.FailureSink; b != nil {
		setIf(&cfg.FailureSink.RatePerSecond, b.RatePerSecond)
		setIf(&cfg.FailureSink.Burst, b.Burst)
	}
	if b := r.Metrics; b != nil {
		setIf(&cfg.Metrics.Namespace, b.Namespace)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
