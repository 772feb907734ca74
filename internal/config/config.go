// Package config loads project configuration driving a scan: which files
// to include, compiler options, where the snapshot store lives, and the
// callback-registration patterns Stage 7 matches against.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/tscg-project/tscg/internal/errtax"
)

// CompilerOptions mirrors the subset of tsconfig-shaped knobs the frontend
// needs to parse a project consistently.
type CompilerOptions struct {
	TargetLanguageLevel string `yaml:"targetLanguageLevel"`
	ModuleResolution    string `yaml:"moduleResolution"`
	IncludeLib          bool   `yaml:"includeLib"`
}

// CallbackPattern names one framework registration API Stage 7 recognizes,
// e.g. a Commander-style ".action(handler)" or an Express-style
// "app.get(path, handler)".
type CallbackPattern struct {
	Name           string  `yaml:"name"`
	ReceiverSuffix string  `yaml:"receiverSuffix"`
	Method         string  `yaml:"method"`
	CallbackArg    int     `yaml:"callbackArg"`
	Confidence     float64 `yaml:"confidence"`
}

// Config is the project configuration loaded from YAML.
type Config struct {
	ProjectRoot    string            `yaml:"projectRoot"`
	IncludeGlobs   []string          `yaml:"include"`
	ExcludeGlobs   []string          `yaml:"exclude"`
	Compiler       CompilerOptions   `yaml:"compiler"`
	StoragePath    string            `yaml:"storagePath"`
	CallbackPatterns []CallbackPattern `yaml:"callbackPatterns"`
}

// Default returns the documented defaults (scan root "src", common
// test/build/VCS directories excluded).
func Default() Config {
	return Config{
		ProjectRoot:  ".",
		IncludeGlobs: []string{"src"},
		ExcludeGlobs: []string{
			"**/node_modules/**",
			"**/.git/**",
			"**/dist/**",
			"**/build/**",
			"**/*.test.ts",
			"**/*.spec.ts",
			"**/__tests__/**",
		},
		Compiler: CompilerOptions{
			TargetLanguageLevel: "es2022",
			ModuleResolution:    "node",
			IncludeLib:          false,
		},
		StoragePath: ".tscg/snapshots.db",
		CallbackPatterns: []CallbackPattern{
			{Name: "commander-action", ReceiverSuffix: "", Method: "action", CallbackArg: 0, Confidence: 0.9},
			{Name: "express-route", ReceiverSuffix: "", Method: "get", CallbackArg: 1, Confidence: 0.8},
			{Name: "event-emitter-on", ReceiverSuffix: "", Method: "on", CallbackArg: 1, Confidence: 0.75},
			{Name: "array-foreach", ReceiverSuffix: "", Method: "forEach", CallbackArg: 0, Confidence: 0.7},
		},
	}
}

// Load reads and validates a YAML configuration file, filling unset fields
// from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &errtax.ConfigError{Field: "path", Err: err}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &errtax.ConfigError{Field: "yaml", Err: err}
	}
	if cfg.ProjectRoot == "" {
		return Config{}, &errtax.ConfigError{Field: "projectRoot", Err: fmt.Errorf("must not be empty")}
	}
	if cfg.StoragePath == "" {
		return Config{}, &errtax.ConfigError{Field: "storagePath", Err: fmt.Errorf("must not be empty")}
	}
	return cfg, nil
}

// Hash returns a deterministic content hash of the configuration, stored on
// every snapshot produced under it so two runs can be compared for
// configuration drift.
func (c Config) Hash() string {
	data, _ := yaml.Marshal(c)
	sum := xxhash.Sum64(data)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:])
}
