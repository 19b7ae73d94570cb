package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/local/pdftools/internal/compress"
)

// fileConfig is the YAML overlay. Only tools settings live in the file;
// connection settings stay in the environment.
type fileConfig struct {
	Tools struct {
		ToolsConfig       `yaml:",inline"`
		CompressionLevels map[string]float64 `yaml:"compression_levels"`
	} `yaml:"tools"`
}

// applyFile overlays non-zero tools settings from a YAML file.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	t := fc.Tools
	if t.OverlayMargin > 0 {
		cfg.Tools.OverlayMargin = t.OverlayMargin
	}
	if t.RasterScale > 0 {
		cfg.Tools.RasterScale = t.RasterScale
	}
	if t.SizeCorrection > 0 {
		cfg.Tools.SizeCorrection = t.SizeCorrection
	}
	if t.DefaultFontSize > 0 {
		cfg.Tools.DefaultFontSize = t.DefaultFontSize
	}
	if t.NumberFormat != "" {
		cfg.Tools.NumberFormat = t.NumberFormat
	}
	if t.NumberPosition != "" {
		cfg.Tools.NumberPosition = t.NumberPosition
	}
	if t.NumberColor != "" {
		cfg.Tools.NumberColor = t.NumberColor
	}
	if len(t.CompressionLevels) > 0 {
		levels := make(compress.Levels, len(t.CompressionLevels))
		for k, v := range t.CompressionLevels {
			levels[compress.Level(strings.ToLower(strings.TrimSpace(k)))] = v
		}
		cfg.Tools.CompressionLevels = levels
	}
	if t.DefaultLevel != "" {
		cfg.Tools.DefaultLevel = t.DefaultLevel
	}
	if t.MaxConcurrentJobs > 0 {
		cfg.Tools.MaxConcurrentJobs = t.MaxConcurrentJobs
	}
	return nil
}

// Validate rejects settings the tools cannot run with.
func (c Config) Validate() error {
	t := c.Tools
	if err := t.CompressionLevels.Validate(); err != nil {
		return err
	}
	if _, err := t.CompressionLevels.Quality(compress.Level(t.DefaultLevel)); err != nil {
		return fmt.Errorf("default compression level %q is not in the table", t.DefaultLevel)
	}
	if t.RasterScale <= 0 {
		return fmt.Errorf("raster scale must be positive, got %v", t.RasterScale)
	}
	if t.SizeCorrection <= 0 {
		return fmt.Errorf("size correction must be positive, got %v", t.SizeCorrection)
	}
	return nil
}
