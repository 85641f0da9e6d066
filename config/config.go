// Package config loads organizer settings from defaults, an optional YAML
// file, a .env file and ORGANIZE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/sequence"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ORGANIZE_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	LogLevel        string     `yaml:"log_level"`
	DedupThreshold  float64    `yaml:"dedup_threshold"`
	Legend          Legend     `yaml:"legend"`
	BackgroundPixel Pixel      `yaml:"background_pixel"`
	Fonts           Fonts      `yaml:"fonts"`
	OCR             OCR        `yaml:"ocr"`
	Parser          Parser     `yaml:"parser"`
	Writer          WriterConf `yaml:"writer"`
}

type Legend struct {
	Margin   float64 `yaml:"margin"`
	FontSize float64 `yaml:"font_size"`
	PaddingX int     `yaml:"padding_x"`
	PaddingY int     `yaml:"padding_y"`
	Gap      int     `yaml:"gap"`
	// Opacity of the black background, 0..1.
	Opacity float64 `yaml:"opacity"`
}

type Pixel struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type Fonts struct {
	Fallbacks []string `yaml:"fallbacks"`
	Dirs      []string `yaml:"dirs"`
}

// OCR settings. Zero DPI and PSM, and an empty whitelist, leave the
// engine defaults in place.
type OCR struct {
	Languages []string `yaml:"languages"`
	DPI       int      `yaml:"dpi"`
	PSM       int      `yaml:"psm"`
	Whitelist string   `yaml:"whitelist"`
}

type Parser struct {
	Strict bool `yaml:"strict"`
}

type WriterConf struct {
	Compress bool `yaml:"compress"`
	Garbage  bool `yaml:"garbage"`
}

func Default() Config {
	return Config{
		LogLevel:       "info",
		DedupThreshold: sequence.DefaultDedupThreshold,
		Legend: Legend{
			Margin:   5,
			FontSize: 40,
			PaddingX: 16,
			PaddingY: 12,
			Gap:      4,
			Opacity:  0.2,
		},
		Fonts:  Fonts{Fallbacks: append([]string(nil), fonts.DefaultFallbacks...)},
		OCR:    OCR{Languages: []string{"eng"}},
		Writer: WriterConf{Compress: true, Garbage: true},
	}
}

// Load builds a Config. path may be empty; envFile may name a missing file.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}
	var errs []error
	num := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	num("DEDUP_THRESHOLD", &c.DedupThreshold)
	num("LEGEND_MARGIN", &c.Legend.Margin)
	num("LEGEND_FONT_SIZE", &c.Legend.FontSize)
	integer("LEGEND_PADDING_X", &c.Legend.PaddingX)
	integer("LEGEND_PADDING_Y", &c.Legend.PaddingY)
	integer("LEGEND_GAP", &c.Legend.Gap)
	num("LEGEND_OPACITY", &c.Legend.Opacity)
	integer("BACKGROUND_PIXEL_X", &c.BackgroundPixel.X)
	integer("BACKGROUND_PIXEL_Y", &c.BackgroundPixel.Y)
	list("FONT_FALLBACKS", &c.Fonts.Fallbacks)
	list("FONT_DIRS", &c.Fonts.Dirs)
	list("OCR_LANGUAGES", &c.OCR.Languages)
	integer("OCR_DPI", &c.OCR.DPI)
	integer("OCR_PSM", &c.OCR.PSM)
	str("OCR_WHITELIST", &c.OCR.Whitelist)
	boolean("PARSER_STRICT", &c.Parser.Strict)
	boolean("WRITER_COMPRESS", &c.Writer.Compress)
	boolean("WRITER_GARBAGE", &c.Writer.Garbage)
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func (c Config) Validate() error {
	var problems []string
	if !logLevels[strings.ToLower(c.LogLevel)] {
		problems = append(problems, fmt.Sprintf("log_level %q", c.LogLevel))
	}
	if c.DedupThreshold < 0 {
		problems = append(problems, "dedup_threshold must not be negative")
	}
	if c.Legend.Margin < 0 {
		problems = append(problems, "legend.margin must not be negative")
	}
	if c.Legend.FontSize <= 0 {
		problems = append(problems, "legend.font_size must be positive")
	}
	if c.Legend.PaddingX < 0 || c.Legend.PaddingY < 0 || c.Legend.Gap < 0 {
		problems = append(problems, "legend padding and gap must not be negative")
	}
	if c.Legend.Opacity < 0 || c.Legend.Opacity > 1 {
		problems = append(problems, "legend.opacity must be within 0..1")
	}
	if c.BackgroundPixel.X < 0 || c.BackgroundPixel.Y < 0 {
		problems = append(problems, "background_pixel must not be negative")
	}
	if c.OCR.DPI < 0 {
		problems = append(problems, "ocr.dpi must not be negative")
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		problems = append(problems, "ocr.psm must be within 0..13")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
