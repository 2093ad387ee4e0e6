package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Diff table formats understood by the report emitter.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// configNames are the file names probed in a config directory, in order.
var configNames = []string{"config.json", "config.yaml", "config.yml"}

// Config holds application configuration.
type Config struct {
	// ReportDir is where summary and diff table artifacts are written.
	// Relative paths resolve against the working directory.
	ReportDir string `json:"report_dir,omitempty" yaml:"report_dir,omitempty"`

	// DiffFormat selects the diff table encoding: csv, tsv or xlsx.
	DiffFormat string `json:"diff_format,omitempty" yaml:"diff_format,omitempty"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`

	// BatchConcurrency caps how many sources a batch diffs at once.
	BatchConcurrency int `json:"batch_concurrency,omitempty" yaml:"batch_concurrency,omitempty"`

	// Sources maps a source name to its snapshot locations, comparison fields
	// and normalization rules. The name doubles as the report file prefix.
	Sources map[string]SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty"`

	// AllowedPaths is an allowlist of directories snapshot paths supplied over
	// MCP may point into. Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables the directory allowlist for caller-supplied paths.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open index database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle index database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`
}

// SourceConfig describes one data source.
type SourceConfig struct {
	// Old and New are the default snapshot paths for diff and batch runs.
	Old string `json:"old,omitempty" yaml:"old,omitempty"`
	New string `json:"new,omitempty" yaml:"new,omitempty"`

	// ComparisonFields decide "modified"; other columns are carried through only.
	ComparisonFields []string `json:"comparison_fields" yaml:"comparison_fields"`

	// Normalize lists the fields canonicalized before comparison.
	Normalize NormalizeConfig `json:"normalize,omitempty" yaml:"normalize,omitempty"`

	// ColumnAliases renames source headers to canonical column names
	// (e.g. "price" -> "price/value").
	ColumnAliases map[string]string `json:"column_aliases,omitempty" yaml:"column_aliases,omitempty"`

	// Encoding is the snapshot file character set (e.g. "windows-1252"). Empty means UTF-8.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Delimiter overrides the extension-derived field separator.
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// NormalizeConfig names fields per normalization rule.
type NormalizeConfig struct {
	TextFields     []string `json:"text_fields,omitempty" yaml:"text_fields,omitempty"`
	CategoryFields []string `json:"category_fields,omitempty" yaml:"category_fields,omitempty"`
	NumericFields  []string `json:"numeric_fields,omitempty" yaml:"numeric_fields,omitempty"`
}

// DefaultConfig returns the default configuration.
// The two built-in sources mirror the static catalog and the JS-rendered listing.
func DefaultConfig() *Config {
	return &Config{
		ReportDir:        "reports",
		DiffFormat:       FormatCSV,
		LogLevel:         "info",
		LogFormat:        "text",
		BatchConcurrency: 2,
		Sources: map[string]SourceConfig{
			"books_static": {
				ComparisonFields: []string{"price/value", "title", "category"},
				Normalize: NormalizeConfig{
					NumericFields: []string{"price/value"},
				},
			},
			"quotes_dynamic": {
				ComparisonFields: []string{"title", "author/vendor", "category"},
				Normalize: NormalizeConfig{
					TextFields:     []string{"title", "author/vendor"},
					CategoryFields: []string{"category"},
				},
			},
		},
	}
}

// Source returns the configuration for a named source.
func (c *Config) Source(name string) (SourceConfig, bool) {
	if c == nil {
		return SourceConfig{}, false
	}
	sc, ok := c.Sources[name]
	return sc, ok
}

// SourceNames returns configured source names in sorted order.
func (c *Config) SourceNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads configuration from baseDir/config.json (or config.yaml).
// Returns default config if no file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.snapdiff.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(findConfigFile(baseDir))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.snapdiff) and repo (.snapdiff) directories.
// Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values and per-source entries; arrays are merged.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(findConfigFile(globalDir))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .snapdiff config file.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		if path := findConfigFile(filepath.Join(dir, ".snapdiff")); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findConfigFile returns the first existing config file in dir, or "".
func findConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars, a source defined in overlay replaces
// the base definition of the same name, and arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ReportDir = firstNonEmpty(overlay.ReportDir, base.ReportDir)
	result.DiffFormat = firstNonEmpty(overlay.DiffFormat, base.DiffFormat)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonEmpty(overlay.LogFormat, base.LogFormat)

	result.BatchConcurrency = overlay.BatchConcurrency
	if result.BatchConcurrency == 0 {
		result.BatchConcurrency = base.BatchConcurrency
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	if len(base.Sources)+len(overlay.Sources) > 0 {
		result.Sources = make(map[string]SourceConfig, len(base.Sources)+len(overlay.Sources))
		for name, sc := range base.Sources {
			result.Sources[name] = sc
		}
		for name, sc := range overlay.Sources {
			result.Sources[name] = sc
		}
	}

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
