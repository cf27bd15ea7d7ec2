package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Confluence ConfluenceConfig `yaml:"confluence"`
	Output     OutputConfig     `yaml:"output"`
	Export     ExportConfig     `yaml:"export"`
	Retry      RetryConfig      `yaml:"retry,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Nav        NavConfig        `yaml:"nav,omitempty"`
	Load       *LoadConfig      `yaml:"load,omitempty"`
	Daemon     *DaemonConfig    `yaml:"daemon,omitempty"`
	State      StateConfig      `yaml:"state,omitempty"`
}

// ConfluenceConfig describes the Confluence instance and the export root.
type ConfluenceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`

	// Either a full page URL (/pages/<id> or /display/<SPACE>/<TITLE>)
	// or an explicit numeric page ID.
	PageURL string `yaml:"page_url,omitempty"`
	PageID  string `yaml:"page_id,omitempty"`

	Timeout Duration `yaml:"timeout,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory     string `yaml:"directory"`
	BaseDirectory string `yaml:"base_directory,omitempty"`
	Clean         bool   `yaml:"clean"` // Clean output directory before export
	RawHTML       bool   `yaml:"raw_html,omitempty"` // Keep raw storage-format HTML beside each page
}

// Dir returns the effective output directory, honoring base_directory.
func (o OutputConfig) Dir() string {
	if o.BaseDirectory != "" {
		return filepath.Join(o.BaseDirectory, o.Directory)
	}
	return o.Directory
}

// ExportConfig tunes export behavior.
type ExportConfig struct {
	Concurrency        int  `yaml:"concurrency,omitempty"` // image download workers
	IncludeAttachments bool `yaml:"include_attachments"`
	SkipUnchanged      bool `yaml:"skip_unchanged"`
}

// RetryConfig holds raw retry settings; normalized into a retry.Policy.
type RetryConfig struct {
	Backoff    string   `yaml:"backoff,omitempty"` // fixed|linear|exponential
	Initial    Duration `yaml:"initial,omitempty"`
	Max        Duration `yaml:"max,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// NavConfig controls mkdocs navigation maintenance.
type NavConfig struct {
	MkdocsFile   string   `yaml:"mkdocs_file,omitempty"`
	ExcludedDirs []string `yaml:"excluded_dirs,omitempty"`
}

// LoadConfig describes the optional git load stage.
type LoadConfig struct {
	URL           string      `yaml:"url"`
	Branch        string      `yaml:"branch,omitempty"`
	Subdir        string      `yaml:"subdir,omitempty"` // path inside the repo for exported docs
	CommitMessage string      `yaml:"commit_message,omitempty"`
	Auth          *AuthConfig `yaml:"auth,omitempty"`
	Workspace     string      `yaml:"workspace,omitempty"` // persistent clone dir; empty = ephemeral
}

// AuthConfig represents git authentication configuration.
type AuthConfig struct {
	Type     string `yaml:"type"` // "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// DaemonConfig configures continuous export mode.
type DaemonConfig struct {
	Interval      Duration    `yaml:"interval,omitempty"`
	MetricsListen string      `yaml:"metrics_listen,omitempty"`
	NATS          *NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig configures export event publishing.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
	Stream  string `yaml:"stream,omitempty"`
}

// StateConfig locates the export state database.
type StateConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing process env wins.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content so secrets can be
	// referenced as ${CONFLUENCE_TOKEN}.
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadEnvFiles loads the first available .env file. Existing environment
// variables are never overridden (godotenv.Load semantics).
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

const exampleConfig = `# confexport configuration
confluence:
  base_url: https://confluence.example.com
  username: exporter@example.com
  token: ${CONFLUENCE_TOKEN}
  # Root of the export; either a page URL or an explicit page_id.
  page_url: https://confluence.example.com/pages/12345
  # page_id: "12345"

output:
  directory: ./docs
  clean: false
  # Keep raw storage-format HTML beside each page for debugging.
  raw_html: false

export:
  concurrency: 4
  include_attachments: true
  skip_unchanged: true

retry:
  backoff: linear
  initial: 1s
  max: 30s
  max_retries: 2

logging:
  level: info
  format: text

nav:
  mkdocs_file: mkdocs.yml

state:
  path: ./confexport.db

# Optional: commit the exported tree into a docs repository.
# load:
#   url: https://git.example.com/team/docs-site.git
#   branch: main
#   subdir: docs
#   auth:
#     type: token
#     token: ${GIT_TOKEN}

# Optional: continuous export mode.
# daemon:
#   interval: 30m
#   metrics_listen: :9180
#   nats:
#     url: nats://localhost:4222
#     subject: confexport.events
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
