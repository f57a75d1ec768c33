package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// Config is the pipeline configuration for one project. It is loaded once and treated as
// read-only by the orchestrator.
type Config struct {
	APIToken  string `yaml:"api_token"`
	APIURL    string `yaml:"api_url,omitempty"`
	PortalURL string `yaml:"portal_url,omitempty"`

	// Owner and DerivedEnv are tagged variants; see UnmarshalYAML for their file form.
	Owner      Owner             `yaml:"-"`
	DerivedEnv []DerivedVariable `yaml:"-"`

	Project      ProjectConfig `yaml:"project"`
	Repo         RepoConfig    `yaml:"repo"`
	BuildSetting BuildSetting  `yaml:"build_setting"`

	LogLevel           LogLevel      `yaml:"log_level,omitempty"`
	BuildEstimate      time.Duration `yaml:"build_estimate,omitempty"`
	DisconnectOnFinish bool          `yaml:"disconnect_on_finish,omitempty"`

	Retry     RetryConfig     `yaml:"retry,omitempty"`
	Poll      PollConfig      `yaml:"poll,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty"`
	Events    EventsConfig    `yaml:"events,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Schedule  ScheduleConfig  `yaml:"schedule,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
}

// ProjectConfig identifies the remote project. Name is the immutable lookup key.
type ProjectConfig struct {
	Name        string          `yaml:"name"`
	OS          ProjectOS       `yaml:"os"`
	Platform    ProjectPlatform `yaml:"platform"`
	Description string          `yaml:"description,omitempty"`
}

// RepoConfig is the source repository attached to the project.
type RepoConfig struct {
	URL    string `yaml:"url,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	// Path, when set, is a local checkout used to fill URL and Branch if they are empty.
	Path string `yaml:"path,omitempty"`
}

// RetryConfig tunes the per-step retry wrapper.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty"`
	MaxRetries int              `yaml:"max_retries,omitempty"` // 0 = default, negative disables retries
	Delay      time.Duration    `yaml:"delay,omitempty"`
	MaxDelay   time.Duration    `yaml:"max_delay,omitempty"`
}

// PollConfig tunes the completion poller.
type PollConfig struct {
	Interval      time.Duration `yaml:"interval,omitempty"`
	ErrorInterval time.Duration `yaml:"error_interval,omitempty"`
	MaxErrors     int           `yaml:"max_errors,omitempty"`
}

// RateLimitConfig bounds outgoing API calls per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// EventsConfig enables lifecycle event publishing to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ScheduleConfig drives the watch command.
type ScheduleConfig struct {
	Cron string `yaml:"cron,omitempty"`
}

// MetricsConfig controls Prometheus exposure.
type MetricsConfig struct {
	ListenAddr   string `yaml:"listen_addr,omitempty"`
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

type ownerYAML struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

type derivedYAML struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Deployment string `yaml:"deployment,omitempty"`
}

// plainConfig drops Config's methods so the inline decode does not recurse.
type plainConfig Config

type configYAML struct {
	plainConfig `yaml:",inline"`
	Owner       ownerYAML     `yaml:"owner"`
	DerivedEnv  []derivedYAML `yaml:"derived_env,omitempty"`
}

// UnmarshalYAML decodes the owner and derived_env blocks into their tagged variants:
//
//	owner: {type: organization, name: acme}
//	derived_env:
//	  - {name: CODE_PUSH_KEY, type: deployment-key, deployment: Staging}
//	  - {name: APP_SECRET, type: app-secret}
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw configYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = Config(raw.plainConfig)

	if raw.Owner.Type != "" || raw.Owner.Name != "" {
		kind := NormalizeOwnerType(raw.Owner.Type)
		owner, err := NewOwner(kind, raw.Owner.Name)
		if err != nil {
			return fmt.Errorf("owner: %w", err)
		}
		c.Owner = owner
	}

	for i, d := range raw.DerivedEnv {
		v := DerivedVariable{Name: d.Name}
		switch NormalizeDerivedType(d.Type) {
		case DerivedDeploymentKey:
			v.Source = DeploymentKey{Deployment: d.Deployment}
		case DerivedAppSecret:
			v.Source = AppSecret{}
		default:
			return fmt.Errorf("derived_env[%d]: unknown type %q (want deployment-key or app-secret)", i, d.Type)
		}
		c.DerivedEnv = append(c.DerivedEnv, v)
	}
	return nil
}

// MarshalYAML is the inverse of UnmarshalYAML.
func (c Config) MarshalYAML() (any, error) {
	out := configYAML{plainConfig: plainConfig(c)}
	if c.Owner != nil {
		out.Owner = ownerYAML{Type: string(c.Owner.OwnerType()), Name: c.Owner.OwnerName()}
	}
	for _, d := range c.DerivedEnv {
		raw := derivedYAML{Name: d.Name}
		switch src := d.Source.(type) {
		case DeploymentKey:
			raw.Type = string(DerivedDeploymentKey)
			raw.Deployment = src.Deployment
		case AppSecret:
			raw.Type = string(DerivedAppSecret)
		default:
			return nil, fmt.Errorf("derived_env %q: unsupported source %T", d.Name, d.Source)
		}
		out.DerivedEnv = append(out.DerivedEnv, raw)
	}
	return out, nil
}

// Load reads, expands, defaults and validates the configuration file at configPath.
// Variables from .env/.env.local are loaded first; the existing process environment wins.
func Load(configPath string) (*Config, error) {
	_ = loadEnvFile() // .env files are optional

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	return Parse(data)
}

// Parse decodes YAML (after ${VAR} expansion), applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EstimatedBuildDuration is the pre-poll wait: the configured estimate, else 650s for iOS and 400s otherwise.
func (c *Config) EstimatedBuildDuration() time.Duration {
	if c.BuildEstimate > 0 {
		return c.BuildEstimate
	}
	if c.Project.OS == OSiOS {
		return 650 * time.Second
	}
	return 400 * time.Second
}

// Verbose reports whether step transitions should be logged.
func (c *Config) Verbose() bool {
	return c.LogLevel != LogLevelNone
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		APIToken: "${APPCENTER_API_TOKEN}",
		Owner:    Individual{Name: "your-account"},
		Project: ProjectConfig{
			Name:        "demo-rn-ios",
			OS:          OSiOS,
			Platform:    PlatformReactNative,
			Description: "Demo app built by mobilebuild",
		},
		Repo: RepoConfig{
			URL:    "https://github.com/example/demo-app",
			Branch: DefaultBranch,
		},
		BuildSetting: BuildSetting{
			Trigger:            "manual",
			ArtifactVersioning: &ArtifactVersioning{BuildNumberFormat: "buildId"},
			EnvironmentVariables: []EnvironmentVariable{
				{Name: "NODE_ENV", Value: "production"},
			},
			Toolsets: Toolsets{
				JavaScript: &JavaScriptToolset{NodeVersion: "18.x", PackageJSONPath: "package.json"},
				Xcode: &XcodeToolset{
					ProjectOrWorkspacePath: "ios/demo.xcworkspace",
					Scheme:                 "demo",
					XcodeVersion:           "15.0",
					PodfilePath:            "ios/Podfile",
				},
			},
		},
		DerivedEnv: []DerivedVariable{
			{Name: "APP_SECRET", Source: AppSecret{}},
			{Name: "CODE_PUSH_KEY", Source: DeploymentKey{Deployment: "Staging"}},
		},
		LogLevel:           LogLevelVerbose,
		DisconnectOnFinish: true,
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
