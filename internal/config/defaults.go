package config

import (
	"time"
)

const (
	DefaultAPIURL    = "https://api.appcenter.ms"
	DefaultPortalURL = "https://appcenter.ms"
	DefaultBranch    = "master"

	DefaultMaxRetries    = 2
	DefaultRetryDelay    = 10 * time.Second
	DefaultPollInterval  = 20 * time.Second
	DefaultPollErrorWait = 10 * time.Second
	DefaultPollMaxErrors = 30
	DefaultEventsSubject = "mobilebuild.runs"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&remoteDefaultApplier{},
		&projectDefaultApplier{},
		&retryDefaultApplier{},
		&pollDefaultApplier{},
		&eventsDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

type remoteDefaultApplier struct{}

func (remoteDefaultApplier) Domain() string { return "remote" }

func (remoteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.PortalURL == "" {
		cfg.PortalURL = DefaultPortalURL
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	return nil
}

type projectDefaultApplier struct{}

func (projectDefaultApplier) Domain() string { return "project" }

func (projectDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Repo.Branch == "" && cfg.Repo.Path == "" {
		cfg.Repo.Branch = DefaultBranch
	}
	if os := NormalizeProjectOS(string(cfg.Project.OS)); os != "" {
		cfg.Project.OS = os
	}
	if p := NormalizeProjectPlatform(string(cfg.Project.Platform)); p != "" {
		cfg.Project.Platform = p
	}
	// Verbose unless explicitly silenced
	if lvl := NormalizeLogLevel(string(cfg.LogLevel)); lvl != "" {
		cfg.LogLevel = lvl
	} else if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelVerbose
	}
	return nil
}

type retryDefaultApplier struct{}

func (retryDefaultApplier) Domain() string { return "retry" }

func (retryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = RetryBackoffFixed
	} else if m := NormalizeRetryBackoff(string(cfg.Retry.Backoff)); m != "" {
		cfg.Retry.Backoff = m
	}
	switch {
	case cfg.Retry.MaxRetries == 0:
		cfg.Retry.MaxRetries = DefaultMaxRetries
	case cfg.Retry.MaxRetries < 0:
		cfg.Retry.MaxRetries = 0
	}
	if cfg.Retry.Delay <= 0 {
		cfg.Retry.Delay = DefaultRetryDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = cfg.Retry.Delay * time.Duration(cfg.Retry.MaxRetries+1)
	}
	return nil
}

type pollDefaultApplier struct{}

func (pollDefaultApplier) Domain() string { return "poll" }

func (pollDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = DefaultPollInterval
	}
	if cfg.Poll.ErrorInterval <= 0 {
		cfg.Poll.ErrorInterval = DefaultPollErrorWait
	}
	if cfg.Poll.MaxErrors <= 0 {
		cfg.Poll.MaxErrors = DefaultPollMaxErrors
	}
	return nil
}

type eventsDefaultApplier struct{}

func (eventsDefaultApplier) Domain() string { return "events" }

func (eventsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventsSubject
	}
	return nil
}
