package config

import (
	"fmt"
	"net/url"

	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func Validate(cfg *Config) error {
	validator := &configurationValidator{config: cfg}
	return validator.validate()
}

// configurationValidator coordinates validation across configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	checks := []func() error{
		cv.validateRemote,
		cv.validateOwner,
		cv.validateProject,
		cv.validateRepo,
		cv.validateDerived,
		cv.validateTuning,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateRemote() error {
	if cv.config.APIToken == "" {
		return errors.ValidationError("api_token is required").Build()
	}
	for field, raw := range map[string]string{"api_url": cv.config.APIURL, "portal_url": cv.config.PortalURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ValidationError(fmt.Sprintf("%s must be an absolute URL", field)).
				WithContext("value", raw).
				Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateOwner() error {
	if cv.config.Owner == nil {
		return errors.ValidationError("owner is required").Build()
	}
	if cv.config.Owner.OwnerName() == "" {
		return errors.ValidationError("owner.name is required").Build()
	}
	return nil
}

func (cv *configurationValidator) validateProject() error {
	p := cv.config.Project
	if p.Name == "" {
		return errors.ValidationError("project.name is required").Build()
	}
	if NormalizeProjectOS(string(p.OS)) == "" {
		return errors.ValidationError("project.os must be iOS or Android").
			WithContext("value", string(p.OS)).
			Build()
	}
	if NormalizeProjectPlatform(string(p.Platform)) == "" {
		return errors.ValidationError("project.platform is not a supported platform").
			WithContext("value", string(p.Platform)).
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateRepo() error {
	if cv.config.Repo.URL == "" && cv.config.Repo.Path == "" {
		return errors.ValidationError("repo.url or repo.path is required").Build()
	}
	return nil
}

func (cv *configurationValidator) validateDerived() error {
	seen := make(map[string]bool)
	for i, d := range cv.config.DerivedEnv {
		if d.Name == "" {
			return errors.ValidationError(fmt.Sprintf("derived_env[%d].name is required", i)).Build()
		}
		if seen[d.Name] {
			return errors.ValidationError(fmt.Sprintf("derived_env[%d]: duplicate name %q", i, d.Name)).Build()
		}
		seen[d.Name] = true
		if dk, ok := d.Source.(DeploymentKey); ok && dk.Deployment == "" {
			return errors.ValidationError(fmt.Sprintf("derived_env[%d].deployment is required for deployment-key", i)).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateTuning() error {
	if NormalizeRetryBackoff(string(cv.config.Retry.Backoff)) == "" {
		return errors.ValidationError("retry.backoff must be fixed, linear or exponential").
			WithContext("value", string(cv.config.Retry.Backoff)).
			Build()
	}
	if NormalizeLogLevel(string(cv.config.LogLevel)) == "" {
		return errors.ValidationError("log_level must be none or verbose").
			WithContext("value", string(cv.config.LogLevel)).
			Build()
	}
	if cv.config.RateLimit.RequestsPerSecond < 0 {
		return errors.ValidationError("rate_limit.requests_per_second cannot be negative").Build()
	}
	return nil
}
