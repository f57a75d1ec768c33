package builder

import (
	"context"
	"encoding/json"
	"maps"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/signing"
)

// prepareBuildSetting returns a copy of the configured build setting with derived
// secrets appended and signing files encoded. The configuration is left untouched, so
// a retried step starts from the caller's input again.
func (b *Builder) prepareBuildSetting(ctx context.Context) (config.BuildSetting, error) {
	setting := b.cfg.BuildSetting

	derived, err := b.resolveDerivedVariables(ctx)
	if err != nil {
		return setting, err
	}
	env := make([]config.EnvironmentVariable, 0, len(setting.EnvironmentVariables)+len(derived))
	env = append(env, setting.EnvironmentVariables...)
	env = append(env, derived...)
	setting.EnvironmentVariables = env

	if setting.Toolsets.Xcode != nil {
		xcode, err := signing.ApplyXcode(*setting.Toolsets.Xcode)
		if err != nil {
			return setting, err
		}
		setting.Toolsets.Xcode = &xcode
	}
	return setting, nil
}

// resolveDerivedVariables resolves at most one request per source kind; the first
// request of a kind wins and later ones are skipped.
func (b *Builder) resolveDerivedVariables(ctx context.Context) ([]config.EnvironmentVariable, error) {
	var out []config.EnvironmentVariable
	seen := make(map[config.DerivedType]bool)

	for _, req := range b.cfg.DerivedEnv {
		if req.Source == nil {
			continue
		}
		kind := req.Source.DerivedType()
		if seen[kind] {
			b.logger.Debug("Skipping duplicate derived variable", logfields.Name(req.Name), logfields.Result(string(kind)))
			continue
		}
		seen[kind] = true

		var value string
		switch src := req.Source.(type) {
		case config.DeploymentKey:
			key, err := b.deploymentKey(ctx, src.Deployment)
			if err != nil {
				return nil, err
			}
			value = key
			b.info("Deployment key fetched", logfields.Name(req.Name))
		case config.AppSecret:
			secret, err := b.svc.GetAppSecret(ctx, b.cfg.Project.Name)
			if err != nil {
				return nil, err
			}
			value = secret
			b.info("App secret fetched", logfields.Name(req.Name))
		default:
			continue
		}
		out = append(out, config.EnvironmentVariable{Name: req.Name, Value: value, IsSecret: true})
	}
	return out, nil
}

// deploymentKey returns the key of the named deployment, creating it when missing.
func (b *Builder) deploymentKey(ctx context.Context, name string) (string, error) {
	app := b.cfg.Project.Name
	deployments, err := b.svc.ListDeployments(ctx, app)
	if err != nil {
		return "", err
	}
	for _, d := range deployments {
		if d.Name == name {
			return d.Key, nil
		}
	}
	created, err := b.svc.CreateDeployment(ctx, app, name)
	if err != nil {
		return "", err
	}
	return created.Key, nil
}

// MergeBuildConfiguration overlays desired on existing: top-level keys from desired
// replace existing ones, keys only present remotely are kept. Merging the result with
// the same desired configuration again yields the same configuration.
func MergeBuildConfiguration(existing, desired appcenter.BuildConfiguration) appcenter.BuildConfiguration {
	merged := make(appcenter.BuildConfiguration, len(existing)+len(desired))
	maps.Copy(merged, existing)
	maps.Copy(merged, desired)
	return merged
}

// optionalWireKeys are dropped from the wire object when empty, so a merge keeps the
// remote values the caller did not set.
var optionalWireKeys = []string{"toolsets", "environmentVariables"}

// toWire converts a typed build setting to its wire object.
func toWire(setting config.BuildSetting) (appcenter.BuildConfiguration, error) {
	data, err := json.Marshal(setting)
	if err != nil {
		return nil, errors.InternalError("failed to encode build setting").WithCause(err).Build()
	}
	var out appcenter.BuildConfiguration
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.InternalError("failed to decode build setting").WithCause(err).Build()
	}
	for _, key := range optionalWireKeys {
		if isEmptyWireValue(out[key]) {
			delete(out, key)
		}
	}
	return out, nil
}

func isEmptyWireValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
