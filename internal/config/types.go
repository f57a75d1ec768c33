package config

import (
	"fmt"
	"strings"
)

// OwnerType enumerates the two owner identity kinds.
type OwnerType string

const (
	OwnerTypeIndividual   OwnerType = "individual"
	OwnerTypeOrganization OwnerType = "organization"
)

// NormalizeOwnerType converts user input (case-insensitive) to an OwnerType, returning empty string for unknown.
func NormalizeOwnerType(raw string) OwnerType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(OwnerTypeIndividual), "user":
		return OwnerTypeIndividual
	case string(OwnerTypeOrganization), "org":
		return OwnerTypeOrganization
	default:
		return ""
	}
}

// Owner is the identity a project lives under. It is a closed set: Individual or Organization.
type Owner interface {
	OwnerName() string
	OwnerType() OwnerType
	sealedOwner()
}

// Individual is a personal account owner.
type Individual struct {
	Name string
}

func (o Individual) OwnerName() string    { return o.Name }
func (o Individual) OwnerType() OwnerType { return OwnerTypeIndividual }
func (Individual) sealedOwner()           {}

// Organization is an organization owner.
type Organization struct {
	Name string
}

func (o Organization) OwnerName() string    { return o.Name }
func (o Organization) OwnerType() OwnerType { return OwnerTypeOrganization }
func (Organization) sealedOwner()           {}

// NewOwner builds the Owner variant for kind.
func NewOwner(kind OwnerType, name string) (Owner, error) {
	switch kind {
	case OwnerTypeIndividual:
		return Individual{Name: name}, nil
	case OwnerTypeOrganization:
		return Organization{Name: name}, nil
	default:
		return nil, fmt.Errorf("unknown owner type %q (want individual or organization)", kind)
	}
}

// DerivedType enumerates the sources a derived environment variable can be resolved from.
type DerivedType string

const (
	DerivedDeploymentKey DerivedType = "deployment-key"
	DerivedAppSecret     DerivedType = "app-secret"
)

// NormalizeDerivedType converts user input to a DerivedType, returning empty string for unknown.
func NormalizeDerivedType(raw string) DerivedType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")) {
	case string(DerivedDeploymentKey):
		return DerivedDeploymentKey
	case string(DerivedAppSecret):
		return DerivedAppSecret
	default:
		return ""
	}
}

// DerivedSource is where a derived variable's value comes from: DeploymentKey or AppSecret.
type DerivedSource interface {
	DerivedType() DerivedType
	sealedDerived()
}

// DeploymentKey resolves to the key of the named deployment, creating the deployment if missing.
type DeploymentKey struct {
	Deployment string
}

func (DeploymentKey) DerivedType() DerivedType { return DerivedDeploymentKey }
func (DeploymentKey) sealedDerived()           {}

// AppSecret resolves to the project's app secret.
type AppSecret struct{}

func (AppSecret) DerivedType() DerivedType { return DerivedAppSecret }
func (AppSecret) sealedDerived()           {}

// DerivedVariable requests an environment variable whose value is resolved from the remote project.
type DerivedVariable struct {
	Name   string
	Source DerivedSource
}

// ProjectOS is the target operating system of a project.
type ProjectOS string

const (
	OSiOS     ProjectOS = "iOS"
	OSAndroid ProjectOS = "Android"
)

// NormalizeProjectOS converts user input to a ProjectOS, returning empty string for unknown.
func NormalizeProjectOS(raw string) ProjectOS {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ios":
		return OSiOS
	case "android":
		return OSAndroid
	default:
		return ""
	}
}

// ProjectPlatform is the development platform of a project.
type ProjectPlatform string

const (
	PlatformReactNative     ProjectPlatform = "React-Native"
	PlatformObjectiveCSwift ProjectPlatform = "Objective-C-Swift"
	PlatformJava            ProjectPlatform = "Java"
	PlatformUWP             ProjectPlatform = "UWP"
	PlatformCordova         ProjectPlatform = "Cordova"
	PlatformUnity           ProjectPlatform = "Unity"
	PlatformXamarin         ProjectPlatform = "Xamarin"
	PlatformUnknown         ProjectPlatform = "Unknown"
)

var knownPlatforms = []ProjectPlatform{
	PlatformReactNative, PlatformObjectiveCSwift, PlatformJava, PlatformUWP,
	PlatformCordova, PlatformUnity, PlatformXamarin, PlatformUnknown,
}

// NormalizeProjectPlatform matches user input case-insensitively against known platforms.
func NormalizeProjectPlatform(raw string) ProjectPlatform {
	trimmed := strings.TrimSpace(raw)
	for _, p := range knownPlatforms {
		if strings.EqualFold(trimmed, string(p)) {
			return p
		}
	}
	return ""
}

// LogLevel is the orchestrator verbosity: none prints warnings and errors only.
type LogLevel string

const (
	LogLevelNone    LogLevel = "none"
	LogLevelVerbose LogLevel = "verbose"
)

// NormalizeLogLevel returns the LogLevel for raw, or empty string for unknown.
func NormalizeLogLevel(raw string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogLevelNone):
		return LogLevelNone
	case string(LogLevelVerbose):
		return LogLevelVerbose
	default:
		return ""
	}
}

// DownloadKind is the artifact type served by the build download endpoint.
type DownloadKind string

const (
	DownloadBuild   DownloadKind = "build"
	DownloadSymbol  DownloadKind = "symbol"
	DownloadLogs    DownloadKind = "logs"
	DownloadMapping DownloadKind = "mapping"
	DownloadBundle  DownloadKind = "bundle"
)

// NormalizeDownloadKind returns the DownloadKind for raw, or empty string for unknown.
func NormalizeDownloadKind(raw string) DownloadKind {
	switch k := DownloadKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case DownloadBuild, DownloadSymbol, DownloadLogs, DownloadMapping, DownloadBundle:
		return k
	default:
		return ""
	}
}
