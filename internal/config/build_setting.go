package config

// BuildSetting is the caller-supplied branch build configuration. JSON tags follow the
// remote wire format; YAML tags follow the config file conventions.
type BuildSetting struct {
	Trigger              string                `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	ArtifactVersioning   *ArtifactVersioning   `json:"artifactVersioning,omitempty" yaml:"artifact_versioning,omitempty"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables" yaml:"environment_variables,omitempty"`
	Toolsets             Toolsets              `json:"toolsets" yaml:"toolsets,omitempty"`
	TestsEnabled         *bool                 `json:"testsEnabled,omitempty" yaml:"tests_enabled,omitempty"`
	BadgeIsEnabled       *bool                 `json:"badgeIsEnabled,omitempty" yaml:"badge_enabled,omitempty"`
}

// ArtifactVersioning selects the build number format ("buildId" or "timestamp").
type ArtifactVersioning struct {
	BuildNumberFormat string `json:"buildNumberFormat" yaml:"build_number_format"`
}

// EnvironmentVariable is one build environment variable.
type EnvironmentVariable struct {
	Name     string `json:"name" yaml:"name"`
	Value    string `json:"value" yaml:"value"`
	IsSecret bool   `json:"isSecret,omitempty" yaml:"secret,omitempty"`
}

// Toolsets groups the per-platform toolchain options.
type Toolsets struct {
	BuildScripts map[string]BuildScripts `json:"buildscripts,omitempty" yaml:"buildscripts,omitempty"`
	TestCloud    map[string]any          `json:"testcloud,omitempty" yaml:"testcloud,omitempty"`
	JavaScript   *JavaScriptToolset      `json:"javascript,omitempty" yaml:"javascript,omitempty"`
	Android      *AndroidToolset         `json:"android,omitempty" yaml:"android,omitempty"`
	Xcode        *XcodeToolset           `json:"xcode,omitempty" yaml:"xcode,omitempty"`
	Xamarin      map[string]any          `json:"xamarin,omitempty" yaml:"xamarin,omitempty"`
}

// BuildScripts are the hook scripts registered for one project file.
type BuildScripts struct {
	PostBuild string `json:"postBuild,omitempty" yaml:"post_build,omitempty"`
	PostClone string `json:"postClone,omitempty" yaml:"post_clone,omitempty"`
	PreBuild  string `json:"preBuild,omitempty" yaml:"pre_build,omitempty"`
}

type JavaScriptToolset struct {
	NodeVersion     string `json:"nodeVersion" yaml:"node_version"`
	PackageJSONPath string `json:"packageJsonPath" yaml:"package_json_path"`
	RunTests        *bool  `json:"runTests,omitempty" yaml:"run_tests,omitempty"`
}

type AndroidToolset struct {
	BuildVariant      string `json:"buildVariant" yaml:"build_variant"`
	AutomaticSigning  bool   `json:"automaticSigning" yaml:"automatic_signing"`
	GradleWrapperPath string `json:"gradleWrapperPath" yaml:"gradle_wrapper_path"`
	Module            string `json:"module" yaml:"module"`
	BuildBundle       *bool  `json:"buildBundle,omitempty" yaml:"build_bundle,omitempty"`
	RunTests          *bool  `json:"runTests,omitempty" yaml:"run_tests,omitempty"`
	RunLint           *bool  `json:"runLint,omitempty" yaml:"run_lint,omitempty"`
	IsRoot            *bool  `json:"isRoot,omitempty" yaml:"is_root,omitempty"`
	KeystorePassword  string `json:"keystorePassword,omitempty" yaml:"keystore_password,omitempty"`
	KeyAlias          string `json:"keyAlias,omitempty" yaml:"key_alias,omitempty"`
	KeyPassword       string `json:"keyPassword,omitempty" yaml:"key_password,omitempty"`
	KeystoreFilename  string `json:"keystoreFilename,omitempty" yaml:"keystore_filename,omitempty"`
	KeystoreEncoded   string `json:"keystoreEncoded,omitempty" yaml:"keystore_encoded,omitempty"`
}

type XcodeToolset struct {
	ProjectOrWorkspacePath string `json:"projectOrWorkspacePath" yaml:"project_or_workspace_path"`
	Scheme                 string `json:"scheme" yaml:"scheme"`
	XcodeVersion           string `json:"xcodeVersion" yaml:"xcode_version"`
	PodfilePath            string `json:"podfilePath,omitempty" yaml:"podfile_path,omitempty"`

	AppExtensionProvisioningProfileFiles []ProvisioningProfileFile `json:"appExtensionProvisioningProfileFiles,omitempty" yaml:"app_extension_provisioning_profile_files,omitempty"`

	CertificateFileID           string `json:"certificateFileId,omitempty" yaml:"certificate_file_id,omitempty"`
	CertificateFilename         string `json:"certificateFilename,omitempty" yaml:"certificate_filename,omitempty"`
	CertificateEncoded          string `json:"certificateEncoded,omitempty" yaml:"certificate_encoded,omitempty"`
	CertificatePassword         string `json:"certificatePassword,omitempty" yaml:"certificate_password,omitempty"`
	ProvisioningProfileFileID   string `json:"provisioningProfileFileId,omitempty" yaml:"provisioning_profile_file_id,omitempty"`
	ProvisioningProfileFilename string `json:"provisioningProfileFilename,omitempty" yaml:"provisioning_profile_filename,omitempty"`
	ProvisioningProfileEncoded  string `json:"provisioningProfileEncoded,omitempty" yaml:"provisioning_profile_encoded,omitempty"`

	// Signing points at local certificate files; they are encoded into the fields above before submission.
	Signing *XcodeSigningFiles `json:"-" yaml:"signing,omitempty"`
}

type ProvisioningProfileFile struct {
	FileName               string `json:"fileName" yaml:"file_name"`
	FileID                 string `json:"fileId" yaml:"file_id"`
	UploadID               string `json:"uploadId" yaml:"upload_id"`
	TargetBundleIdentifier string `json:"targetBundleIdentifier" yaml:"target_bundle_identifier"`
}

// XcodeSigningFiles locates the provisioning profile and p12 certificate on disk.
type XcodeSigningFiles struct {
	ProvisioningProfilePath string `yaml:"provisioning_profile_path"`
	P12Path                 string `yaml:"p12_path"`
	P12Password             string `yaml:"p12_password"`
}
