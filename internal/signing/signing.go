// Package signing encodes local iOS signing material into build configuration fields.
package signing

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// XcodeSignature is the encoded signing payload accepted by the xcode toolset.
type XcodeSignature struct {
	CertificateEncoded          string
	CertificateFilename         string
	CertificatePassword         string
	ProvisioningProfileEncoded  string
	ProvisioningProfileFilename string
}

// EncodeXcode reads the provisioning profile and p12 certificate and base64-encodes them.
func EncodeXcode(files config.XcodeSigningFiles) (XcodeSignature, error) {
	profile, err := encodeFile(files.ProvisioningProfilePath)
	if err != nil {
		return XcodeSignature{}, err
	}
	cert, err := encodeFile(files.P12Path)
	if err != nil {
		return XcodeSignature{}, err
	}
	return XcodeSignature{
		CertificateEncoded:          cert,
		CertificateFilename:         filepath.Base(files.P12Path),
		CertificatePassword:         files.P12Password,
		ProvisioningProfileEncoded:  profile,
		ProvisioningProfileFilename: filepath.Base(files.ProvisioningProfilePath),
	}, nil
}

// ApplyXcode returns a copy of x with the payload from x.Signing filled in. A toolset
// without signing files is returned unchanged.
func ApplyXcode(x config.XcodeToolset) (config.XcodeToolset, error) {
	if x.Signing == nil {
		return x, nil
	}
	sig, err := EncodeXcode(*x.Signing)
	if err != nil {
		return x, err
	}
	x.CertificateEncoded = sig.CertificateEncoded
	x.CertificateFilename = sig.CertificateFilename
	x.CertificatePassword = sig.CertificatePassword
	x.ProvisioningProfileEncoded = sig.ProvisioningProfileEncoded
	x.ProvisioningProfileFilename = sig.ProvisioningProfileFilename
	return x, nil
}

func encodeFile(path string) (string, error) {
	if path == "" {
		return "", errors.ValidationError("signing file path is empty").Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to read signing file").
			WithContext("path", path).
			Build()
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
