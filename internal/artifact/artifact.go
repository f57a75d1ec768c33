// Package artifact downloads build archives and extracts the app bundle from them.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

const downloadName = "download.zip"

// Extractor fetches a zip archive and moves the bundle it contains to a target path.
type Extractor struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		if c != nil {
			e.httpClient = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{httpClient: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractBuild downloads the archive at uri and moves the first file whose extension
// matches targetPath's (".ipa", ".apk", ...) to targetPath, replacing any existing
// file. Directories are searched breadth first. Temporary files live next to the
// target and are removed before returning.
func (e *Extractor) ExtractBuild(ctx context.Context, uri, targetPath string) error {
	ext := filepath.Ext(targetPath)
	if ext == "" {
		return errors.ValidationError("target path has no extension").WithContext("path", targetPath).Build()
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(targetPath), ".mobilebuild-")
	if err != nil {
		return errors.FileSystemError("failed to create temporary directory").WithCause(err).Build()
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	archive := filepath.Join(tmpDir, downloadName)
	e.logger.Info("Downloading build archive", logfields.URL(uri))
	size, err := e.download(ctx, uri, archive)
	if err != nil {
		return err
	}
	e.logger.Info("Build archive downloaded", logfields.Path(archive), slog.String("size", humanize.IBytes(uint64(size))))

	extractDir := filepath.Join(tmpDir, "contents")
	if err := Unzip(archive, extractDir); err != nil {
		return err
	}

	bundle, err := LocateByExtension(extractDir, ext)
	if err != nil {
		return err
	}
	e.logger.Info("Bundle file located", logfields.Path(bundle))

	if _, err := os.Stat(targetPath); err == nil {
		if err := os.RemoveAll(targetPath); err != nil {
			return errors.FileSystemError("failed to remove existing target").WithCause(err).WithContext("path", targetPath).Build()
		}
		e.logger.Info("Existing target file removed", logfields.Path(targetPath))
	}
	if err := os.Rename(bundle, targetPath); err != nil {
		return errors.FileSystemError("failed to move bundle").WithCause(err).WithContext("path", targetPath).Build()
	}
	e.logger.Info("Bundle moved", logfields.Path(targetPath))
	return nil
}

func (e *Extractor) download(ctx context.Context, uri, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return 0, errors.ValidationError("invalid download URI").WithCause(err).WithContext("url", uri).Build()
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, errors.NetworkError("failed to download artifact").WithCause(err).WithContext("url", uri).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, errors.ArtifactError(fmt.Sprintf("artifact download returned %s", resp.Status)).
			WithResponse(req.Method, uri, resp.StatusCode).
			Build()
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, errors.FileSystemError("failed to create download file").WithCause(err).Build()
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return 0, errors.NetworkError("failed to read artifact body").WithCause(copyErr).WithContext("url", uri).Build()
	}
	if closeErr != nil {
		return 0, errors.FileSystemError("failed to write download file").WithCause(closeErr).Build()
	}
	return n, nil
}

// Unzip extracts archive into dir. Entries escaping dir are rejected.
func Unzip(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return errors.ArtifactError("failed to open archive").WithCause(err).WithContext("path", archive).Build()
	}
	defer func() { _ = r.Close() }()

	root, err := filepath.Abs(dir)
	if err != nil {
		return errors.FileSystemError("failed to resolve extraction directory").WithCause(err).Build()
	}
	for _, f := range r.File {
		dest := filepath.Join(root, filepath.FromSlash(f.Name))
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return errors.ArtifactError("archive entry escapes extraction directory").WithContext("entry", f.Name).Build()
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o750); err != nil {
				return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", dest).Build()
			}
			continue
		}
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", dest).Build()
	}
	rc, err := f.Open()
	if err != nil {
		return errors.ArtifactError("failed to read archive entry").WithCause(err).WithContext("entry", f.Name).Build()
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return errors.FileSystemError("failed to create file").WithCause(err).WithContext("path", dest).Build()
	}
	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // archives come from the build service
		_ = out.Close()
		return errors.ArtifactError("failed to extract archive entry").WithCause(err).WithContext("entry", f.Name).Build()
	}
	if err := out.Close(); err != nil {
		return errors.FileSystemError("failed to write file").WithCause(err).WithContext("path", dest).Build()
	}
	return nil
}

// LocateByExtension returns the first regular file under dir whose extension is ext,
// searching breadth first in directory order.
func LocateByExtension(dir, ext string) (string, error) {
	queue := []string{dir}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(current)
		if err != nil {
			return "", errors.FileSystemError("failed to read directory").WithCause(err).WithContext("path", current).Build()
		}
		for _, entry := range entries {
			p := filepath.Join(current, entry.Name())
			if entry.IsDir() {
				queue = append(queue, p)
				continue
			}
			if filepath.Ext(p) == ext {
				return p, nil
			}
		}
	}
	return "", errors.ArtifactError(fmt.Sprintf("cannot locate a file ending with %s in archive", ext)).Build()
}
