package terraform

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/terrafan/terrafan/internal/log"
)

const defaultReleasesBaseURL = "https://releases.hashicorp.com/terraform"

// InstallerConfig is the configuration for the terraform binary installer.
type InstallerConfig struct {
	// InstallPath is the directory the terraform binary is installed into.
	InstallPath string
	// BaseURL is the release download base URL.
	BaseURL    string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *InstallerConfig) defaults() error {
	if c.InstallPath == "" {
		return fmt.Errorf("install path is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultReleasesBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "terraform.Installer"})
	return nil
}

// Installer downloads and unpacks terraform release binaries.
type Installer struct {
	installPath string
	baseURL     string
	httpClient  *http.Client
	logger      log.Logger
}

// NewInstaller creates a new installer.
func NewInstaller(cfg InstallerConfig) (*Installer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Installer{
		installPath: cfg.InstallPath,
		baseURL:     cfg.BaseURL,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger,
	}, nil
}

// BinaryPath returns the path of the installed terraform binary.
func (i *Installer) BinaryPath() string {
	return filepath.Join(i.installPath, "terraform")
}

// Install downloads the terraform release zip for the host OS/arch and unpacks
// the binary into the install path.
func (i *Installer) Install(ctx context.Context, version string) error {
	if version == "" {
		return fmt.Errorf("terraform version is required")
	}

	if err := os.MkdirAll(i.installPath, 0755); err != nil {
		return fmt.Errorf("could not create install path: %w", err)
	}

	url := fmt.Sprintf("%s/%s/terraform_%s_%s_%s.zip", i.baseURL, version, version, runtime.GOOS, runtime.GOARCH)
	i.logger.Infof("Downloading terraform binary from %s", url)

	zipPath, err := i.download(ctx, url)
	if err != nil {
		return err
	}
	defer os.Remove(zipPath)

	if err := i.extractBinary(zipPath); err != nil {
		return err
	}

	if err := os.Chmod(i.BinaryPath(), 0755); err != nil {
		return fmt.Errorf("could not make terraform binary executable: %w", err)
	}

	i.logger.Infof("Installed terraform %s at %s", version, i.BinaryPath())
	return nil
}

func (i *Installer) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	f, err := os.CreateTemp("", "terraform-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing download: %w", err)
	}

	return f.Name(), nil
}

func (i *Installer) extractBinary(zipPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening release zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		// The release zip carries a single "terraform" entry.
		if filepath.Base(f.Name) != "terraform" {
			continue
		}

		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry: %w", err)
		}
		defer src.Close()

		dst, err := os.Create(i.BinaryPath())
		if err != nil {
			return fmt.Errorf("creating binary file: %w", err)
		}
		defer dst.Close()

		if _, err := io.Copy(dst, src); err != nil {
			os.Remove(i.BinaryPath())
			return fmt.Errorf("extracting binary: %w", err)
		}

		return nil
	}

	return fmt.Errorf("terraform binary not found in release zip")
}
