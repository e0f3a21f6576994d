package chocolatey

import (
	"context"
	"fmt"
	"strings"

	"github.com/esinfra/converge/internal/execx"
)

// Client fronts the Chocolatey package manager. All calls shell out through
// the supplied Runner so tests can script the responses.
type Client struct {
	run execx.Runner
}

// New creates a Chocolatey client over the given runner.
func New(run execx.Runner) *Client {
	return &Client{run: run}
}

// Available reports whether the choco binary is callable. Used by the
// bootstrap preflight; everything else assumes it succeeded.
func (c *Client) Available(ctx context.Context) error {
	if _, err := c.run.Run(ctx, "choco", "--version"); err != nil {
		return err
	}
	return nil
}

// Installed lists locally installed packages as a name -> version map.
// Names are lowercased; Chocolatey package ids are case-insensitive.
func (c *Client) Installed(ctx context.Context) (map[string]string, error) {
	res, err := c.run.Run(ctx, "choco", "list", "--local-only", "--limit-output")
	if err != nil {
		return nil, fmt.Errorf("choco list failed: %w", err)
	}

	installed := make(map[string]string)
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// --limit-output emits one "name|version" pair per line.
		name, version, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		installed[strings.ToLower(name)] = version
	}

	return installed, nil
}

// IsInstalled reports whether the exact package name is installed. The
// match is anchored on the full id: "foo" never matches "foobar2".
func (c *Client) IsInstalled(ctx context.Context, name string) (bool, error) {
	installed, err := c.Installed(ctx)
	if err != nil {
		return false, err
	}
	_, ok := installed[strings.ToLower(name)]
	return ok, nil
}

// Install installs the named package.
func (c *Client) Install(ctx context.Context, name string) error {
	res, err := c.run.Run(ctx, "choco", "install", name, "-y", "--no-progress")
	if err != nil {
		return commandError("install", name, res, err)
	}
	return nil
}

// Upgrade upgrades the named package to the latest available version.
func (c *Client) Upgrade(ctx context.Context, name string) error {
	res, err := c.run.Run(ctx, "choco", "upgrade", name, "-y", "--no-progress")
	if err != nil {
		return commandError("upgrade", name, res, err)
	}
	return nil
}

// InstallPath resolves the executable path for an installed package by
// confirming the install and then consulting the PATH shim. Returns an
// error when the package is absent or no executable can be located.
func (c *Client) InstallPath(ctx context.Context, name string) (string, error) {
	ok, err := c.IsInstalled(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("package %s is not installed", name)
	}

	res, err := c.run.Run(ctx, "where.exe", name)
	if err != nil {
		return "", fmt.Errorf("no executable found for package %s: %w", name, err)
	}

	// where.exe prints one match per line; the first is the PATH winner.
	path, _, _ := strings.Cut(res.Stdout, "\n")
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("no executable found for package %s", name)
	}
	return path, nil
}

func commandError(verb, name string, res execx.Result, err error) error {
	if out := execx.PrimaryOutput(res); out != "" {
		return fmt.Errorf("choco %s %s: %w: %s", verb, name, err, out)
	}
	return fmt.Errorf("choco %s %s: %w", verb, name, err)
}
