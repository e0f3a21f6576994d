package chocolatey

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esinfra/converge/internal/execx"
)

func TestInstalledParsesLimitOutput(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{Stdout: "chocolatey|2.2.2\nFoobar2|1.0.1\nsteam|1.0.0"}, nil
	}}

	installed, err := New(fake).Installed(context.Background())
	require.NoError(t, err)
	require.Len(t, installed, 3)
	require.Equal(t, "1.0.1", installed["foobar2"])
	require.Equal(t, "1.0.0", installed["steam"])
}

func TestIsInstalledMatchesExactNameOnly(t *testing.T) {
	t.Parallel()

	// Only foobar2 is installed; the strict prefix "foo" must not match.
	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{Stdout: "foobar2|1.0.1"}, nil
	}}
	client := New(fake)

	ok, err := client.IsInstalled(context.Background(), "foo")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.IsInstalled(context.Background(), "foobar2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.IsInstalled(context.Background(), "FooBar2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInstallSurfacesCommandOutput(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{Stderr: "The package was not found", ExitCode: 1}, errors.New("exit status 1")
	}}

	err := New(fake).Install(context.Background(), "nosuchpkg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "The package was not found")
	require.Contains(t, err.Error(), "nosuchpkg")
}

func TestInstallPassesExpectedArguments(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{}
	require.NoError(t, New(fake).Install(context.Background(), "steam"))

	require.Equal(t, []string{"choco install steam -y --no-progress"}, fake.CallLines())
}

func TestInstallPathResolvesThroughWhere(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		if name == "choco" {
			return execx.Result{Stdout: "steam|1.0.0"}, nil
		}
		return execx.Result{Stdout: "C:\\Program Files (x86)\\Steam\\steam.exe\r\nC:\\other\\steam.exe"}, nil
	}}

	path, err := New(fake).InstallPath(context.Background(), "steam")
	require.NoError(t, err)
	require.Equal(t, "C:\\Program Files (x86)\\Steam\\steam.exe", path)
}

func TestInstallPathAbsentPackage(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{Stdout: ""}, nil
	}}

	_, err := New(fake).InstallPath(context.Background(), "steam")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not installed")
}

func TestAvailablePropagatesFailure(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{}, errors.New("executable file not found")
	}}

	require.Error(t, New(fake).Available(context.Background()))
}
