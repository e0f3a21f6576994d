package shortcutdriver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

func resource(folder string) *config.Resource {
	return &config.Resource{
		ID:   "launch_kiosk",
		Kind: "startup_shortcut",
		StartupShortcut: &config.StartupShortcutResource{
			ShortcutName: "Kiosk",
			Target:       `C:\Tools\kiosk.exe`,
			Args:         "--fullscreen",
			WorkingDir:   `C:\Tools`,
			Folder:       folder,
		},
	}
}

func TestEvaluateMissingShortcut(t *testing.T) {
	t.Parallel()

	d := NewWithRunner(&execx.Fake{})
	eval, err := d.Evaluate(context.Background(), resource(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.True(t, eval.RequiresAction)
}

func TestEvaluateExistingShortcutIsSatisfied(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "Kiosk.lnk"), []byte{}, 0o644))

	d := NewWithRunner(&execx.Fake{})
	eval, err := d.Evaluate(context.Background(), resource(folder))
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
	require.False(t, eval.RequiresAction)
}

func TestApplyInvokesShellAutomation(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{}
	d := NewWithRunner(fake)
	res := resource(t.TempDir())

	eval, err := d.Evaluate(context.Background(), res)
	require.NoError(t, err)

	result, err := d.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusApplied, result.Status)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	call := calls[0]
	require.Equal(t, "powershell", call.Name)
	script := call.Args[len(call.Args)-1]
	require.Contains(t, script, "WScript.Shell")
	require.Contains(t, script, `C:\Tools\kiosk.exe`)
	require.Contains(t, script, "--fullscreen")
	require.Contains(t, script, "Kiosk.lnk")
}

func TestApplySkipsExistingShortcut(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "Kiosk.lnk"), []byte("original"), 0o644))

	fake := &execx.Fake{}
	d := NewWithRunner(fake)
	res := resource(folder)

	eval, err := d.Evaluate(context.Background(), res)
	require.NoError(t, err)

	result, err := d.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusAlreadySatisfied, result.Status)
	require.Empty(t, fake.Calls())

	// Existing shortcuts are never rewritten.
	data, err := os.ReadFile(filepath.Join(folder, "Kiosk.lnk"))
	require.NoError(t, err)
	require.Equal(t, "original", string(data))
}

func TestApplySurfacesCommandFailure(t *testing.T) {
	t.Parallel()

	fake := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		return execx.Result{Stderr: "COM activation failed", ExitCode: 1}, errors.New("exit status 1")
	}}
	d := NewWithRunner(fake)
	res := resource(t.TempDir())

	eval, err := d.Evaluate(context.Background(), res)
	require.NoError(t, err)

	result, err := d.Apply(context.Background(), eval, res)
	require.Error(t, err)
	require.Equal(t, model.StatusFailed, result.Status)
	require.Contains(t, result.Message, "COM activation failed")
}

func TestScriptEscapesSingleQuotes(t *testing.T) {
	t.Parallel()

	cfg := &config.StartupShortcutResource{
		ShortcutName: "O'Brien",
		Target:       `C:\Users\O'Brien\run.exe`,
		Folder:       `C:\startup`,
	}
	script := createShortcutScript(cfg)
	require.Contains(t, script, "O''Brien")
}
