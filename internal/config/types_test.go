package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResourceUnmarshalDispatchesOnKind(t *testing.T) {
	t.Parallel()

	doc := `
id: autostart_launcher
name: "Launcher at logon"
kind: startup_shortcut
shortcut_name: launcher
target: "C:/ES/Tools/launcher.exe"
working_dir: "C:/ES/Tools"
args: "--kiosk"
`

	var res Resource
	require.NoError(t, yaml.Unmarshal([]byte(doc), &res))

	require.Equal(t, "autostart_launcher", res.ID)
	require.Equal(t, "startup_shortcut", res.Kind)
	require.False(t, res.Critical)
	require.NotNil(t, res.StartupShortcut)
	require.Equal(t, "launcher", res.StartupShortcut.ShortcutName)
	require.Equal(t, "C:/ES/Tools/launcher.exe", res.StartupShortcut.Target)
	require.Equal(t, "--kiosk", res.StartupShortcut.Args)

	require.Nil(t, res.Package)
	require.Nil(t, res.Directory)
	require.Nil(t, res.Repo)
}

func TestResourceUnmarshalLocalUser(t *testing.T) {
	t.Parallel()

	doc := `
id: kiosk_user
kind: local_user
username: kiosk
password: ""
full_name: "Kiosk Account"
group: Users
password_never_expires: true
`

	var res Resource
	require.NoError(t, yaml.Unmarshal([]byte(doc), &res))

	require.NotNil(t, res.LocalUser)
	require.Equal(t, "kiosk", res.LocalUser.Username)
	require.Empty(t, res.LocalUser.Password)
	require.Equal(t, "Users", res.LocalUser.Group)
	require.True(t, res.LocalUser.PasswordNeverExpires)
}

func TestPathsFallBackToEnvironment(t *testing.T) {
	appdata := filepath.Join(t.TempDir(), "AppData", "Roaming")
	t.Setenv("APPDATA", appdata)

	var p Paths
	require.Equal(t, filepath.Join(appdata, "Microsoft", "Windows", "Start Menu", "Programs", "Startup"), p.StartupFolder())
	require.Equal(t, filepath.Join(appdata, "Microsoft", "Internet Explorer", "Quick Launch", "User Pinned", "TaskBar"), p.TaskbarFolder())
}

func TestPathsOverridesWin(t *testing.T) {
	t.Parallel()

	p := Paths{StartupDir: "C:/custom/startup", TaskbarDir: "C:/custom/taskbar"}
	require.Equal(t, "C:/custom/startup", p.StartupFolder())
	require.Equal(t, "C:/custom/taskbar", p.TaskbarFolder())
}

func TestResourceMap(t *testing.T) {
	t.Parallel()

	resources := []Resource{
		{ID: "a", Kind: "directory", Directory: &DirectoryResource{Path: "C:/a"}},
		{ID: "b", Kind: "directory", Directory: &DirectoryResource{Path: "C:/b"}},
	}

	m := ResourceMap(resources)
	require.Len(t, m, 2)
	require.Equal(t, "C:/a", m["a"].Directory.Path)
}
