package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest represents one deployment variant: the full declarative document
// the reconciler converges the host against.
type Manifest struct {
	Version     string     `yaml:"version" validate:"required,semver"`
	Name        string     `yaml:"name" validate:"required,min=1,max=100"`
	Description string     `yaml:"description,omitempty"`
	Settings    Settings   `yaml:"settings,omitempty"`
	Paths       Paths      `yaml:"paths,omitempty"`
	Resources   []Resource `yaml:"resources" validate:"required,min=1,dive"`
}

// Settings holds global execution parameters.
type Settings struct {
	// Timeout bounds each external command invocation, in seconds.
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	DryRun          bool `yaml:"dry_run,omitempty"`
	Verbose         bool `yaml:"verbose,omitempty"`
}

// Paths overrides the per-user shell folders drivers write into. Empty
// fields fall back to the environment-derived defaults.
type Paths struct {
	StartupDir string `yaml:"startup_dir,omitempty"`
	TaskbarDir string `yaml:"taskbar_dir,omitempty"`
}

// StartupFolder resolves the startup shortcut folder, defaulting to the
// current user's Start Menu startup directory.
func (p Paths) StartupFolder() string {
	if p.StartupDir != "" {
		return p.StartupDir
	}
	return filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs", "Startup")
}

// TaskbarFolder resolves the folder holding pinned taskbar shortcuts.
func (p Paths) TaskbarFolder() string {
	if p.TaskbarDir != "" {
		return p.TaskbarDir
	}
	return filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Internet Explorer", "Quick Launch", "User Pinned", "TaskBar")
}

// Resource describes the desired state for one host resource. Declaration
// order is significant: the reconciler converges resources strictly in the
// order they appear, and the manifest author is responsible for ordering
// dependencies (directories before clones, privilege-sensitive kinds after
// preflight).
type Resource struct {
	ID       string `yaml:"id" validate:"required,resource_id"`
	Name     string `yaml:"name,omitempty"`
	Kind     string `yaml:"kind" validate:"required,oneof=package local_user directory startup_shortcut taskbar_pin registry_value repo playbook"`
	Critical bool   `yaml:"critical,omitempty"`

	Package         *PackageResource         `yaml:",inline,omitempty"`
	LocalUser       *LocalUserResource       `yaml:",inline,omitempty"`
	Directory       *DirectoryResource       `yaml:",inline,omitempty"`
	StartupShortcut *StartupShortcutResource `yaml:",inline,omitempty"`
	TaskbarPin      *TaskbarPinResource      `yaml:",inline,omitempty"`
	RegistryValue   *RegistryValueResource   `yaml:",inline,omitempty"`
	Repo            *RepoResource            `yaml:",inline,omitempty"`
	Playbook        *PlaybookResource        `yaml:",inline,omitempty"`
}

// UnmarshalYAML customises resource decoding to populate the kind-specific
// structure without field conflicts between kinds.
func (r *Resource) UnmarshalYAML(value *yaml.Node) error {
	type baseResource struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Kind     string `yaml:"kind"`
		Critical bool   `yaml:"critical"`
	}

	var base baseResource
	if err := value.Decode(&base); err != nil {
		return err
	}

	r.ID = base.ID
	r.Name = base.Name
	r.Kind = base.Kind
	r.Critical = base.Critical

	r.Package = nil
	r.LocalUser = nil
	r.Directory = nil
	r.StartupShortcut = nil
	r.TaskbarPin = nil
	r.RegistryValue = nil
	r.Repo = nil
	r.Playbook = nil

	switch base.Kind {
	case "package":
		var pkg PackageResource
		if err := value.Decode(&pkg); err != nil {
			return err
		}
		r.Package = &pkg
	case "local_user":
		var user LocalUserResource
		if err := value.Decode(&user); err != nil {
			return err
		}
		r.LocalUser = &user
	case "directory":
		var dir DirectoryResource
		if err := value.Decode(&dir); err != nil {
			return err
		}
		r.Directory = &dir
	case "startup_shortcut":
		var sc StartupShortcutResource
		if err := value.Decode(&sc); err != nil {
			return err
		}
		r.StartupShortcut = &sc
	case "taskbar_pin":
		var pin TaskbarPinResource
		if err := value.Decode(&pin); err != nil {
			return err
		}
		r.TaskbarPin = &pin
	case "registry_value":
		var reg RegistryValueResource
		if err := value.Decode(&reg); err != nil {
			return err
		}
		r.RegistryValue = &reg
	case "repo":
		var repo RepoResource
		if err := value.Decode(&repo); err != nil {
			return err
		}
		r.Repo = &repo
	case "playbook":
		var pb PlaybookResource
		if err := value.Decode(&pb); err != nil {
			return err
		}
		r.Playbook = &pb
	}

	return nil
}

// Identity returns the key that uniquely identifies the resource within its
// kind. Duplicate identities within one manifest are a load-time error.
func (r *Resource) Identity() string {
	switch r.Kind {
	case "package":
		if r.Package != nil {
			return r.Package.Name
		}
	case "local_user":
		if r.LocalUser != nil {
			return r.LocalUser.Username
		}
	case "directory":
		if r.Directory != nil {
			return r.Directory.Path
		}
	case "startup_shortcut":
		if r.StartupShortcut != nil {
			return r.StartupShortcut.ShortcutName
		}
	case "taskbar_pin":
		if r.TaskbarPin != nil {
			if r.TaskbarPin.Target != "" {
				return r.TaskbarPin.Target
			}
			return r.TaskbarPin.Package
		}
	case "registry_value":
		if r.RegistryValue != nil {
			return fmt.Sprintf("%s\\%s", r.RegistryValue.Key, r.RegistryValue.Data)
		}
	case "repo":
		if r.Repo != nil {
			return fmt.Sprintf("%s -> %s", r.Repo.URL, r.Repo.Destination)
		}
	case "playbook":
		if r.Playbook != nil {
			return r.Playbook.Playbook
		}
	}
	return r.ID
}

// PackageResource installs a package through the package manager.
type PackageResource struct {
	Name string `yaml:"package" validate:"required,min=1,max=100"`
	// Force upgrades the package even when it is already installed.
	Force bool `yaml:"force,omitempty"`
}

// LocalUserResource creates a local account and ensures group membership.
type LocalUserResource struct {
	Username string `yaml:"username" validate:"required,min=1,max=20"`
	// Password may be empty, denoting a passwordless account.
	Password             string `yaml:"password,omitempty"`
	FullName             string `yaml:"full_name,omitempty"`
	Comment              string `yaml:"comment,omitempty"`
	Group                string `yaml:"group,omitempty"`
	PasswordNeverExpires bool   `yaml:"password_never_expires,omitempty"`
}

// DirectoryResource creates a directory tree.
type DirectoryResource struct {
	Path string `yaml:"path" validate:"required"`
}

// StartupShortcutResource drops a .lnk in the startup folder so the target
// launches at logon. Existing shortcuts are never rewritten. Folder is
// filled from the manifest paths (or environment) at load time.
type StartupShortcutResource struct {
	ShortcutName string `yaml:"shortcut_name" validate:"required"`
	Target       string `yaml:"target" validate:"required"`
	WorkingDir   string `yaml:"working_dir,omitempty"`
	Args         string `yaml:"args,omitempty"`
	Folder       string `yaml:"folder,omitempty"`
}

// LinkPath returns the full path of the shortcut file.
func (s StartupShortcutResource) LinkPath() string {
	return filepath.Join(s.Folder, s.ShortcutName+".lnk")
}

// TaskbarPinResource pins an application to the taskbar, best effort.
// Either an explicit target path or a package name to resolve through the
// package manager must be provided.
type TaskbarPinResource struct {
	Target  string `yaml:"target,omitempty" validate:"required_without=Package"`
	Package string `yaml:"package,omitempty" validate:"required_without=Target"`
	// Folder is where pinned shortcuts land; filled at load time.
	Folder string `yaml:"folder,omitempty"`
}

// RegistryValueResource appends data to an ordinal-indexed policy list
// (browser extension allow/force lists). The value name is the next free
// numeric slot under the key.
type RegistryValueResource struct {
	Key  string `yaml:"key" validate:"required"`
	Data string `yaml:"data" validate:"required"`
}

// RepoResource clones a git repository. Existing checkouts are left alone:
// the driver never pulls, so local operator edits survive re-runs.
type RepoResource struct {
	URL         string `yaml:"url" validate:"required,git_url"`
	Destination string `yaml:"destination" validate:"required"`
	Branch      string `yaml:"branch,omitempty"`
	Depth       int    `yaml:"depth,omitempty" validate:"omitempty,min=0"`
}

// PlaybookResource invokes the configuration-management tool as an opaque
// external process. When Creates is set, its existence makes re-runs
// already-satisfied.
type PlaybookResource struct {
	Playbook  string `yaml:"playbook" validate:"required"`
	Inventory string `yaml:"inventory,omitempty"`
	Creates   string `yaml:"creates,omitempty"`
}

// ApplyPathDefaults fills the per-resource shell folders that were not set
// explicitly, so drivers never consult the environment themselves.
func (m *Manifest) ApplyPathDefaults() {
	for i := range m.Resources {
		res := &m.Resources[i]
		switch {
		case res.StartupShortcut != nil && res.StartupShortcut.Folder == "":
			res.StartupShortcut.Folder = m.Paths.StartupFolder()
		case res.TaskbarPin != nil && res.TaskbarPin.Folder == "":
			res.TaskbarPin.Folder = m.Paths.TaskbarFolder()
		}
	}
}

// ResourceMap builds a lookup table for resources by ID.
func ResourceMap(resources []Resource) map[string]Resource {
	out := make(map[string]Resource, len(resources))
	for _, res := range resources {
		out[res.ID] = res
	}
	return out
}
