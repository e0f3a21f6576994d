package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	convergeerrors "github.com/esinfra/converge/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	resourceIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	sshGitPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("resource_id", func(fl validator.FieldLevel) bool {
			return resourceIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
			urlStr := fl.Field().String()
			if urlStr == "" {
				return true
			}

			if strings.TrimSpace(urlStr) == "" {
				return false
			}

			if parsedURL, err := url.Parse(urlStr); err == nil {
				scheme := strings.ToLower(parsedURL.Scheme)
				if (scheme == "http" || scheme == "https") && parsedURL.Host != "" {
					return true
				}
			}

			if sshGitPattern.MatchString(urlStr) {
				return true
			}

			return isValidFilePath(urlStr)
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the shared validator instance for use outside the
// config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// ValidateManifest performs schema and cross-resource validation. Duplicate
// identities within one kind are rejected here so no two descriptors ever
// target the same resource in a single run.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return convergeerrors.NewValidationError("manifest", "manifest is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(m); err != nil {
		return convertValidationError(err)
	}

	idIndex := make(map[string]int, len(m.Resources))
	identityIndex := make(map[string]int, len(m.Resources))

	for i, res := range m.Resources {
		if _, exists := idIndex[res.ID]; exists {
			return convergeerrors.NewValidationError(fieldForResource(i, "id"), fmt.Sprintf("duplicate resource id %q", res.ID), nil)
		}
		idIndex[res.ID] = i

		if err := ValidateResource(res); err != nil {
			return err
		}

		identity := res.Kind + ":" + res.Identity()
		if prev, exists := identityIndex[identity]; exists {
			return convergeerrors.NewValidationError(fieldForResource(i, "kind"),
				fmt.Sprintf("resource %q targets the same %s as resource %q", res.ID, res.Kind, m.Resources[prev].ID), nil)
		}
		identityIndex[identity] = i
	}

	return nil
}

// ValidateResource validates a single resource independent of its siblings.
func ValidateResource(res Resource) error {
	v := validatorInstance()
	if err := v.Struct(res); err != nil {
		return convertValidationError(err)
	}

	switch res.Kind {
	case "package":
		if res.Package == nil {
			return convergeerrors.NewValidationError(res.ID, "package configuration is required", nil)
		}
		if err := v.Struct(res.Package); err != nil {
			return convertValidationError(err)
		}
	case "local_user":
		if res.LocalUser == nil {
			return convergeerrors.NewValidationError(res.ID, "local_user configuration is required", nil)
		}
		if err := v.Struct(res.LocalUser); err != nil {
			return convertValidationError(err)
		}
	case "directory":
		if res.Directory == nil {
			return convergeerrors.NewValidationError(res.ID, "directory configuration is required", nil)
		}
		if err := v.Struct(res.Directory); err != nil {
			return convertValidationError(err)
		}
	case "startup_shortcut":
		if res.StartupShortcut == nil {
			return convergeerrors.NewValidationError(res.ID, "startup_shortcut configuration is required", nil)
		}
		if err := v.Struct(res.StartupShortcut); err != nil {
			return convertValidationError(err)
		}
	case "taskbar_pin":
		if res.TaskbarPin == nil {
			return convergeerrors.NewValidationError(res.ID, "taskbar_pin configuration is required", nil)
		}
		if err := v.Struct(res.TaskbarPin); err != nil {
			return convertValidationError(err)
		}
	case "registry_value":
		if res.RegistryValue == nil {
			return convergeerrors.NewValidationError(res.ID, "registry_value configuration is required", nil)
		}
		if err := v.Struct(res.RegistryValue); err != nil {
			return convertValidationError(err)
		}
	case "repo":
		if res.Repo == nil {
			return convergeerrors.NewValidationError(res.ID, "repo configuration is required", nil)
		}
		if err := v.Struct(res.Repo); err != nil {
			return convertValidationError(err)
		}
	case "playbook":
		if res.Playbook == nil {
			return convergeerrors.NewValidationError(res.ID, "playbook configuration is required", nil)
		}
		if err := v.Struct(res.Playbook); err != nil {
			return convertValidationError(err)
		}
	default:
		return convergeerrors.NewValidationError(res.ID, fmt.Sprintf("unknown resource kind %q", res.Kind), nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return convergeerrors.NewValidationError(field, msg, err)
	}

	return convergeerrors.NewValidationError("manifest", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForResource(index int, field string) string {
	return fmt.Sprintf("resources[%d].%s", index, field)
}

// isValidFilePath performs syntactic validation of file paths without
// filesystem access. Accepts POSIX-style and Windows drive-letter paths.
func isValidFilePath(path string) bool {
	if path == "" {
		return false
	}

	if strings.Contains(path, "\x00") {
		return false
	}

	if strings.HasPrefix(path, "/") {
		return !strings.Contains(path, "/../") && !strings.HasSuffix(path, "/..")
	}

	// Windows drive-letter paths (C:/... or C:\...)
	if len(path) >= 3 && path[1] == ':' && (path[2] == '/' || path[2] == '\\') {
		return true
	}

	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return true
	}

	return false
}
