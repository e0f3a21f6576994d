package main

// Blank imports ensure driver init() registration runs for the CLI binary.
import (
	_ "github.com/esinfra/converge/internal/drivers/directory"
	_ "github.com/esinfra/converge/internal/drivers/localuser"
	_ "github.com/esinfra/converge/internal/drivers/pkg"
	_ "github.com/esinfra/converge/internal/drivers/playbook"
	_ "github.com/esinfra/converge/internal/drivers/regpolicy"
	_ "github.com/esinfra/converge/internal/drivers/repo"
	_ "github.com/esinfra/converge/internal/drivers/shortcut"
	_ "github.com/esinfra/converge/internal/drivers/taskbarpin"
)
