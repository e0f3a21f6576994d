package regpolicydriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/esinfra/converge/internal/execx"
)

// Store reads and writes named string values under a registry key.
type Store interface {
	// List returns the values under key as a name -> data map. A key that
	// does not exist yet lists as empty.
	List(ctx context.Context, key string) (map[string]string, error)
	// Set writes a string value, creating the key if needed.
	Set(ctx context.Context, key, name, data string) error
}

// regStore is the live Store over the reg command-line tool.
type regStore struct {
	run execx.Runner
}

// NewRegStore creates a Store backed by reg.exe.
func NewRegStore(run execx.Runner) Store {
	return &regStore{run: run}
}

var _ Store = (*regStore)(nil)

func (s *regStore) List(ctx context.Context, key string) (map[string]string, error) {
	res, err := s.run.Run(ctx, "reg", "query", key)
	if err != nil {
		// reg query exits nonzero for a missing key; the first write
		// creates it.
		if res.ExitCode > 0 {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reg query %s: %w", key, err)
	}
	return parseQueryOutput(res.Stdout), nil
}

func (s *regStore) Set(ctx context.Context, key, name, data string) error {
	res, err := s.run.Run(ctx, "reg", "add", key, "/v", name, "/t", "REG_SZ", "/d", data, "/f")
	if err != nil {
		if out := execx.PrimaryOutput(res); out != "" {
			return fmt.Errorf("reg add %s: %w: %s", key, err, out)
		}
		return fmt.Errorf("reg add %s: %w", key, err)
	}
	return nil
}

// parseQueryOutput extracts value lines from reg query output. Each value
// renders as "    name    REG_TYPE    data"; the key path line and blank
// lines are skipped.
func parseQueryOutput(out string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.HasPrefix(fields[1], "REG_") {
			continue
		}
		// Data may itself contain spaces; rejoin everything after the type.
		values[fields[0]] = strings.Join(fields[2:], " ")
	}
	return values
}
