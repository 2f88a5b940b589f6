package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/refresh/am"
	"github.com/teranos/refresh/logger"
)

// ExitError reports a failure that was already printed; main only sets the exit code
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// loadConfig loads the configuration cascade, applies --root and the log
// settings, and validates the result
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := am.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Project.Root = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log.Theme != "" {
		logger.SetTheme(cfg.Log.Theme)
	}
	if jsonLogs, _ := cmd.Flags().GetBool("log-json"); cfg.Log.JSON && !jsonLogs {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(true, verbosity); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	return cfg, nil
}
