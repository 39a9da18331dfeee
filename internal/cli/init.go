package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/onionpan/internal/collector"
	"github.com/ppiankov/onionpan/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files and the collector script",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{config.DefaultConfigFile, []byte(exampleConfig), 0o644},
		{config.DefaultEnvFile + ".example", []byte(exampleEnv), 0o644},
		{collector.FileName, collector.Script, 0o755},
	}

	created := 0
	for _, f := range files {
		wrote, err := writeIfNotExists(filepath.Join(configDir, f.name), f.data, f.perm)
		if err != nil {
			return err
		}
		if wrote {
			created++
		}
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d files.\n", configDir, created)
	}
	fmt.Printf("Next: copy %s to %s, fill in credentials, then log in once with:\n",
		filepath.Join(configDir, config.DefaultEnvFile+".example"), filepath.Join(configDir, config.DefaultEnvFile))
	fmt.Printf("  python3 %s --api-id ID --api-hash HASH --session-dir %s --login\n",
		filepath.Join(configDir, collector.FileName), filepath.Join(configDir, config.DefaultSessionDir))
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# onionpan configuration

telegram:
  api_id_env: TELEGRAM_API_ID
  api_hash_env: TELEGRAM_API_HASH
  channel: toronionlinks
  # session_dir and script default to this directory
  python_path: python3

fetch:
  limit: 100
  max_retries: 3
  max_wait: 5m
  request_timeout: 2m

output:
  path: onion_links.json

checkpoint:
  path: last_message_id.txt

log:
  level: info
`

const exampleEnv = `# Telegram API credentials from https://my.telegram.org
TELEGRAM_API_ID=
TELEGRAM_API_HASH=
`
