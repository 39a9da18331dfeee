package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ppiankov/onionpan/internal/checkpoint"
	"github.com/ppiankov/onionpan/internal/config"
	"github.com/ppiankov/onionpan/internal/discovery"
	"github.com/ppiankov/onionpan/internal/logger"
	"github.com/spf13/cobra"
)

// sessionFile is the Telethon session name used by the collector script.
const sessionFile = "onionpan.session"

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and dependencies",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config.yaml: %v", err)
		ok = false
	} else {
		printCheck(true, "config.yaml (channel @%s, limit %d)", strings.TrimPrefix(cfg.Telegram.Channel, "@"), cfg.Fetch.Limit)
	}

	python := config.DefaultPythonPath
	if cfg != nil {
		python = cfg.Telegram.PythonPath
	}

	// Python
	if _, err := exec.LookPath(python); err != nil {
		printCheck(false, "%s not found", python)
		ok = false
	} else {
		printCheck(true, "%s", python)

		// Telethon
		if err := exec.Command(python, "-c", "import telethon").Run(); err != nil {
			printCheck(false, "telethon not installed (pip install telethon)")
			ok = false
		} else {
			printCheck(true, "telethon")
		}
	}

	if cfg == nil {
		return errors.New("some checks failed")
	}

	// Collector script
	if info, err := os.Stat(cfg.Telegram.Script); err != nil {
		printCheck(false, "collector script: %v (run onionpan init)", err)
		ok = false
	} else if info.IsDir() {
		printCheck(false, "collector script: %s is a directory", cfg.Telegram.Script)
		ok = false
	} else {
		printCheck(true, "collector script %s", cfg.Telegram.Script)
	}

	// Telegram session
	if _, err := os.Stat(filepath.Join(cfg.Telegram.SessionDir, sessionFile)); err != nil {
		printCheck(false, "telegram session (run the collector script with --login first)")
		ok = false
	} else {
		printCheck(true, "telegram session")
	}

	// Checkpoint and output are informational; both are created on first run.
	log := logger.NewNop()
	if id, found := checkpoint.NewFile(cfg.Checkpoint.Path, log).Load(); found {
		printInfo("checkpoint %s at message %d", cfg.Checkpoint.Path, id)
	} else {
		printInfo("no checkpoint at %s, next run fetches the latest %d messages", cfg.Checkpoint.Path, cfg.Fetch.Limit)
	}
	if records, err := discovery.ReadLogFile(cfg.Output.Path); err != nil {
		printCheck(false, "output %s: %v", cfg.Output.Path, err)
		ok = false
	} else {
		printInfo("output %s has %d records", cfg.Output.Path, len(records))
	}

	if !ok {
		return errors.New("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
