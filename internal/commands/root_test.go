package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ChenJellay/helix/internal/logging"
)

const validConfig = `{
  "hosts": [{"name": "local", "url": "http://127.0.0.1:11434", "type": "ollama"}],
  "model": "qwen2.5:7b",
  "embeddingModel": "nomic-embed-text"
}`

func resetFlag(name string) {
	flag := rootCmd.PersistentFlags().Lookup(name)
	if flag == nil {
		return
	}
	_ = flag.Value.Set(flag.DefValue)
	flag.Changed = false
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func usePreRunConfig(t *testing.T, content string) {
	t.Helper()
	configPath := writeTempConfig(t, content)
	prevCfgFile := cfgFile
	cfgFile = configPath
	viper.SetConfigFile(configPath)
	t.Cleanup(func() {
		cfgFile = prevCfgFile
		viper.SetConfigFile(prevCfgFile)
		for _, name := range []string{"debug", "model", "logFile"} {
			resetFlag(name)
		}
		_ = logging.Close()
	})
}

func TestRootCmdUnknownSubcommand(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)

	rootCmd.SetArgs([]string{"nonexistent"})
	_, err := rootCmd.ExecuteC()

	if err == nil {
		t.Error("Expected an error for a nonexistent command, but got none")
	}
	expected := `unknown command "nonexistent" for "helix"`
	if !strings.Contains(b.String(), expected) {
		t.Errorf("Expected output to contain %q, but got %q", expected, b.String())
	}
}

func TestPersistentPreRunELoadsAndValidates(t *testing.T) {
	usePreRunConfig(t, validConfig)
	logPath := filepath.Join(t.TempDir(), "helix.log")
	_ = rootCmd.PersistentFlags().Set("logFile", logPath)
	_ = rootCmd.PersistentFlags().Set("debug", "true")

	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil || cfg.ConfigPath != cfgFile {
		t.Fatalf("expected config loaded with path %s", cfgFile)
	}
	if !cfg.Debug {
		t.Fatalf("expected debug flag to flow into config: %+v", cfg)
	}
	if cfg.Model != "qwen2.5:7b" {
		t.Fatalf("expected model from config file, got %q", cfg.Model)
	}
	if cfg.LogFilePath() != logPath {
		t.Fatalf("expected logFile flag to win, got %q", cfg.LogFilePath())
	}
}

func TestPersistentPreRunEFlagOverridesModel(t *testing.T) {
	usePreRunConfig(t, validConfig)
	_ = rootCmd.PersistentFlags().Set("logFile", filepath.Join(t.TempDir(), "helix.log"))
	_ = rootCmd.PersistentFlags().Set("model", "llama3:8b")

	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}
	if got := GetConfig().Model; got != "llama3:8b" {
		t.Fatalf("expected flag model to override config, got %q", got)
	}
}

func TestPersistentPreRunERejectsInvalidConfig(t *testing.T) {
	usePreRunConfig(t, `{"hosts": [], "model": "m", "embeddingModel": "e"}`)

	err := rootCmd.PersistentPreRunE(rootCmd, []string{})
	if err == nil {
		t.Fatal("expected validation error for empty hosts")
	}
	if !strings.Contains(err.Error(), "at least one host") {
		t.Fatalf("unexpected error: %v", err)
	}
}
