package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in config.toml.

Environment variables override stored values: llm.model is read from
RAGDESK_LLM_MODEL. API keys also fall back to OPENAI_API_KEY,
WEAVIATE_API_KEY and REDIS_PASSWORD.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Long: `Store a setting in config.toml.

Values are typed automatically: true/false become booleans, numbers become
numbers and comma-separated values become lists. Use --string to store the
value verbatim.

Examples:
  ragdesk settings set llm.provider ollama
  ragdesk settings set llm.temperature 0.2
  ragdesk settings set vector_index.backend weaviate
  ragdesk settings set upload.allowed_extensions .txt,.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().Bool("string", false, "store the value as a string")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configured(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Printf("  Status: %s\n", configured(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", settings.VectorIndex.Backend)
	if settings.VectorIndex.Host != "" {
		cmd.Printf("  Host: %s://%s\n", settings.VectorIndex.Scheme, settings.VectorIndex.Host)
	}
	cmd.Printf("  Index: %s\n", settings.VectorIndex.IndexName)
	cmd.Printf("  Namespace: %s\n", settings.VectorIndex.Namespace)
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	if settings.Cache.Address != "" {
		cmd.Printf("  Address: %s\n", settings.Cache.Address)
	}
	cmd.Printf("  TTL: %s\n", settings.Cache.TTL)
	cmd.Println()

	cmd.Println("[Documents]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Chunking.Size, settings.Chunking.Overlap)
	cmd.Printf("  Allowed types: %s\n", strings.Join(settings.Upload.AllowedExtensions, " "))
	cmd.Printf("  Limits: %d files, %d bytes each, %d bytes total\n",
		settings.Upload.MaxFiles, settings.Upload.MaxFileSize, settings.Upload.MaxTotalSize)
	cmd.Println()

	cmd.Println("[Sessions]")
	cmd.Printf("  Expiry: %s\n", settings.Session.Expiry)
	cmd.Printf("  Workers: %d (queue %d)\n", settings.Session.Workers, settings.Session.QueueSize)
	cmd.Printf("  Passages per question: %d\n", settings.Session.RetrievalK)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ragdesk settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if _, err := loadSettings(); err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	asString, _ := cmd.Flags().GetBool("string")
	key := strings.TrimSpace(args[0])
	if key == "" {
		return errors.New("key is required")
	}

	var value any = args[1]
	if !asString {
		value = parseValue(args[1])
	}
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

// parseValue types a command-line value for storage.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return raw
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
