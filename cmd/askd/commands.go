package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryumin/askd/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question",
	Long: `Ask a question against the running server.

The server answers from the cache when a similar question was stored
before, and falls back to corpus-grounded generation otherwise. Use
--llm to skip the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		skipCache, _ := cmd.Flags().GetBool("llm")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		endpoint := "/ask"
		if skipCache {
			endpoint = "/ask-llm"
		}
		path := endpoint + "?question=" + url.QueryEscape(question)

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var env envelope
		if err := decodeJSON(resp, &env); err != nil {
			return err
		}

		switch v := env.Response.(type) {
		case string:
			fmt.Println(v)
		case []any:
			for _, answer := range v {
				fmt.Println(answer)
			}
		case bool:
			if !v {
				printWarning("No answer available")
			}
		default:
			return fmt.Errorf("unexpected response shape: %T", env.Response)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("llm", false, "skip the answer cache and always generate")
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the answer cache",
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <question> <answer>",
	Short: "Store a question/answer pair in the cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		question, answer := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/set-cache", map[string]string{question: answer})
		if err != nil {
			return err
		}

		var env envelope
		if err := decodeJSON(resp, &env); err != nil {
			return err
		}
		if ok, _ := env.Response.(bool); !ok {
			return fmt.Errorf("server did not store the answer")
		}

		printSuccess("Cached answer for %q", question)
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached question/answer pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/admin/cache")
		if err != nil {
			return err
		}

		var entries []struct {
			ID       string `json:"id"`
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("Cache is empty.")
			return nil
		}

		for _, e := range entries {
			answer := e.Answer
			if len(answer) > 80 {
				answer = answer[:80] + "..."
			}
			fmt.Printf("%s  %s\n", colorize(ansiBold, e.Question), answer)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheSetCmd)
	cacheCmd.AddCommand(cacheListCmd)
}

// --- reindex ---

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-read the corpus directory and rebuild the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Reindexing corpus...")
		resp, err := client.post(cmd.Context(), "/admin/reindex", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Corpus reindexed")
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show a single configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		value, err := config.GetKey(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configInitPromptsCmd = &cobra.Command{
	Use:   "init-prompts",
	Short: "Write the built-in prompt templates to the configured path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if _, err := os.Stat(cfg.Prompts.Path); err == nil {
			printWarning("Prompts file already exists at %s; not overwriting", cfg.Prompts.Path)
			return nil
		}

		if err := config.WritePrompts(cfg.Prompts.Path, config.DefaultPrompts()); err != nil {
			return err
		}
		printSuccess("Wrote prompt templates to %s", cfg.Prompts.Path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitPromptsCmd)
}
