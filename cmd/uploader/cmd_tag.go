package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/oracle"
)

// tagTimeout bounds the one-shot tag query.
const tagTimeout = 30 * time.Second

type tagOutput struct {
	Result      string             `json:"result"`
	Tags        []upload.TagRecord `json:"tags"`
	OriginalKey string             `json:"originalKey,omitempty"`
}

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <filename>",
		Short: "Query the tags of an uploaded file once",
		Args:  cobra.ExactArgs(1),
		RunE:  runTag,
	}
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	return cmd
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	client, err := oracle.NewClient(cfg.TagAPIURL, cfg.HTTPTimeout, log)
	if err != nil {
		return upload.NewConfigurationError("Tag API URL is not configured correctly", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), tagTimeout)
	defer cancel()
	result := client.QueryTag(ctx, args[0])

	out := tagOutput{Result: result.Kind.String(), Tags: result.Tags, OriginalKey: result.OriginalKey}
	if out.Tags == nil {
		out.Tags = []upload.TagRecord{}
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], out.Result)
		if len(result.Tags) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "tags: %s\n", upload.FormatTags(result.Tags))
		}
		if result.OriginalKey != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "original: %s\n", result.OriginalKey)
		}
	}
	if result.IsUnavailable() {
		return fmt.Errorf("tag service did not answer for %s: %w", args[0], upload.ErrOracleUnavailable)
	}
	return nil
}
