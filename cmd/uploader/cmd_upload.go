package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/statusboard"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more images and wait for their tags",
		Long: `Upload each file with its own workflow: request a write credential, PUT the
bytes to object storage, check for a duplicate and poll for tags.

All files run concurrently. Ctrl+C cancels every upload that is still running.
The command exits non-zero when any upload failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().Int("max-attempts", upload.DefaultMaxAttempts, "Tag poll attempts before giving up")
	cmd.Flags().Duration("interval", upload.DefaultPollInterval, "Fixed delay between tag poll attempts")
	cmd.Flags().String("transfer-mode", "", "Transfer mode: stream or blob (default from TRANSFER_MODE)")
	cmd.Flags().String("content-type", "", "Content type to declare instead of sniffing the file")
	cmd.Flags().String("name", "", "Object filename to use instead of the file's base name (single file only)")
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if err := applyUploadFlags(cmd, cfg); err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	contentType, _ := cmd.Flags().GetString("content-type")
	requests, err := buildRequests(args, name, contentType)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	deps, err := newUploadDeps(cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	noColor, _ := cmd.Flags().GetBool("no-color")
	terminal := statusboard.NewTerminal(cmd.OutOrStdout(), noColor)
	board := statusboard.NewBoard()

	orchestrators := make([]*upload.Orchestrator, len(requests))
	for i, req := range requests {
		orch, err := upload.NewOrchestrator(
			upload.Config{KeyPrefix: cfg.S3KeyPrefix, Poll: cfg.Poll()},
			upload.Dependencies{
				Issuer:   deps.issuer,
				Transfer: deps.transfer,
				Oracle:   deps.oracle,
				Sink:     deps.sink(terminal.For(req.Filename), board),
				Clock:    deps.clock,
			},
			log,
		)
		if err != nil {
			return err
		}
		orchestrators[i] = orch
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finished := make(chan struct{})
	go func() {
		select {
		case <-sigCtx.Done():
			log.Warn().Msg("interrupt received, cancelling uploads")
			for _, orch := range orchestrators {
				orch.Cancel()
			}
		case <-finished:
		}
	}()

	// Workflows run on a context that survives the signal; Cancel drives their teardown.
	runCtx := context.WithoutCancel(ctx)
	results := make([]upload.Result, len(requests))
	var g errgroup.Group
	for i := range requests {
		i := i
		g.Go(func() error {
			res, err := orchestrators[i].Run(runCtx, requests[i])
			if err != nil {
				log.Debug().Err(err).Str("file", requests[i].Filename).Msg("upload ended")
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	close(finished)

	if len(results) > 1 {
		printSummary(cmd, requests, results, board)
	}
	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func applyUploadFlags(cmd *cobra.Command, cfg *config.ClientConfig) error {
	flags := cmd.Flags()
	if flags.Changed("max-attempts") {
		cfg.PollMaxAttempts, _ = flags.GetInt("max-attempts")
	}
	if flags.Changed("interval") {
		cfg.PollInterval, _ = flags.GetDuration("interval")
	}
	if flags.Changed("transfer-mode") {
		cfg.TransferMode, _ = flags.GetString("transfer-mode")
	}
	return cfg.Validate()
}

// buildRequests turns file paths into upload requests. Filenames must be unique in a batch
// because each one maps to a single storage key.
func buildRequests(paths []string, name, contentType string) ([]*upload.Request, error) {
	if name != "" && len(paths) != 1 {
		return nil, fmt.Errorf("--name can only be used with a single file")
	}
	seen := make(map[string]string, len(paths))
	requests := make([]*upload.Request, 0, len(paths))
	for _, path := range paths {
		content, err := upload.NewFileContent(path)
		if err != nil {
			return nil, err
		}
		filename := filepath.Base(path)
		if name != "" {
			filename = name
		}
		if prev, ok := seen[filename]; ok {
			return nil, fmt.Errorf("%s and %s would both upload as %q", prev, path, filename)
		}
		seen[filename] = path
		requests = append(requests, &upload.Request{
			Content:  content,
			Filename: filename,
			MimeType: contentType,
		})
	}
	return requests, nil
}

func countFailed(results []upload.Result) int {
	failed := 0
	for _, res := range results {
		if res.State == upload.StateFailed {
			failed++
		}
	}
	return failed
}

func printSummary(cmd *cobra.Command, requests []*upload.Request, results []upload.Result, board *statusboard.Board) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	for i, res := range results {
		message := ""
		if status, ok := board.Latest(res.UploadID); ok {
			message = status.Message
		}
		fmt.Fprintf(out, "  %-30s %-18s %s\n", requests[i].Filename, res.State, message)
	}
}
