package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// pollInterval is how often ask checks processing progress.
var pollInterval = 500 * time.Millisecond

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from local documents",
	Long: `Load documents into a temporary session, wait for processing and
answer one question from them. The session is discarded afterwards.

Example:
  ragdesk ask --file handbook.pdf --file faq.txt --question "How many leave days do I get?"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceP("file", "f", nil, "document to load (repeatable)")
	askCmd.Flags().StringP("question", "q", "", "question to answer")
	askCmd.Flags().Duration("timeout", 2*time.Minute, "maximum time to wait for processing")
	_ = askCmd.MarkFlagRequired("file")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	paths, err := cmd.Flags().GetStringSlice("file")
	if err != nil {
		return fmt.Errorf("getting file flag: %w", err)
	}
	question, err := cmd.Flags().GetString("question")
	if err != nil {
		return fmt.Errorf("getting question flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return fmt.Errorf("getting timeout flag: %w", err)
	}
	if strings.TrimSpace(question) == "" {
		return domain.ErrEmptyMessage
	}

	ctx := cmd.Context()
	_, release, err := ensureRuntime(ctx)
	if err != nil {
		return err
	}
	defer release()
	if uploadService == nil {
		return errors.New("upload service not configured")
	}

	sess, err := assistantService.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if _, err := assistantService.Reset(context.WithoutCancel(ctx), sess.ID); err != nil {
			logger.Warn("Failed to discard session %s: %v", sess.ID, err)
		}
	}()

	files, closeFiles, err := openFiles(paths)
	if err != nil {
		return err
	}
	saved, err := uploadService.Save(sess.ID, files)
	closeFiles()
	if err != nil {
		return err
	}
	if _, err := assistantService.Upload(ctx, sess.ID, domain.UploadedPaths(saved)); err != nil {
		uploadService.Discard(saved)
		return err
	}

	cmd.PrintErrf("Processing %d document(s)...\n", len(saved))
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := waitReady(waitCtx, sess.ID); err != nil {
		return err
	}

	resp, err := assistantService.Chat(ctx, sess.ID, question)
	if err != nil {
		return err
	}

	cmd.Println(resp.Response)
	if len(resp.Sources) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
	}
	cmd.Printf("Confidence: %.2f\n", resp.Confidence)
	if resp.SecurityFlag {
		cmd.Println("This query was flagged by the security filter.")
	}
	return nil
}

// openFiles opens paths for upload; the returned func closes them.
func openFiles(paths []string) ([]domain.IncomingFile, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]domain.IncomingFile, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, domain.IncomingFile{Name: filepath.Base(path), Size: info.Size(), Content: f})
	}
	return files, closeAll, nil
}

// waitReady polls the session until processing finishes.
func waitReady(ctx context.Context, sessionID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		report := assistantService.Status(ctx, sessionID)
		switch report.Status {
		case domain.SessionReady:
			return nil
		case domain.SessionError:
			return fmt.Errorf("processing failed: %s", report.Error)
		case domain.SessionIdle:
			return fmt.Errorf("processing did not start for session %s", sessionID)
		}
		logger.Debug("Session %s: %d%%", sessionID, report.Progress)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for documents: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
