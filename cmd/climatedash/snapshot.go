package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
)

type snapshotFlags struct {
	url      string
	out      string
	width    int
	height   int
	selector string
	settle   time.Duration
	timeout  time.Duration
}

var snapshotOpts snapshotFlags

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a PNG of a running dashboard",
	Long: `Open the dashboard in headless Chrome, wait for the charts to render and
save a full-page screenshot. Chrome or Chromium must be installed.`,
	RunE: runSnapshot,
}

func init() {
	f := snapshotCmd.Flags()
	f.StringVar(&snapshotOpts.url, "url", "http://127.0.0.1:8050/", "dashboard URL")
	f.StringVarP(&snapshotOpts.out, "out", "o", "dashboard.png", "output PNG file")
	f.IntVar(&snapshotOpts.width, "width", 1400, "viewport width")
	f.IntVar(&snapshotOpts.height, "height", 1800, "viewport height")
	f.StringVar(&snapshotOpts.selector, "wait-for", "#forecast-plot", "element that must be visible before the capture")
	f.DurationVar(&snapshotOpts.settle, "settle", 2*time.Second, "extra wait for the charts to load")
	f.DurationVar(&snapshotOpts.timeout, "timeout", 60*time.Second, "overall timeout")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(snapshotOpts.width, snapshotOpts.height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(cmd.Context(), opts...)
	defer cancelAlloc()

	ctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	ctx, cancel := context.WithTimeout(ctx, snapshotOpts.timeout)
	defer cancel()

	var png []byte
	start := time.Now()
	if err := chromedp.Run(ctx, captureDashboard(snapshotOpts, &png)); err != nil {
		return fmt.Errorf("failed to capture %s: %w", snapshotOpts.url, err)
	}
	if err := os.WriteFile(snapshotOpts.out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", snapshotOpts.out, err)
	}

	logger.Info("snapshot saved",
		"url", snapshotOpts.url,
		"file", snapshotOpts.out,
		"bytes", len(png),
		"duration", time.Since(start))
	fmt.Fprintln(cmd.OutOrStdout(), snapshotOpts.out)
	return nil
}

func captureDashboard(f snapshotFlags, png *[]byte) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate(f.url),
		chromedp.WaitVisible(f.selector, chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.FullScreenshot(png, 90),
	}
}
