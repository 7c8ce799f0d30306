package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/artifacts"
	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/publish"
	"newsreel/internal/stage"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Upload an existing video to YouTube",
		Long: `Upload a rendered video. The description is built from the daily report
(--report, or daily_report.md in the output directory when present).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			video := strings.TrimSpace(args[0])
			if !fileutil.Exists(video) {
				return fmt.Errorf("video not found: %s", video)
			}

			layout := artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir)
			path := strings.TrimSpace(reportPath)
			if path == "" {
				path = layout.ReportPath()
			}
			report, err := artifacts.LoadText(path)
			if err != nil && strings.TrimSpace(reportPath) != "" {
				return fmt.Errorf("load report: %w", err)
			}

			out, err := publish.NewPublisher(cfg, logger).Upload(cmd.Context(), video, report, "")
			if err != nil {
				return err
			}
			url, _ := out[stage.KeyVideoURL].(string)
			if url == "" {
				return errors.New("upload returned no video url")
			}
			title, _ := out[stage.KeyVideoTitle].(string)
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventVideoUploaded, notifications.Payload{
				"title": title,
				"url":   url,
			}); err != nil {
				logging.WarnWithContext(logger, "notification failed", "notification_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "upload not announced"),
				)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", url)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "Report used for the video description")
	return cmd
}
