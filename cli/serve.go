package cli

import (
	"github.com/spf13/cobra"

	"productmatcher/logging"
	"productmatcher/pipeline"
	"productmatcher/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /health and /match over HTTP",
	Long: `Start the HTTP server. The embedding model loads in the background;
until it is ready /match answers 503 and /health reports ai_ready=false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	matcher, cleanup, err := newMatcher(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	e := newEngine(cfg)
	e.Start(ctx)
	defer func() {
		if err := e.Close(); err != nil {
			logging.LogWarning("Error releasing model: %v", err)
		}
	}()

	srv := server.New(pipeline.New(nil, e, matcher), e, server.Options{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
