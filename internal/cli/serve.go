package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commitward/commitward/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the commit analysis pipeline.

Endpoints:
  GET  /health        Health check
  POST /api/check     Full pipeline run: classify, scan, evaluate rules
  POST /api/classify  Classify a diff into type/scope/breaking
  POST /api/scan      Secret scan only`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6143, "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	p, _ := buildPipeline(cfg)

	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, p)
	return srv.ListenAndServe()
}
