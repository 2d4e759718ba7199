// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hostlink/pkg/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the controller over a JSON REST API",
	Long: `Open the connection and expose the controller over HTTP.

Endpoints:
  GET  /api/status                         Controller status
  POST /api/test                           TEST exchange, body {"data": "..."}
  GET  /api/read/{area}/{address}/{count}  Area read (ir, lr, hr, pv, tc, dm, ar)
  POST /api/send                           Raw command, body {"header": "MS", "params": ""}
  GET  /api/stats                          Exchange statistics
  POST /api/stats/reset                    Reset statistics

Exchanges are serialized; concurrent requests wait their turn on the line.

Examples:
  hostlink serve --port /dev/ttyUSB0 --listen 0.0.0.0:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from config, 127.0.0.1:8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	listen := cfg.Listen
	if serveListen != "" {
		listen = serveListen
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	dev, connInfo, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	server := api.NewServer(dev, listen)
	if err := server.Start(); err != nil {
		return err
	}

	fmt.Printf("Hostlink - API Server\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Node: %s\n", dev.Node())
	fmt.Printf("Listening: %s/api\n", server.Address())
	fmt.Printf("Press Ctrl+C to exit\n")

	logger.Info("api server started", "address", server.Address(), "node", dev.Node().String())

	<-ctx.Done()

	logger.Info("api server stopping")
	return server.Stop()
}
