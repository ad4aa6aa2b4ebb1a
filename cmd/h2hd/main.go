// Command h2hd is the H2H daemon: it logs in one user, wires the DHT
// overlay, profile manager, location registry, and operations pipelines
// together, and serves them over a local control API for h2hc.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hive2hive/h2h/build"
)

var config Config

func startDaemon() error {
	if err := os.MkdirAll(config.DataDir, 0700); err != nil {
		return err
	}

	srv, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("couldn't start daemon: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		srv.log.Println("caught stop signal, shutting down")
		srv.Close()
	}()

	fmt.Printf("h2hd v%s listening on %s (peer port %s)\n", build.Version, config.APIAddr, config.RPCAddr)
	return srv.Serve()
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "H2H daemon v" + build.Version,
		Long:  "H2H daemon v" + build.Version,
		Run: func(cmd *cobra.Command, args []string) {
			if err := startDaemon(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	root.Flags().StringVarP(&config.APIAddr, "api-addr", "a", "localhost:9980", "address the control API listens on")
	root.Flags().StringVarP(&config.RPCAddr, "rpc-addr", "r", ":9981", "address peers reach this node's direct-message transport on")
	root.Flags().StringVar(&config.RequiredUserAgent, "agent", "H2H-Agent", "required User-Agent header on API requests")
	root.Flags().StringVar(&config.APIPassword, "api-password", "", "HTTP basic auth password required on mutating API routes")
	root.Flags().StringVarP(&config.DataDir, "data-dir", "d", defaultDataDir(), "directory for the daemon's log and local DHT store")
	root.Flags().StringVar(&config.UserID, "user-id", "", "the account's user id")
	root.Flags().StringVar(&config.Password, "password", "", "the account's password")
	root.Flags().StringVar(&config.Pin, "pin", "", "the account's pin")

	if err := root.Execute(); err != nil {
		os.Exit(64)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".h2hd"
	}
	return filepath.Join(home, ".h2hd")
}
