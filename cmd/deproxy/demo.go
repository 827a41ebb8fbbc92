package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"go_deproxy/app/deproxy_app"

	"github.com/spf13/cobra"
)

var (
	demoHost string
	demoPort int
	demoHAR  bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Send two sample requests through two local endpoints and print the message chains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := initializeDeproxy(cfg)
		if err != nil {
			return err
		}
		defer shutdown(d)

		chains, err := deproxy_app.RunDemo(cmd.Context(), d, deproxy_app.DemoOptions{
			FirstAddress:  net.JoinHostPort(demoHost, strconv.Itoa(demoPort)),
			SecondAddress: net.JoinHostPort(demoHost, strconv.Itoa(demoPort+1)),
		}, os.Stdout)
		if err != nil {
			return err
		}

		if demoHAR {
			for _, chain := range chains {
				if err := deproxy_app.WriteHAR(os.Stdout, chain); err != nil {
					return fmt.Errorf("export har: %w", err)
				}
			}
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoHost, "host", "localhost", "Host the demo endpoints bind to")
	demoCmd.Flags().IntVar(&demoPort, "port", 8081, "Port of the first endpoint; the second uses port+1")
	demoCmd.Flags().BoolVar(&demoHAR, "har", false, "Also print each chain as HAR JSON")
	rootCmd.AddCommand(demoCmd)
}
