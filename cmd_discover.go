// ABOUTME: One-shot LAN discovery command
// ABOUTME: Runs a single mDNS query and prints every stream server that answered
package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Resonate-Protocol/radiodeck/internal/discovery"
	"github.com/Resonate-Protocol/radiodeck/internal/logging"
	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"github.com/spf13/cobra"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find stream servers on the local network",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "How long to wait for answers")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(logging.Options{Level: settings.Log.Level, Console: true})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	timeout := settings.Discovery.Timeout
	if discoverTimeout > 0 {
		timeout = discoverTimeout
	}

	browser := discovery.NewBrowser(discovery.Config{
		Service: settings.Discovery.Service,
		Domain:  settings.Discovery.Domain,
		Timeout: timeout,
		Logger:  logger,
	})

	found, err := browser.Browse(cmd.Context())
	if err != nil {
		return err
	}
	return printDiscovered(cmd.OutOrStdout(), found)
}

func printDiscovered(out io.Writer, found []radio.Station) error {
	if len(found) == 0 {
		_, err := fmt.Fprintln(out, "No stream servers found")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL")
	for _, st := range found {
		fmt.Fprintf(w, "%s\t%s\n", st.Name, st.URL)
	}
	return w.Flush()
}
