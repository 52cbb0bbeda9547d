// ABOUTME: Listing commands for stations and presets
// ABOUTME: Prints the configured stations, compressor presets and visualizer presets
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Resonate-Protocol/radiodeck/internal/config"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/spf13/cobra"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List configured stations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return printStations(cmd.OutOrStdout(), settings)
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List compressor and visualizer presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return printPresets(cmd.OutOrStdout(), settings)
	},
}

func printStations(out io.Writer, settings *config.Config) error {
	if len(settings.Stations) == 0 {
		_, err := fmt.Fprintln(out, "No stations configured")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tURL")
	for i, st := range settings.Stations {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, st.Name, st.URL)
	}
	return w.Flush()
}

func printPresets(out io.Writer, settings *config.Config) error {
	store, err := settings.PresetStore()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPRESSOR\tTHRESHOLD\tKNEE\tRATIO\tATTACK\tRELEASE\t")
	for _, name := range store.Names() {
		p, err := store.Get(name)
		if err != nil {
			return err
		}
		marker := ""
		if strings.EqualFold(name, settings.Compressor.Default) {
			marker = "(default)"
		}
		fmt.Fprintf(w, "%s\t%gdB\t%gdB\t%g:1\t%gs\t%gs\t%s\n",
			p.Name, p.Threshold, p.Knee, p.Ratio, p.Attack, p.Release, marker)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	lib := visualizer.DefaultLibrary()
	if settings.Visualizer.PresetFile != "" {
		lib, err = visualizer.LoadLibrary(settings.Visualizer.PresetFile)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VISUALIZER\tSTYLE\tPEAKS")
	for _, name := range lib.Names() {
		p, err := lib.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%t\n", p.Name, p.Style, p.Peaks)
	}
	return w.Flush()
}
