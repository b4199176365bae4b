package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/born-ml/storagebridge/internal/serialization"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	metaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
)

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(out)
	verify := fs.Bool("verify", false, "verify the data checksum")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect needs one file: %w", errUsage)
	}

	r, err := serialization.NewMmapReader(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	header := r.Header()
	fmt.Fprintln(out, titleStyle.Render(fs.Arg(0)))
	fmt.Fprintf(out, "%s %d  %s %s  %s %d bytes\n",
		metaStyle.Render("version"), r.Version(),
		metaStyle.Render("producer"), header.Producer,
		metaStyle.Render("data"), r.DataSize())

	if len(header.Metadata) > 0 {
		keys := make([]string, 0, len(header.Metadata))
		for k := range header.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s = %s\n", metaStyle.Render(k), header.Metadata[k])
		}
	}

	width := 0
	for _, name := range r.Names() {
		width = max(width, len(name))
	}
	for _, name := range r.Names() {
		info, err := r.Info(name)
		if err != nil {
			return err
		}
		pad := strings.Repeat(" ", width-len(name))
		fmt.Fprintf(out, "  %s%s  %-6s offset=%-10d size=%d\n",
			nameStyle.Render(name), pad, info.Device, info.Offset, info.Size)
	}

	if *verify {
		if err := r.VerifyChecksum(); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("checksum ok"))
	}
	return nil
}
