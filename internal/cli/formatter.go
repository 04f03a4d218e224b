package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/diskscope/internal/diskusage"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs the scan result in JSON format.
func PrintJSON(result *diskusage.Result, writer io.Writer) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs the scan result as a human-readable table, in the order of result.Items.
//
//nolint:forbidigo // This function prints output to the console.
func PrintTable(result *diskusage.Result, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	var files, dirs int

	if len(result.Items) == 0 {
		fmt.Fprintln(w, "\nNo files or directories reached the size limit.")
	} else {
		fmt.Fprintln(w, "\nTYPE\tSIZE\tMODIFIED\tPATH")

		for _, item := range result.Items {
			kind := "dir"
			if item.IsFile {
				kind = "file"
				files++
			} else {
				dirs++
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, item.SizeStr, humanize.Time(item.ModifiedDate), item.Path)
		}
	}

	// Stats summary
	fmt.Fprintln(w, "\nStats:\t\t")
	fmt.Fprintf(w, "Root:\t%s\n", result.Root)
	fmt.Fprintf(w, "Entries scanned:\t%s\n", humanize.Comma(int64(result.Entries)))
	fmt.Fprintf(w, "Reported:\t%d files, %d directories\n", files, dirs)

	fmt.Fprintf(w, "\nElapsed:\t%v\n", result.Elapsed)

	return w.Flush()
}
