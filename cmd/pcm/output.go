package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/ui"
)

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// printList writes the saved configurations, most recent last, one per row.
func printList(w io.Writer, view management.ListView) error {
	if jsonOutput {
		printJSON(w, view)
		return nil
	}
	if len(view.Configurations) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("no saved configurations"))
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tSAVED\tID")
	for i, c := range view.Configurations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i,
			ui.RenderAccent(c.Name),
			c.Time.Local().Format("2006-01-02 15:04:05"),
			ui.RenderMuted(c.ID),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nexport enabled: %s\n", ui.RenderBool(view.ExportEnabled))
	return nil
}

func printArtifact(w io.Writer, art management.Artifact) {
	if jsonOutput {
		printJSON(w, art)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.RenderSuccess("exported"), art.Location)
}
