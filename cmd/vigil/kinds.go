package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vigil-go/internal/registry"
	memorystor "vigil-go/internal/store/memory"
)

func newKindsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the trigger and notifier kinds this configuration registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Highlights only need a store to register; no data is written.
			triggers, notifiers, err := buildRegistries(ctx, a.cfg, memorystor.NewHighlightStore(), a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printKinds(out, "Triggers", triggers.Describe(), triggers.Rejected())
			printKinds(out, "Notifiers", notifiers.Describe(), notifiers.Rejected())
			return nil
		},
	}
}

func printKinds(w io.Writer, title string, kinds []registry.Descriptor, rejected []registry.Rejection) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, d := range kinds {
		fields := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			name := f.Name
			if f.Required {
				name += "*"
			}
			fields = append(fields, name)
		}
		fmt.Fprintf(w, "  %-10s %-10s %s\n", d.Kind, d.Name, strings.Join(fields, ", "))
	}
	for _, r := range rejected {
		fmt.Fprintf(w, "  %-10s rejected: %s\n", r.Kind, r.Reason)
	}
}
