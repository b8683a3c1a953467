package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ActionSummary is one row of `actionsctl list`.
type ActionSummary struct {
	Key       string   `json:"key"`
	Operation string   `json:"operation"`
	Params    []string `json:"params"`
	Auth      []string `json:"auth"`
	Channels  []string `json:"channels,omitempty"`
	RateLimit string   `json:"rateLimit,omitempty"`
}

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <catalog>",
		Short: "List the actions a catalogue declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args[0])
			if err != nil {
				return err
			}

			rows := make([]ActionSummary, 0, len(cat.Actions))
			for _, a := range cat.Actions {
				row := ActionSummary{Key: a.Key, Operation: a.Operation}
				for name, spec := range a.Params {
					p := name + ":" + string(spec.Type)
					if spec.Required {
						p += "!"
					}
					row.Params = append(row.Params, p)
				}
				sort.Strings(row.Params)
				for _, rule := range a.Auth {
					row.Auth = append(row.Auth, string(rule.Type))
				}
				if a.Notification != nil {
					for _, ch := range a.Notification.Channels {
						row.Channels = append(row.Channels, string(ch))
					}
				}
				if a.RateLimit != nil {
					row.RateLimit = fmt.Sprintf("%d/%s", a.RateLimit.Max, a.RateLimit.Window)
				}
				rows = append(rows, row)
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tOPERATION\tAUTH\tCHANNELS\tRATE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key, r.Operation,
					dash(strings.Join(r.Auth, ",")), dash(strings.Join(r.Channels, ",")), dash(r.RateLimit))
			}
			return tw.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
