package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rushteam/procurekit/core"
	"github.com/rushteam/procurekit/service"
)

var (
	queryLimit int
	queryJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Run a natural-language procurement query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.Facade.Ask(ctx, strings.Join(args, " "), queryLimit)
		if err != nil {
			return err
		}
		if ans.Extraction.Fallback {
			lg.Warn("using default parameters", "cause", ans.Extraction.Cause)
		}
		return render(cmd.OutOrStdout(), ans.Items, ans.Params)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <params.json | ->",
	Short: "Run a structured query from a JSON QueryParameters document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		params, err := readParams(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		if queryLimit != 0 {
			params.Limit = queryLimit
		}
		if params.Limit == 0 {
			params.Limit = core.DefaultLimit
		}

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.Facade.Search(ctx, params)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), items, params)
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, searchCmd} {
		c.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum number of results")
		c.Flags().BoolVar(&queryJSON, "json", false, "print results as JSON")
		rootCmd.AddCommand(c)
	}
}

func readParams(path string, stdin io.Reader) (*core.QueryParameters, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var params core.QueryParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, core.WrapError(core.ModuleQuery, core.ErrorCodeInvalidInput, "decode query parameters", err)
	}
	return &params, nil
}

func render(w io.Writer, items []*core.Item, params *core.QueryParameters) error {
	if queryJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"entries":  items,
			"metadata": map[string]any{"params": params, "summary": service.Summarize(items)},
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tNAME\tDEPARTMENT\tCOST\tMARGIN%\tTOP SPACES")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%.4f\t%v\t%v\t%v\t%v\t%s\n",
			it.ID, it.Score,
			field(it, core.FieldName), field(it, core.FieldDepartment),
			field(it, core.FieldCost), field(it, core.FieldProfitMargin),
			topSpaces(it.Features, 2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	sum := service.Summarize(items)
	_, err := fmt.Fprintf(w, "\n%d products, avg cost %.2f, avg margin %.1f%%\n", sum.Count, sum.AvgCost, sum.AvgProfitMargin)
	return err
}

func field(it *core.Item, name string) any {
	if v, ok := it.Meta[name]; ok {
		return v
	}
	return "-"
}

func topSpaces(contrib map[string]float64, n int) string {
	names := make([]string, 0, len(contrib))
	for k := range contrib {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if contrib[names[i]] != contrib[names[j]] {
			return contrib[names[i]] > contrib[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return strings.Join(names, ",")
}
