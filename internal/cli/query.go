package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/service"
	"docrag/internal/tui"
)

type queryResult struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		topK        int
		filter      domain.Filter
		asJSON      bool
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "query [question...]",
		Short: "Show the chunks the index returns for each question",
		Long: `Embeds each question and prints the top matches with page, similarity,
chunk index and a short preview. Flags narrow results by source, page or
doc id on top of query.filter from the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !interactive {
				return errors.New("no question given; pass one or more questions or use --interactive")
			}
			f := a.cfg.Query.Filter
			if cmd.Flags().Changed("source") {
				f.Source = filter.Source
			}
			if cmd.Flags().Changed("doc-id") {
				f.DocID = filter.DocID
			}
			if cmd.Flags().Changed("page") {
				f.Page = filter.Page
			}
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Query.TopK
			}

			ctx := cmd.Context()
			emb, index, release, err := a.openBackends(ctx)
			if err != nil {
				return err
			}
			defer release()
			probe := service.NewProbe(emb, index, a.cfg.Query.TopK, a.log.Named("query"))

			if interactive {
				m := tui.New(ctx, probe, topK, f, describeFilter(f))
				_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				return err
			}

			all := make([]queryResult, 0, len(args))
			for _, q := range args {
				res, err := probe.Query(ctx, q, topK, f)
				if err != nil {
					return fmt.Errorf("query %q: %w", q, err)
				}
				all = append(all, queryResult{Query: q, Results: res})
			}
			if asJSON {
				data, err := json.MarshalIndent(all, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			for _, qr := range all {
				printQueryResult(cmd, qr)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", service.DefaultTopK, "results per question")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only match chunks from this source")
	cmd.Flags().StringVar(&filter.DocID, "doc-id", "", "only match chunks of this doc id")
	cmd.Flags().IntVar(&filter.Page, "page", 0, "only match chunks from this page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open the interactive probe")
	return cmd
}

func printQueryResult(cmd *cobra.Command, qr queryResult) {
	cmd.Println()
	cmd.Println(strings.Repeat("=", 90))
	cmd.Printf("QUERY: %s\n", qr.Query)
	if len(qr.Results) == 0 {
		cmd.Println("  (no matches)")
		return
	}
	for i, r := range qr.Results {
		cmd.Println(service.FormatResult(i+1, r))
	}
}

func describeFilter(f domain.Filter) string {
	var parts []string
	if f.DocID != "" {
		parts = append(parts, "doc_id="+f.DocID)
	}
	if f.Source != "" {
		parts = append(parts, "source="+f.Source)
	}
	if f.Page != 0 {
		parts = append(parts, fmt.Sprintf("page=%d", f.Page))
	}
	if len(parts) == 0 {
		return "all documents"
	}
	return strings.Join(parts, " ")
}
