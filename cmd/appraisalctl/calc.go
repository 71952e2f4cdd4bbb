package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yourorg/appraisal-api/internal/valuation"
	"golang.org/x/term"
)

func calcCmd() *cobra.Command {
	var (
		file     string
		approach string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Value a property from a scenario file",
		Long: `Run all three approaches against a YAML or JSON scenario holding the
subject, comparables, income and cost assumptions.

Examples:
  appraisalctl calc --file scenario.yaml
  appraisalctl calc --file scenario.json --approach income --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadScenario(file)
			if err != nil {
				return err
			}
			if approach != "" {
				in.Approach = valuation.Approach(approach)
			}
			out := cmd.OutOrStdout()
			return runCalc(out, appCfg.Valuation, in, asJSON, isTerminal(out))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (yaml or json)")
	cmd.Flags().StringVar(&approach, "approach", "", "selected approach (sales_comparison, income, cost)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func loadScenario(path string) (valuation.Input, error) {
	sv := viper.New()
	sv.SetConfigFile(path)
	if err := sv.ReadInConfig(); err != nil {
		return valuation.Input{}, fmt.Errorf("read scenario: %w", err)
	}
	var in valuation.Input
	if err := sv.Unmarshal(&in); err != nil {
		return valuation.Input{}, fmt.Errorf("decode scenario: %w", err)
	}
	return in, nil
}

func runCalc(w io.Writer, cfg valuation.Config, in valuation.Input, asJSON, styled bool) error {
	eng, err := valuation.NewEngine(cfg, valuation.WithClock(now))
	if err != nil {
		return err
	}
	res, err := eng.Evaluate(in)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprintln(w, renderResult(res, styled))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func renderResult(r valuation.Result, styled bool) string {
	rows := [][2]string{
		{"Sales comparison", estimateText(r.Comparable)},
		{"Income", estimateText(r.Income)},
		{"Cost", estimateText(r.Cost)},
		{"Range", money(r.Min) + " - " + money(r.Max)},
		{"Average", money(r.Average)},
		{"Selected", fmt.Sprintf("%s (%s)", money(r.Selected), r.Approach)},
	}

	if !styled {
		var b strings.Builder
		b.WriteString("Valuation\n")
		for _, row := range rows {
			fmt.Fprintf(&b, "  %-18s %s\n", row[0]+":", row[1])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label := lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("241"))
	value := lipgloss.NewStyle().Bold(true)

	lines := []string{header.Render("Valuation"), ""}
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(row[0]), value.Render(row[1])))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func estimateText(e valuation.Estimate) string {
	if !e.Computable {
		return "not computable"
	}
	return money(e.Value)
}

// money formats whole currency units as $1,234,567.
func money(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}
