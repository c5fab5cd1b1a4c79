package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"famreg/pkg/data"
	"famreg/pkg/dataprep"
	"famreg/pkg/eval"
	"famreg/pkg/model"
	"famreg/pkg/pipeline"
	"famreg/pkg/stats"
)

// Digits is the number of significant digits in every table.
const Digits = 3

// FailedCell fills the metric cells of a model that did not fit.
const FailedCell = "—"

// AICFootnote qualifies cross-family likelihood comparisons.
const AICFootnote = "Note: AIC/BIC use each model's own likelihood. The Poisson likelihood is a discrete mass " +
	"while the Gamma and Weibull ones are continuous densities, so comparisons across families are indicative only."

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noteStyle   = lipgloss.NewStyle().Faint(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			s := cellStyle
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			return s
		}).
		Headers(headers...)
}

// ComparisonRows returns the comparison as string cells, model name first.
func ComparisonRows(c eval.Comparison) [][]string {
	rows := make([][]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		row := []string{r.Family.String()}
		for _, col := range c.Columns {
			v := r.Value(col)
			if r.Err != nil && math.IsNaN(v) {
				row = append(row, FailedCell)
				continue
			}
			row = append(row, Signif(v, Digits))
		}
		rows = append(rows, row)
	}
	return rows
}

// ComparisonTable renders the model comparison.
func ComparisonTable(c eval.Comparison) string {
	return newTable(append([]string{"Model"}, c.Columns...)...).
		Rows(ComparisonRows(c)...).
		String()
}

// CoefficientRows returns Term, Estimate, Std.Error, statistic and p-value cells.
func CoefficientRows(m *model.FittedModel) [][]string {
	rows := make([][]string, 0, len(m.Coefficients))
	for _, c := range m.Coefficients {
		if c.Aliased {
			rows = append(rows, []string{c.Term, NA, NA, NA, NA})
			continue
		}
		rows = append(rows, []string{
			c.Term,
			Signif(c.Estimate, Digits),
			Signif(c.StdError, Digits),
			Signif(c.Statistic, Digits),
			FormatPValue(c.PValue),
		})
	}
	return rows
}

// PValueHeader is Pr(>|z|) or Pr(>|t|) to match the statistic.
func PValueHeader(m *model.FittedModel) string {
	if m.Stats.StatisticName == "t value" {
		return "Pr(>|t|)"
	}
	return "Pr(>|z|)"
}

// CoefficientTable renders one model's coefficient table.
func CoefficientTable(m *model.FittedModel) string {
	return newTable("Term", "Estimate", "Std.Error", m.Stats.StatisticName, PValueHeader(m)).
		Rows(CoefficientRows(m)...).
		String()
}

func fitLine(m *model.FittedModel) string {
	s := m.Stats
	line := fmt.Sprintf("n = %d, residual df = %d, log-likelihood = %s, iterations = %d",
		s.NObs, s.DFResidual, Signif(s.LogLik, Digits), s.Iterations)
	switch m.Family {
	case model.Gamma:
		line += ", dispersion = " + Signif(s.Dispersion, Digits)
	case model.Weibull:
		line += ", scale = " + Signif(m.Scale, Digits)
	}
	return line
}

// CVTable renders cross-validated errors for the families that have them.
func CVTable(fams []pipeline.FamilyResult) (string, bool) {
	var rows [][]string
	for _, fr := range fams {
		if fr.CV == nil {
			continue
		}
		rows = append(rows, []string{
			fr.Family.String(),
			strconv.Itoa(fr.CV.Folds),
			Signif(fr.CV.RMSE, Digits),
			Signif(fr.CV.MAE, Digits),
		})
	}
	if len(rows) == 0 {
		return "", false
	}
	return newTable("Model", "Folds", "CV RMSE", "CV MAE").Rows(rows...).String(), true
}

// Render writes the full text report of a run.
func Render(w io.Writer, res *pipeline.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Family size model comparison"))
	fmt.Fprintf(&b, "run %s  |  %s  |  %d families", res.RunID, res.Schema.Formula(), res.Dataset.Len())
	if len(res.Dropped) > 0 {
		fmt.Fprintf(&b, "  |  %d rows dropped", len(res.Dropped))
	}
	b.WriteString("\n\n")

	b.WriteString(ComparisonTable(res.Comparison))
	b.WriteString("\n")
	for _, r := range res.Comparison.Rows {
		if r.Err != nil {
			fmt.Fprintf(&b, "%s\n", errStyle.Render(fmt.Sprintf("%s: %v", r.Family, r.Err)))
		}
	}
	fmt.Fprintf(&b, "%s\n", noteStyle.Render(AICFootnote))
	if best, ok := res.Comparison.Best(eval.ColAIC); ok {
		fmt.Fprintf(&b, "Lowest AIC: %s\n", best)
	}

	for _, fr := range res.Families {
		if fr.Err != nil || fr.Model == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(fr.Family.String()+" coefficients"))
		b.WriteString(CoefficientTable(fr.Model))
		fmt.Fprintf(&b, "\n%s\n", fitLine(fr.Model))
	}

	if cv, ok := CVTable(res.Families); ok {
		fmt.Fprintf(&b, "\n%s\n%s\n", titleStyle.Render("Cross-validation"), cv)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// SummaryTable describes every numeric column and the categorical levels
// of a derived Dataset.
func SummaryTable(ds *data.Dataset) string {
	var rows [][]string
	for _, name := range ds.Names() {
		x, _ := ds.Float(name)
		s := stats.Summarize(x)
		rows = append(rows, []string{
			name,
			strconv.Itoa(s.N),
			Signif(s.Mean, Digits),
			Signif(s.Std, Digits),
			Signif(s.Min, Digits),
			Signif(s.Median, Digits),
			Signif(s.Max, Digits),
			strconv.Itoa(s.Outliers),
		})
	}
	var b strings.Builder
	b.WriteString(newTable("Column", "N", "Mean", "Std", "Min", "Median", "Max", "Outliers").Rows(rows...).String())
	b.WriteString("\n")

	for _, name := range ds.LabelNames() {
		vals, _ := ds.Labels(name)
		levels, counts := dataprep.LevelCounts(vals)
		if name == data.ColAgeMarried {
			levels = orderedLevels(levels)
		}
		lrows := make([][]string, 0, len(levels))
		for _, l := range levels {
			lrows = append(lrows, []string{l, strconv.Itoa(counts[l])})
		}
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(name))
		b.WriteString(newTable("Level", "Count").Rows(lrows...).String())
		b.WriteString("\n")
	}
	return b.String()
}

// orderedLevels sorts ageMarried buckets by their natural order.
func orderedLevels(seen []string) []string {
	out := make([]string, 0, len(seen))
	for _, l := range dataprep.AgeMarriedLevels {
		for _, s := range seen {
			if s == l {
				out = append(out, l)
			}
		}
	}
	return out
}
