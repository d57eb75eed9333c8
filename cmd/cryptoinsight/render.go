package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/application/views"
	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/market"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	signalStyles = map[signal.Signal]lipgloss.Style{
		signal.StrongBuy:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		signal.Buy:        lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399")),
		signal.Hold:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		signal.Sell:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
		signal.StrongSell: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
	}
)

const signalWidth = 12

// outputOptions selects table or JSON output
type outputOptions struct {
	json bool
}

func addOutputFlags(fs *pflag.FlagSet, o *outputOptions) {
	fs.BoolVar(&o.json, "json", false, "Print JSON even on a terminal")
}

// useJSON is true when forced or when w is not a terminal
func (o outputOptions) useJSON(w io.Writer) bool {
	if o.json {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}

type tableRow struct {
	Rank int `json:"rank"`
	market.Enriched
}

// passOutput is the JSON document printed by score
type passOutput struct {
	RunID       string           `json:"run_id"`
	CompletedAt time.Time        `json:"completed_at"`
	Source      string           `json:"source"`
	Sentiment   market.Sentiment `json:"sentiment"`
	View        views.View       `json:"view"`
	Count       int              `json:"count"`
	Assets      []tableRow       `json:"assets"`
	Skipped     []pipeline.Skip  `json:"skipped,omitempty"`
}

func writePass(w io.Writer, o outputOptions, pass *pipeline.Result, rows []tableRow, view views.View) error {
	if o.useJSON(w) {
		return writeJSON(w, passOutput{
			RunID:       pass.RunID,
			CompletedAt: pass.CompletedAt,
			Source:      pass.Source,
			Sentiment:   pass.Sentiment,
			View:        view,
			Count:       len(rows),
			Assets:      rows,
			Skipped:     pass.Skipped,
		})
	}
	return renderTable(w, pass, rows, view)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, pass *pipeline.Result, rows []tableRow, view views.View) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  run %s", appName, shortID(pass.RunID))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("source %s  view %s  sentiment %d (%s)  scored %d  skipped %d",
		pass.Source, view, pass.Sentiment.Value, pass.Sentiment.Classification, len(pass.Assets), len(pass.Skipped))))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-8s %14s %8s  %-*s %5s %6s  %-*s %8s %6s",
		"#", "SYMBOL", "PRICE", "24H %", signalWidth, "TECHNICAL", "STR", "FUND", signalWidth, "FUND SIG", "COMBINED", "RSI")))
	b.WriteString("\n")

	for _, r := range rows {
		fmt.Fprintf(&b, "%-4d %-8s %14s %+7.2f%%  %s %5.2f %6.1f  %s %8.1f %6.1f\n",
			r.Rank,
			strings.ToUpper(r.Symbol),
			formatPrice(r.CurrentPrice),
			r.Change24h(),
			styleSignal(r.TechnicalSignal.Signal),
			r.TechnicalSignal.Strength,
			r.FundamentalScore,
			styleSignal(r.FundamentalSignal),
			r.CombinedScore,
			r.Indicators.RSI,
		)
	}

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("no assets match"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func styleSignal(s signal.Signal) string {
	style, ok := signalStyles[s]
	if !ok {
		style = lipgloss.NewStyle()
	}
	return style.Width(signalWidth).Render(string(s))
}

// formatPrice keeps significant digits for sub-dollar assets
func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return fmt.Sprintf("$%.2f", p)
	case p >= 0.01:
		return fmt.Sprintf("$%.4f", p)
	default:
		return fmt.Sprintf("$%.8f", p)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// indicatorsOutput is the JSON document printed by indicators
type indicatorsOutput struct {
	Points     int              `json:"points"`
	Estimator  string           `json:"estimator"`
	Indicators indicators.Set   `json:"indicators"`
	Technical  signal.Technical `json:"technicalSignal"`
	Votes      signal.Votes     `json:"votes"`
}

func writeIndicators(w io.Writer, o outputOptions, out indicatorsOutput) error {
	if o.useJSON(w) {
		return writeJSON(w, out)
	}

	set := out.Indicators
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Indicators over %d points (%s)", out.Points, out.Estimator)))
	b.WriteString("\n\n")

	lines := [][2]string{
		{"RSI(14)", fmt.Sprintf("%.2f", set.RSI)},
		{"MACD", fmt.Sprintf("line %.4f  signal %.4f  hist %.4f  %s", set.MACD.Line, set.MACD.Signal, set.MACD.Histogram, set.MACD.Trend)},
		{"Stochastic", fmt.Sprintf("%%K %.2f  %%D %.2f", set.Stochastic.K, set.Stochastic.D)},
		{"Bollinger", fmt.Sprintf("upper %.4f  middle %.4f  lower %.4f  %%B %.2f", set.BollingerBands.Upper, set.BollingerBands.Middle, set.BollingerBands.Lower, set.BollingerBands.PercentB)},
		{"Williams %R", fmt.Sprintf("%.2f", set.WilliamsR)},
		{"EMA(20)", fmt.Sprintf("%.4f", set.EMA20)},
		{"SMA(50)", fmt.Sprintf("%.4f", set.SMA50)},
		{"ATR(14)", fmt.Sprintf("%.4f", set.ATR)},
		{"ADX(14)", fmt.Sprintf("%.2f", set.ADX)},
		{"CCI(20)", fmt.Sprintf("%.2f", set.CCI)},
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-12s", l[0])), l[1])
	}

	fmt.Fprintf(&b, "\n%s %s strength %.2f (buy %d / sell %d of %d)\n",
		headerStyle.Render(fmt.Sprintf("%-12s", "Signal")),
		styleSignal(out.Technical.Signal),
		out.Technical.Strength,
		out.Votes.Buy, out.Votes.Sell, out.Votes.Total)

	_, err := io.WriteString(w, b.String())
	return err
}
