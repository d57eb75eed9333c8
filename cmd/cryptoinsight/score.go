package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/application/views"
)

type scoreOptions struct {
	inputs  inputSpec
	onlyBuy bool
	view    string
	sort    string
	top     int
	source  string
	seed    int64
	record  bool
	output  outputOptions
}

// addInputFlags registers the universe and sentiment flags shared by score and serve
func addInputFlags(fs *pflag.FlagSet, in *inputSpec) {
	fs.StringVar(&in.assetsPath, "assets", "", "CoinGecko markets JSON file (default: demo universe)")
	fs.StringVar(&in.sentimentPath, "sentiment", "", "Fear & greed JSON file")
	fs.IntVar(&in.fng, "fng", 50, "Fear & greed value 0-100, overrides --sentiment")
}

func newScoreCmd(root *rootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run one scoring pass and print the table",
		Long: `Scores every asset in the universe once.

Output is a styled table on a terminal and JSON otherwise (or with --json).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.inputs.fngSet = cmd.Flags().Changed("fng")
			return runScore(cmd, root, opts)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, &opts.inputs)
	fs.BoolVar(&opts.onlyBuy, "only-buy", false, "Keep only BUY and STRONG_BUY verdicts")
	fs.StringVar(&opts.view, "view", string(views.ViewTechnical), "Verdict used by --only-buy (technical|fundamental)")
	fs.StringVar(&opts.sort, "sort", "", "Row order: combined, or input order when empty")
	fs.IntVar(&opts.top, "top", views.DefaultLimit, "Number of rows to print")
	fs.StringVar(&opts.source, "source", "", "Series source (synthetic|coingecko|snapshot), default from config")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed for the demo universe and synthetic series")
	fs.BoolVar(&opts.record, "record", false, "Write the pass to the scoring ledger")
	addOutputFlags(fs, &opts.output)

	return cmd
}

func runScore(cmd *cobra.Command, root *rootOptions, opts *scoreOptions) error {
	view, err := views.ParseView(opts.view)
	if err != nil {
		return err
	}
	if opts.sort != "" && opts.sort != "combined" {
		return fmt.Errorf("unknown sort %q", opts.sort)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(root.cfg, opts.seed)
	defer a.Close()

	scorer, err := a.scorer(ctx, opts.source, opts.record)
	if err != nil {
		return err
	}

	assets, sent, err := a.loadInputs(opts.inputs)
	if err != nil {
		return err
	}

	pass, err := scorer.Run(ctx, assets, sent)
	if err != nil {
		return err
	}

	if opts.record {
		if err := scorer.Record(ctx, pass); err != nil {
			return err
		}
	}

	list := shape(pass, view, opts.onlyBuy, opts.sort, opts.top)
	return writePass(cmd.OutOrStdout(), opts.output, pass, list, view)
}

// shape applies the filter, order and row limit of the table
func shape(pass *pipeline.Result, view views.View, onlyBuy bool, sortBy string, top int) []tableRow {
	list := pass.Assets
	if onlyBuy {
		list = views.OnlyBuy(list, view)
	}
	if sortBy == "combined" {
		list = views.RankByCombined(list)
	}
	list = views.Limit(list, top)

	rows := make([]tableRow, len(list))
	for i, e := range list {
		rows[i] = tableRow{Rank: i + 1, Enriched: e}
	}
	return rows
}
