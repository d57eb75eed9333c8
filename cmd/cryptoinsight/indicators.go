package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sawpanic/cryptoinsight/internal/domain/indicators"
	"github.com/sawpanic/cryptoinsight/internal/domain/signal"
)

type indicatorsOptions struct {
	prices    string
	estimator string
	seed      int64
	output    outputOptions
}

func newIndicatorsCmd(root *rootOptions) *cobra.Command {
	opts := &indicatorsOptions{}

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Compute the indicator set for a price series",
		Example: `  cryptoinsight indicators --prices 90,91,92.5,91.8,93
  cryptoinsight indicators --prices "$(cat closes.csv)" --estimator close_only --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := parsePrices(opts.prices)
			if err != nil {
				return err
			}

			name := opts.estimator
			if name == "" {
				name = estimatorName(root.cfg.Scoring.Estimator)
			}
			var rng *rand.Rand
			if opts.seed != 0 {
				rng = rand.New(rand.NewSource(opts.seed))
			}
			est, err := indicators.NewEstimator(name, rng)
			if err != nil {
				return err
			}

			set := indicators.Compute(prices, est)
			return writeIndicators(cmd.OutOrStdout(), opts.output, indicatorsOutput{
				Points:     len(prices),
				Estimator:  name,
				Indicators: set,
				Technical:  signal.Classify(set),
				Votes:      signal.Tally(set),
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.prices, "prices", "", "Comma or whitespace separated closes, oldest first")
	fs.StringVar(&opts.estimator, "estimator", "", "ADX/CCI estimator (standin|close_only), default from config")
	fs.Int64Var(&opts.seed, "seed", 0, "Seed for the standin estimator")
	addOutputFlags(fs, &opts.output)
	_ = cmd.MarkFlagRequired("prices")

	return cmd
}

// parsePrices reads positive closes separated by commas or whitespace
func parsePrices(raw string) ([]float64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no prices given")
	}

	prices := make([]float64, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", f, err)
		}
		if p <= 0 {
			return nil, fmt.Errorf("price %q must be positive", f)
		}
		prices = append(prices, p)
	}
	return prices, nil
}
