package engine

import (
	"context"
	"fmt"
	"io"

	"robotbacktester/types"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type backtester struct {
	match     *MatchEngine
	days      []types.DaySignal
	automatic bool
	logger    *zap.Logger
	progress  io.Writer

	reports      []types.DayReport
	formatted    []FormattedDay
	stoppedEarly bool
}

func (b *backtester) run(ctx context.Context, sink func(FormattedDay) error) error {
	bar := initProgressBar(len(b.days), b.progress)
	defer bar.Finish()

	for _, sig := range b.days {
		// Stopping between days always leaves a fully committed state.
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := b.match.Step(sig)
		if err != nil {
			return err
		}
		day := FormatDay(report)
		b.reports = append(b.reports, report)
		b.formatted = append(b.formatted, day)
		_ = bar.Add(1)

		if sink != nil {
			if err := sink(day); err != nil {
				return fmt.Errorf("emit %s: %w", day.Date, err)
			}
		}

		if !b.automatic && day.HasPendingSignal {
			b.stoppedEarly = true
			b.logger.Info("stopping at first pending signal", zap.String("date", day.Date))
			break
		}
	}
	return b.match.Finish()
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
