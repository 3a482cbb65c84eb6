package engine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteDaysCSVFile writes one row per simulated day to a CSV file at path.
func WriteDaysCSVFile(path string, days []FormattedDay) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create days file: %w", err)
	}
	defer f.Close()

	return writeDaysCSV(f, days)
}

func writeDaysCSV(w io.Writer, days []FormattedDay) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"date",
		"cash_available",
		"market_value",
		"total_asset",
		"holdings",
		"fills",
		"pending",
		"realized_pnl",
		"fees_paid",
		"cumulative_return",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, d := range days {
		record := []string{
			d.Date,
			formatF(d.CashAvailable),
			formatF(d.MarketValue),
			formatF(d.TotalAsset),
			strconv.Itoa(len(d.Holdings)),
			strconv.Itoa(len(d.Fills)),
			strconv.Itoa(len(d.PendingSignal)),
			formatF(d.RealizedPnL),
			formatF(d.FeesPaid),
			formatF(d.CumulativeReturn),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFillsCSVFile writes every executed fill of the run to path.
func WriteFillsCSVFile(path string, days []FormattedDay) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fills file: %w", err)
	}
	defer f.Close()

	return writeFillsCSV(f, days)
}

func writeFillsCSV(w io.Writer, days []FormattedDay) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"date",
		"symbol",
		"side",
		"price",
		"quantity",
		"commission",
		"stamp_duty",
		"fee",
		"realized_pnl",
		"reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, d := range days {
		for _, f := range d.Fills {
			record := []string{
				d.Date,
				f.Symbol,
				f.Side,
				formatF(f.Price),
				strconv.FormatInt(f.Quantity, 10),
				formatF(f.Commission),
				formatF(f.StampDuty),
				formatF(f.Fee),
				formatF(f.RealizedPnL),
				f.Reason,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func WriteResultJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
