package voucher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/domain/claim"
)

// ExcelWriter renders approved claims as payout voucher workbooks
type ExcelWriter struct {
	outputDir   string
	companyName string
	logger      *zap.Logger
}

// NewExcelWriter creates a new Excel voucher writer
func NewExcelWriter(outputDir, companyName string, logger *zap.Logger) (*ExcelWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create voucher output dir: %w", err)
	}
	return &ExcelWriter{
		outputDir:   outputDir,
		companyName: companyName,
		logger:      logger,
	}, nil
}

// Write builds the voucher workbook for a claim and saves it under the
// output directory. It returns the path of the written file.
func (w *ExcelWriter) Write(c *claim.Claim, voucherNumber string) (string, error) {
	w.logger.Info("Writing payout voucher",
		zap.String("claim_id", c.ID.String()),
		zap.String("voucher_number", voucherNumber))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)

	// Header block
	w.setCell(f, sheetName, "A1", "Expense Reimbursement Voucher")
	w.setCell(f, sheetName, "A2", "Company")
	w.setCell(f, sheetName, "B2", w.companyName)
	w.setCell(f, sheetName, "A3", "Voucher No.")
	w.setCell(f, sheetName, "B3", voucherNumber)
	w.setCell(f, sheetName, "A4", "Claim ID")
	w.setCell(f, sheetName, "B4", c.ID.String())
	w.setCell(f, sheetName, "A5", "Title")
	w.setCell(f, sheetName, "B5", c.Title)
	w.setCell(f, sheetName, "A6", "Submitter")
	w.setCell(f, sheetName, "B6", c.SubmitterID)
	w.setCell(f, sheetName, "A7", "Department")
	w.setCell(f, sheetName, "B7", c.Department)
	if c.SubmittedAt != nil {
		w.setCell(f, sheetName, "A8", "Submitted")
		w.setCell(f, sheetName, "B8", c.SubmittedAt.Format("2006-01-02"))
	}
	w.setCell(f, sheetName, "A9", "Currency")
	w.setCell(f, sheetName, "B9", c.BaseCurrency)

	// Itemized expense table
	headerRow := 11
	w.setCell(f, sheetName, fmt.Sprintf("A%d", headerRow), "Date")
	w.setCell(f, sheetName, fmt.Sprintf("B%d", headerRow), "Category")
	w.setCell(f, sheetName, fmt.Sprintf("C%d", headerRow), "Vendor")
	w.setCell(f, sheetName, fmt.Sprintf("D%d", headerRow), "Amount")
	w.setCell(f, sheetName, fmt.Sprintf("E%d", headerRow), "Rate")
	w.setCell(f, sheetName, fmt.Sprintf("F%d", headerRow), fmt.Sprintf("Amount (%s)", c.BaseCurrency))

	row := headerRow + 1
	for _, item := range c.Items {
		w.setCell(f, sheetName, fmt.Sprintf("A%d", row), item.ExpenseDate.Format("2006-01-02"))
		w.setCell(f, sheetName, fmt.Sprintf("B%d", row), string(item.Category))
		w.setCell(f, sheetName, fmt.Sprintf("C%d", row), item.Vendor)
		w.setCell(f, sheetName, fmt.Sprintf("D%d", row), item.Amount.StringFixed(2)+" "+item.Currency)
		w.setCell(f, sheetName, fmt.Sprintf("E%d", row), item.ExchangeRate.String())
		w.setCell(f, sheetName, fmt.Sprintf("F%d", row), item.Normalized.StringFixed(2))
		row++
	}

	w.setCell(f, sheetName, fmt.Sprintf("E%d", row+1), "Total")
	w.setCell(f, sheetName, fmt.Sprintf("F%d", row+1), c.TotalNormalized().StringFixed(2))
	w.setCell(f, sheetName, fmt.Sprintf("A%d", row+3), "Generated")
	w.setCell(f, sheetName, fmt.Sprintf("B%d", row+3), time.Now().Format("2006-01-02 15:04:05"))

	outputPath := filepath.Join(w.outputDir, fmt.Sprintf("%s.xlsx", voucherNumber))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save voucher file: %w", err)
	}

	w.logger.Info("Payout voucher written", zap.String("output_path", outputPath))
	return outputPath, nil
}

// setCell sets a cell value, logging failures instead of aborting the fill
func (w *ExcelWriter) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
