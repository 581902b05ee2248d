package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"toolhub/server/toolhub/domain"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func officeTools() []Tool {
	return []Tool{
		{
			Name:      "csv-to-xlsx",
			MinFiles:  1,
			Transform: csvToXLSX,
		},
		{
			Name:      "xlsx-to-csv",
			MinFiles:  1,
			Transform: xlsxToCSV,
		},
		{
			Name:      "text-to-pdf",
			MinFiles:  1,
			MaxFiles:  1,
			Transform: textToPDF,
		},
	}
}

func csvToXLSX(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	reader := csv.NewReader(bytes.NewReader(file.Content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: parse csv %s: %v", domain.ErrTransformation, file.Name, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for rowIdx, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
		if err != nil {
			return domain.OutputFile{}, fmt.Errorf("%w: cell name: %v", domain.ErrTransformation, err)
		}
		row := make([]any, len(record))
		for i, value := range record {
			row[i] = value
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return domain.OutputFile{}, fmt.Errorf("%w: write row %d: %v", domain.ErrTransformation, rowIdx+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: encode xlsx: %v", domain.ErrTransformation, err)
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, "converted", "xlsx"),
		ContentType: xlsxMIME,
		Content:     buf.Bytes(),
	}, nil
}

func xlsxToCSV(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(file.Content))
	if err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: open xlsx %s: %v", domain.ErrTransformation, file.Name, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: read rows: %v", domain.ErrTransformation, err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return domain.OutputFile{}, fmt.Errorf("%w: write csv: %v", domain.ErrTransformation, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: write csv: %v", domain.ErrTransformation, err)
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, "converted", "csv"),
		ContentType: "text/csv",
		Content:     buf.Bytes(),
	}, nil
}

func textToPDF(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.MultiCell(0, 5, string(file.Content), "", "L", false)
	if pdf.Error() != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: layout %s: %v", domain.ErrTransformation, file.Name, pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: encode pdf: %v", domain.ErrTransformation, err)
	}
	return domain.OutputFile{
		Name:        generatedName("text", "pdf"),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}
