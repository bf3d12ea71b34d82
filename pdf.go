package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10
	pdfLineHeight = 5
	pdfFontSize   = 9
	pdfTabWidth   = 4
)

// generatePDF writes every failing file, its diagnostics and the offending
// source lines to a PDF at outputPath.
func generatePDF(failures []CheckResult, summary Summary, langData *LoadedLanguageData, outputPath string) error {
	logger.Info().Str("path", outputPath).Int("failures", len(failures)).Msg("generating PDF report")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}
	cellWidth := float64(pdfPageWidth - 2*pdfMargin)

	pdf.SetFont("Helvetica", "B", pdfFontSize+3)
	pdf.MultiCell(cellWidth, pdfLineHeight+2, "lintsweep report", "", "L", false)
	pdf.Ln(pdfLineHeight)

	for i, res := range failures {
		if i > 0 {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(cellWidth, pdfLineHeight, fmt.Sprintf("File: %s", res.File.Path), "", "L", false)
		if res.Command != "" {
			pdf.SetFont("Courier", "", pdfFontSize-1)
			pdf.MultiCell(cellWidth, pdfLineHeight, res.Command, "", "L", false)
		}
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		if res.Err != nil {
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(255, 0, 0)
			pdf.MultiCell(cellWidth, pdfLineHeight, fmt.Sprintf("Could not be checked: %v", res.Err), "", "L", false)
			continue
		}

		pdf.SetFont("Courier", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(cellWidth, pdfLineHeight, strings.Join(res.Lines, "\n"), "", "L", false)

		diags := parseDiagnostics(res.Lines)
		if len(diags) == 0 {
			continue
		}
		source, readErr := os.ReadFile(res.File.Path)
		if readErr != nil {
			logger.Warn().Err(readErr).Str("file", res.File.Path).Msg("source context unavailable")
			continue
		}
		sourceLines := strings.Split(string(source), "\n")
		lexerName := langData.LexerFor(res.File.Language)

		pdf.Ln(pdfLineHeight / 2)
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.MultiCell(cellWidth, pdfLineHeight, "Source context", "", "L", false)
		for _, d := range diags {
			if d.Line <= 0 || d.Line > len(sourceLines) {
				continue
			}
			pdf.SetFont("Helvetica", "", pdfFontSize-1)
			pdf.SetTextColor(96, 96, 96)
			pdf.MultiCell(cellWidth, pdfLineHeight, fmt.Sprintf("%d: [%s] %s", d.Line, d.Category, d.Message), "", "L", false)
			if err := writeHighlightedCode(pdf, style, sourceLines[d.Line-1], res.File.Path, lexerName); err != nil {
				pdf.SetFont("Courier", "", pdfFontSize)
				pdf.SetTextColor(0, 0, 0)
				pdf.MultiCell(cellWidth, pdfLineHeight, sourceLines[d.Line-1], "", "L", false)
			}
		}
	}

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(pdfLineHeight)
	pdf.MultiCell(cellWidth, pdfLineHeight, "--- Summary ---", "", "L", false)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	summaryString := fmt.Sprintf("Files checked: %d\nPassed: %d\nFailed: %d\nCould not be checked: %d\nTotal errors reported: %d",
		summary.Checked, summary.Passed, summary.Failed, summary.Errored, summary.Diagnostics)
	pdf.MultiCell(cellWidth, pdfLineHeight, summaryString, "", "L", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}

// writeHighlightedCode writes one snippet of source with chroma styling.
func writeHighlightedCode(pdf *gofpdf.Fpdf, style *chroma.Style, code, filePath, lexerName string) error {
	var lexer chroma.Lexer
	if lexerName != "" {
		lexer = lexers.Get(lexerName)
	}
	if lexer == nil {
		lexer = lexers.Match(filePath)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		styleStr := ""
		if entry.Bold == chroma.Yes {
			styleStr += "B"
		}
		if entry.Italic == chroma.Yes {
			styleStr += "I"
		}
		pdf.SetFontStyle(styleStr)

		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Write(pdfLineHeight, strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth)))
	}
	pdf.Ln(-1)
	return nil
}
