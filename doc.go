// Package office2pdf converts office documents (slides, word processing
// documents, spreadsheets) to PDF with headless LibreOffice.
//
// # Quick Start
//
//	conv, err := office2pdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, office2pdf.Input{
//	    Data:     deck,
//	    Filename: "quarterly.pptx",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("quarterly.pdf", result.PDF, 0644)
//
// # Conversion Flow
//
// Each call to Convert runs as one job:
//
//  1. The format is resolved and the bytes are sniffed against it
//  2. A private workspace is created under the scratch root
//  3. The job waits, first come first served, for an engine slot
//  4. LibreOffice runs with its own profile directory and process group
//  5. The PDF is read back, the slot is released, the workspace deleted
//
// A run that exceeds the engine timeout is killed and retried once when the
// caller's deadline allows. Errors are *ConversionError values whose Kind
// says what went wrong; match them with errors.Is against ErrOverloaded,
// ErrRenderFailed and the other sentinels.
//
// # Configuration
//
//	conv, err := office2pdf.NewConverter(
//	    office2pdf.WithMaxEngines(4),
//	    office2pdf.WithEngineTimeout(2 * time.Minute),
//	    office2pdf.WithQueueTimeout(30 * time.Second),
//	    office2pdf.WithScratchRoot("/var/tmp/office2pdf"),
//	)
//
// # Concurrency
//
// A Converter is safe for concurrent use. Share one per process: its engine
// limit only holds across the calls it sees.
package office2pdf
