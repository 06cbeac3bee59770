package docmosis

import (
	"context"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

const serviceConvert = "convert"

// ConvertRequest converts a document to another format.
type ConvertRequest struct {
	// File is the document to convert: an httpclient.File, Stream or Bytes.
	File httpclient.Value

	// OutputName is the name of the result, for example "invoice.pdf".
	// Its extension selects the format unless OutputFormat is set.
	OutputName string

	// OutputFormat overrides the format, for example "pdf" or "docx".
	OutputFormat string

	// StoreTo sends the result elsewhere instead of, or in addition to, the
	// response, for example "mailto:ops@example.com".
	StoreTo string

	// PDFArchiveMode produces PDF/A output.
	PDFArchiveMode bool

	// SourceFileName names the source when File carries no usable name.
	SourceFileName string
}

func (r ConvertRequest) params() (*httpclient.Params, error) {
	file, err := fileValue(serviceConvert, "file", r.File)
	if err != nil {
		return nil, err
	}
	if err := requireField(serviceConvert, "outputName", r.OutputName); err != nil {
		return nil, err
	}

	params := &httpclient.Params{}
	params.Set("file", file)
	params.SetString("outputName", r.OutputName)
	params.SetString("outputFormat", r.OutputFormat)
	params.SetString("storeTo", r.StoreTo)
	setBool(params, "pdfArchiveMode", r.PDFArchiveMode)
	params.SetString("sourceFileName", r.SourceFileName)
	return params, nil
}

// Convert converts a document and returns the converted content.
//
// Example:
//
//	resp, err := client.Convert(ctx, docmosis.ConvertRequest{
//	    File:       httpclient.File{Path: "quote.docx"},
//	    OutputName: "quote.pdf",
//	})
//	if err != nil {
//	    return err
//	}
//	if !resp.Succeeded() {
//	    return fmt.Errorf("convert: %s", resp.LongMsg)
//	}
//	return resp.SaveTo("quote.pdf")
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (*DocumentResponse, error) {
	params, err := req.params()
	if err != nil {
		return nil, err
	}

	env, err := c.execute(ctx, serviceConvert, params)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{Envelope: *env}, nil
}
