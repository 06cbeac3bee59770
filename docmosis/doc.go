// Package docmosis is a client for the Docmosis document services: format
// conversion, image storage, file storage and render tag statistics.
//
// Every method posts a multipart request through an httpclient.Executor and
// returns a response embedding httpclient.Envelope. A response is returned
// for every call the service answered, successful or not; check Succeeded.
// An error means the request was invalid or the service could not be reached.
//
//	client, err := docmosis.New(docmosis.CloudEnvironment(docmosis.RegionUS, key))
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Convert(ctx, docmosis.ConvertRequest{
//	    File:       httpclient.File{Path: "letter.docx"},
//	    OutputName: "letter.pdf",
//	})
//	if err != nil {
//	    return err
//	}
//	if !resp.Succeeded() {
//	    return fmt.Errorf("%s: %s", resp.ShortMsg, resp.LongMsg)
//	}
//	return resp.SaveTo("letter.pdf")
package docmosis
