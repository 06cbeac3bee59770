package docmosis

import (
	"context"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

const (
	servicePutFile     = "putFile"
	serviceGetFile     = "getFile"
	serviceDeleteFiles = "deleteFiles"
	serviceListFiles   = "listFiles"
)

// StoredFile describes a file in Docmosis file storage.
type StoredFile struct {
	Name         string `json:"name"`
	Folder       string `json:"folder,omitempty"`
	SizeBytes    int64  `json:"sizeBytes"`
	LastModified int64  `json:"lastModifiedMillisSinceEpoch"`
	ContentType  string `json:"contentType,omitempty"`
	MetaData     string `json:"metaData,omitempty"`
}

// PutFileRequest stores a file.
type PutFileRequest struct {
	// File is the content: an httpclient.File, Stream or Bytes.
	File httpclient.Value

	// FileName is the stored name, including any folder.
	FileName string

	// MetaData is free text kept with the file.
	MetaData string

	// ContentType is reported back when the file is listed or retrieved.
	ContentType string
}

// PutFile stores a file.
func (c *Client) PutFile(ctx context.Context, req PutFileRequest) (*StatusResponse, error) {
	file, err := fileValue(servicePutFile, "file", req.File)
	if err != nil {
		return nil, err
	}
	if err := requireField(servicePutFile, "fileName", req.FileName); err != nil {
		return nil, err
	}

	params := &httpclient.Params{}
	params.Set("file", file)
	params.SetString("fileName", req.FileName)
	params.SetString("metaData", req.MetaData)
	params.SetString("contentType", req.ContentType)

	env, err := c.execute(ctx, servicePutFile, params)
	if err != nil {
		return nil, err
	}
	discard(env)
	return &StatusResponse{Envelope: *env}, nil
}

// GetFileRequest retrieves a stored file.
type GetFileRequest struct {
	FileName  string
	ZipOutput bool
}

// GetFile retrieves a stored file.
func (c *Client) GetFile(ctx context.Context, req GetFileRequest) (*DocumentResponse, error) {
	if err := requireField(serviceGetFile, "fileName", req.FileName); err != nil {
		return nil, err
	}

	params := &httpclient.Params{}
	params.SetString("fileName", req.FileName)
	setBool(params, "zipOutput", req.ZipOutput)

	env, err := c.execute(ctx, serviceGetFile, params)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{Envelope: *env}, nil
}

// DeleteFilesRequest deletes stored files or folders.
type DeleteFilesRequest struct {
	Paths             []string
	IncludeSubFolders bool
}

// DeleteFiles deletes one or more files or folders.
func (c *Client) DeleteFiles(ctx context.Context, req DeleteFilesRequest) (*StatusResponse, error) {
	if len(req.Paths) == 0 {
		return nil, requireField(serviceDeleteFiles, "path", "")
	}

	params := &httpclient.Params{}
	setList(params, "path", req.Paths)
	setBool(params, "includeSubFolders", req.IncludeSubFolders)

	env, err := c.execute(ctx, serviceDeleteFiles, params)
	if err != nil {
		return nil, err
	}
	discard(env)
	return &StatusResponse{Envelope: *env}, nil
}

// ListFilesRequest lists stored files. The zero value lists the root folder.
type ListFilesRequest struct {
	Folder            string
	IncludeSubFolders bool
	IncludeMetaData   bool
}

// ListFilesResponse holds the listed files of a successful call.
type ListFilesResponse struct {
	httpclient.Envelope
	Files []StoredFile
}

// ListFiles lists stored files.
func (c *Client) ListFiles(ctx context.Context, req ListFilesRequest) (*ListFilesResponse, error) {
	params := &httpclient.Params{}
	params.SetString("folder", req.Folder)
	setBool(params, "includeSubFolders", req.IncludeSubFolders)
	setBool(params, "includeMetaData", req.IncludeMetaData)

	env, err := c.execute(ctx, serviceListFiles, params)
	if err != nil {
		return nil, err
	}

	var body struct {
		Files []StoredFile `json:"files"`
	}
	if err := decode(serviceListFiles, env, &body); err != nil {
		return nil, err
	}
	return &ListFilesResponse{Envelope: *env, Files: body.Files}, nil
}
