package docmosis

import (
	"context"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

const (
	serviceUploadImage = "uploadImage"
	serviceDeleteImage = "deleteImage"
	serviceListImages  = "listImages"
	serviceGetImage    = "getImage"
)

// Image describes a stored image.
type Image struct {
	Name          string `json:"name"`
	Folder        string `json:"folder,omitempty"`
	SizeBytes     int64  `json:"sizeBytes"`
	LastModified  int64  `json:"lastModifiedMillisSinceEpoch"`
	IsSystemImage bool   `json:"isSystemImage,omitempty"`
	Description   string `json:"description,omitempty"`
}

// UploadImageRequest stores an image for use in templates.
type UploadImageRequest struct {
	// ImageName is the stored name, including any folder.
	ImageName string

	// Image is the content: an httpclient.File, Stream or Bytes.
	Image httpclient.Value

	IsSystemImage bool
	Description   string
}

// UploadImage stores an image.
func (c *Client) UploadImage(ctx context.Context, req UploadImageRequest) (*StatusResponse, error) {
	if err := requireField(serviceUploadImage, "imageName", req.ImageName); err != nil {
		return nil, err
	}
	image, err := fileValue(serviceUploadImage, "image", req.Image)
	if err != nil {
		return nil, err
	}

	params := &httpclient.Params{}
	params.SetString("imageName", req.ImageName)
	params.Set("image", image)
	setBool(params, "isSystemImage", req.IsSystemImage)
	params.SetString("description", req.Description)

	env, err := c.execute(ctx, serviceUploadImage, params)
	if err != nil {
		return nil, err
	}
	discard(env)
	return &StatusResponse{Envelope: *env}, nil
}

// DeleteImageRequest deletes stored images.
type DeleteImageRequest struct {
	ImageNames    []string
	IsSystemImage bool
}

// DeleteImage deletes one or more images.
func (c *Client) DeleteImage(ctx context.Context, req DeleteImageRequest) (*StatusResponse, error) {
	if len(req.ImageNames) == 0 {
		return nil, requireField(serviceDeleteImage, "imageName", "")
	}

	params := &httpclient.Params{}
	setList(params, "imageName", req.ImageNames)
	setBool(params, "isSystemImage", req.IsSystemImage)

	env, err := c.execute(ctx, serviceDeleteImage, params)
	if err != nil {
		return nil, err
	}
	discard(env)
	return &StatusResponse{Envelope: *env}, nil
}

// ListImagesRequest lists stored images. The zero value lists the root folder.
type ListImagesRequest struct {
	Folder            string
	IncludeSubFolders bool
	IsSystemImage     bool
}

// ListImagesResponse holds the listed images of a successful call.
type ListImagesResponse struct {
	httpclient.Envelope
	Images []Image
}

// ListImages lists stored images.
func (c *Client) ListImages(ctx context.Context, req ListImagesRequest) (*ListImagesResponse, error) {
	params := &httpclient.Params{}
	params.SetString("folder", req.Folder)
	setBool(params, "includeSubFolders", req.IncludeSubFolders)
	setBool(params, "isSystemImage", req.IsSystemImage)

	env, err := c.execute(ctx, serviceListImages, params)
	if err != nil {
		return nil, err
	}

	var body struct {
		Images []Image `json:"images"`
	}
	if err := decode(serviceListImages, env, &body); err != nil {
		return nil, err
	}
	return &ListImagesResponse{Envelope: *env, Images: body.Images}, nil
}

// GetImageRequest retrieves stored images. Several names, or ZipOutput,
// return a zip archive.
type GetImageRequest struct {
	ImageNames    []string
	IsSystemImage bool
	ZipOutput     bool
}

// GetImage retrieves one or more images.
func (c *Client) GetImage(ctx context.Context, req GetImageRequest) (*DocumentResponse, error) {
	if len(req.ImageNames) == 0 {
		return nil, requireField(serviceGetImage, "imageName", "")
	}

	params := &httpclient.Params{}
	setList(params, "imageName", req.ImageNames)
	setBool(params, "isSystemImage", req.IsSystemImage)
	setBool(params, "zipOutput", req.ZipOutput)

	env, err := c.execute(ctx, serviceGetImage, params)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{Envelope: *env}, nil
}
