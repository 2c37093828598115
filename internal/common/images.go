package common

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"

	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/storage"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/nfnt/resize"
)

// ProcessAvatar reads the avatar file from a multipart form, validates it,
// and uploads one resized variant per configured size, largest first. It
// returns the blob references of the variants.
func ProcessAvatar(
	ctx context.Context, fileStorage storage.Storage, key string,
) ([]string, error) {
	req := xcontext.HTTPRequest(ctx)
	cfg := xcontext.Configs(ctx)
	if err := req.ParseMultipartForm(cfg.File.MaxSize); err != nil {
		return nil, errorx.New(errorx.BadRequest, "Request must be multipart form")
	}

	file, header, err := req.FormFile(key)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Error retrieving the File")
	}
	defer file.Close()

	mime, err := validateImage(ctx, header)
	if err != nil {
		return nil, err
	}

	img, err := decodeImg(mime, file)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "We just accept jpeg, gif or png")
	}

	objs := make([]*storage.UploadObject, 0, len(cfg.File.AvatarSizes))
	for _, size := range cfg.File.AvatarSizes {
		resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos2)
		b, err := encodeImg(mime, resized)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot encode image: %v", err)
			return nil, errorx.Unknown
		}

		objs = append(objs, &storage.UploadObject{
			Bucket:   cfg.Storage.Bucket,
			Prefix:   "avatars",
			FileName: fmt.Sprintf("%dx%d-%s", size, size, header.Filename),
			Mime:     mime,
			Data:     b,
		})
	}

	uresp, err := fileStorage.BulkUpload(ctx, objs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upload image: %v", err)
		return nil, errorx.Unknown
	}

	blobRefs := []string{}
	for _, resp := range uresp {
		blobRefs = append(blobRefs, resp.FileName)
	}

	return blobRefs, nil
}

// ProcessImages reads up to maxCount files from the multipart form field and
// uploads them unchanged. Every file is validated before any write reaches
// the blob store.
func ProcessImages(
	ctx context.Context, fileStorage storage.Storage, key string, maxCount int,
) ([]string, error) {
	req := xcontext.HTTPRequest(ctx)
	cfg := xcontext.Configs(ctx)
	if err := req.ParseMultipartForm(cfg.File.MaxSize); err != nil {
		return nil, errorx.New(errorx.BadRequest, "Request must be multipart form")
	}

	if req.MultipartForm == nil {
		return nil, nil
	}

	headers := req.MultipartForm.File[key]
	if len(headers) == 0 {
		return nil, nil
	}

	if len(headers) > maxCount {
		return nil, errorx.New(errorx.BadRequest,
			"Not allow more than %d images", maxCount)
	}

	objs := make([]*storage.UploadObject, 0, len(headers))
	for _, header := range headers {
		mime, err := validateImage(ctx, header)
		if err != nil {
			return nil, err
		}

		file, err := header.Open()
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot open uploaded file: %v", err)
			return nil, errorx.Unknown
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot read uploaded file: %v", err)
			return nil, errorx.Unknown
		}

		objs = append(objs, &storage.UploadObject{
			Bucket:   cfg.Storage.Bucket,
			Prefix:   "activities",
			FileName: header.Filename,
			Mime:     mime,
			Data:     data,
		})
	}

	uresp, err := fileStorage.BulkUpload(ctx, objs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upload images: %v", err)
		return nil, errorx.Unknown
	}

	blobRefs := []string{}
	for _, resp := range uresp {
		blobRefs = append(blobRefs, resp.FileName)
	}

	return blobRefs, nil
}

func validateImage(ctx context.Context, header *multipart.FileHeader) (string, error) {
	if header.Size > xcontext.Configs(ctx).File.MaxSize {
		return "", errorx.New(errorx.BadRequest,
			"The image %s is too large", header.Filename)
	}

	mime := header.Header.Get("Content-Type")
	switch mime {
	case "image/jpeg", "image/png", "image/gif":
		return mime, nil
	}

	return "", errorx.New(errorx.BadRequest, "We just accept jpeg, gif or png")
}

func decodeImg(mime string, data io.Reader) (img image.Image, err error) {
	switch mime {
	case "image/jpeg":
		img, err = jpeg.Decode(data)
	case "image/png":
		img, err = png.Decode(data)
	case "image/gif":
		img, err = gif.Decode(data)
	default:
		return nil, fmt.Errorf("We just accept jpeg, gif or png")
	}
	return img, err
}

func encodeImg(mime string, img image.Image) (b []byte, err error) {
	buf := new(bytes.Buffer)

	switch mime {
	case "image/jpeg":
		err = jpeg.Encode(buf, img, nil)
	case "image/png":
		err = png.Encode(buf, img)
	case "image/gif":
		err = gif.Encode(buf, img, nil)
	default:
		return nil, fmt.Errorf("We just accept jpeg, gif or png")
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), err
}
