package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"toolhub/server/toolhub/domain"
)

const maxImageDimension = 10000

var imageFormatMIME = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

func imageTools() []Tool {
	return []Tool{
		{
			Name:        "image-convert",
			MinFiles:    1,
			ParseParams: parseImageConvertParams,
			Transform:   imageConvert,
		},
		{
			Name:        "image-resize",
			MinFiles:    1,
			ParseParams: parseResizeParams,
			Transform:   imageResize,
		},
		{
			Name:        "image-rotate",
			MinFiles:    1,
			ParseParams: parseAngleParams,
			Transform:   imageRotate,
		},
		{
			Name:      "image-grayscale",
			MinFiles:  1,
			Transform: imageGrayscale,
		},
		{
			Name:        "image-compress",
			MinFiles:    1,
			ParseParams: parseQualityParams,
			Transform:   imageCompress,
		},
		{
			Name:      "image-thumbnail",
			MinFiles:  1,
			Transform: imageThumbnail,
		},
		{
			Name:      "image-base64",
			MinFiles:  1,
			MaxFiles:  1,
			Transform: imageBase64,
		},
		{
			Name:         "image-to-pdf",
			MinFiles:     1,
			TransformAll: imagesToPDF,
		},
	}
}

type imageConvertParams struct {
	format imaging.Format
	ext    string
}

func parseImageConvertParams(fields url.Values, _ []domain.UploadedFile) (any, error) {
	target := strings.ToLower(strings.TrimSpace(fields.Get("format")))
	if target == "" {
		return nil, fmt.Errorf("%w: format is required", domain.ErrBadRequest)
	}
	format, err := imaging.FormatFromExtension(target)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported target format %q", domain.ErrBadRequest, target)
	}
	return imageConvertParams{format: format, ext: target}, nil
}

func imageConvert(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(imageConvertParams)
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	data, err := encodeImage(img, p.format)
	if err != nil {
		return domain.OutputFile{}, err
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, "converted", p.ext),
		ContentType: imageFormatMIME[p.format],
		Content:     data,
	}, nil
}

type resizeParams struct {
	width  int
	height int
}

func parseResizeParams(fields url.Values, _ []domain.UploadedFile) (any, error) {
	width, err := nonNegativeField(fields, "width")
	if err != nil {
		return nil, err
	}
	height, err := nonNegativeField(fields, "height")
	if err != nil {
		return nil, err
	}
	if width == 0 && height == 0 {
		return nil, fmt.Errorf("%w: width or height is required", domain.ErrBadRequest)
	}
	if width > maxImageDimension || height > maxImageDimension {
		return nil, fmt.Errorf("%w: width and height must not exceed %d", domain.ErrBadRequest, maxImageDimension)
	}
	return resizeParams{width: width, height: height}, nil
}

func imageResize(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(resizeParams)
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	// a zero dimension preserves the aspect ratio
	resized := imaging.Resize(img, p.width, p.height, imaging.Lanczos)
	return encodeLikeInput(file, resized, "resized")
}

type angleParams struct {
	angle int
}

func parseAngleParams(fields url.Values, _ []domain.UploadedFile) (any, error) {
	raw := strings.TrimSpace(fields.Get("angle"))
	angle, err := strconv.Atoi(raw)
	if err != nil || (angle != 90 && angle != 180 && angle != 270) {
		return nil, fmt.Errorf("%w: angle must be one of 90, 180, 270", domain.ErrBadRequest)
	}
	return angleParams{angle: angle}, nil
}

func imageRotate(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(angleParams)
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	var rotated image.Image
	switch p.angle {
	case 90:
		// imaging rotates counter-clockwise; callers ask clockwise
		rotated = imaging.Rotate270(img)
	case 180:
		rotated = imaging.Rotate180(img)
	case 270:
		rotated = imaging.Rotate90(img)
	}
	return encodeLikeInput(file, rotated, "rotated")
}

func imageGrayscale(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	return encodeLikeInput(file, imaging.Grayscale(img), "grayscale")
}

type qualityParams struct {
	quality int
}

func parseQualityParams(fields url.Values, _ []domain.UploadedFile) (any, error) {
	raw := strings.TrimSpace(fields.Get("quality"))
	quality, err := strconv.Atoi(raw)
	if err != nil || quality < 0 || quality > 100 {
		return nil, fmt.Errorf("%w: quality must be between 0 and 100", domain.ErrBadRequest)
	}
	return qualityParams{quality: quality}, nil
}

func imageCompress(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(qualityParams)
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: encode %s: %v", domain.ErrTransformation, file.Name, err)
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, "compressed", "jpg"),
		ContentType: "image/jpeg",
		Content:     buf.Bytes(),
	}, nil
}

func imageThumbnail(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	img, err := decodeImage(file)
	if err != nil {
		return domain.OutputFile{}, err
	}
	thumb := imaging.Thumbnail(img, 320, 320, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: encode %s: %v", domain.ErrTransformation, file.Name, err)
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, "thumb", "jpg"),
		ContentType: "image/jpeg",
		Content:     buf.Bytes(),
	}, nil
}

func imageBase64(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
	encoded := base64.StdEncoding.EncodeToString(file.Content)
	return domain.OutputFile{
		Name:        outputName(file.Name, "base64", "txt"),
		ContentType: "text/plain",
		Content:     []byte(encoded),
	}, nil
}

// imagesToPDF lays the images out one per page. The layout library only
// accepts file paths, so the inputs pass through a scoped temp directory
// that is removed on every exit path.
func imagesToPDF(_ context.Context, files []domain.UploadedFile, _ any) ([]domain.OutputFile, error) {
	tmpDir, err := os.MkdirTemp("", "image-to-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", domain.ErrTransformation, err)
	}
	defer os.RemoveAll(tmpDir)

	paths := make([]string, 0, len(files))
	for i, file := range files {
		ext := filepath.Ext(file.Name)
		if ext == "" {
			ext = ".img"
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("page-%03d%s", i, ext))
		if err := os.WriteFile(path, file.Content, 0o600); err != nil {
			return nil, fmt.Errorf("%w: stage %s: %v", domain.ErrTransformation, file.Name, err)
		}
		paths = append(paths, path)
	}

	outPath := filepath.Join(tmpDir, "out.pdf")
	if err := api.ImportImagesFile(paths, outPath, nil, nil); err != nil {
		return nil, fmt.Errorf("%w: import images: %v", domain.ErrTransformation, err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read result: %v", domain.ErrTransformation, err)
	}
	return []domain.OutputFile{{
		Name:        generatedName("images", "pdf"),
		ContentType: "application/pdf",
		Content:     data,
	}}, nil
}

func decodeImage(file domain.UploadedFile) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(file.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrTransformation, file.Name, err)
	}
	return img, nil
}

func encodeImage(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrTransformation, err)
	}
	return buf.Bytes(), nil
}

// encodeLikeInput keeps the input's format when it is recognizable and falls
// back to PNG otherwise.
func encodeLikeInput(file domain.UploadedFile, img image.Image, op string) (domain.OutputFile, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name)), ".")
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		format, ext = imaging.PNG, "png"
	}
	data, err := encodeImage(img, format)
	if err != nil {
		return domain.OutputFile{}, err
	}
	return domain.OutputFile{
		Name:        outputName(file.Name, op, ext),
		ContentType: imageFormatMIME[format],
		Content:     data,
	}, nil
}

func nonNegativeField(fields url.Values, name string) (int, error) {
	raw := strings.TrimSpace(fields.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrBadRequest, name)
	}
	return n, nil
}
