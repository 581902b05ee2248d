package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"toolhub/server/toolhub/domain"
)

func pdfTools() []Tool {
	return []Tool{
		{
			Name:         "pdf-rotate",
			MinFiles:     1,
			Bundle:       true,
			ParseParams:  parseAngleParams,
			TransformAll: pdfRotate,
		},
		{
			Name:         "pdf-merge",
			MinFiles:     2,
			TransformAll: pdfMerge,
		},
		{
			Name:        "pdf-delete-pages",
			MinFiles:    1,
			MaxFiles:    1,
			Bundle:      true,
			ParseParams: parsePagesParams,
			Transform:   pdfDeletePages,
		},
		{
			Name:        "pdf-extract-pages",
			MinFiles:    1,
			MaxFiles:    1,
			Bundle:      true,
			ParseParams: parsePagesParams,
			Transform:   pdfExtractPages,
		},
	}
}

// pdfRotate rotates every document. Archive entry names must be unique
// within one request, so multi-file results are named off the input stem
// and position; a single result keeps the timestamped name.
func pdfRotate(_ context.Context, files []domain.UploadedFile, params any) ([]domain.OutputFile, error) {
	p := params.(angleParams)
	outputs := make([]domain.OutputFile, 0, len(files))
	for i, file := range files {
		var buf bytes.Buffer
		if err := api.Rotate(bytes.NewReader(file.Content), &buf, p.angle, nil, nil); err != nil {
			return nil, fmt.Errorf("%w: rotate %s: %v", domain.ErrTransformation, file.Name, err)
		}
		name := generatedName("rotated", "pdf")
		if len(files) > 1 {
			name = outputName(file.Name, fmt.Sprintf("rotated-%02d", i+1), "pdf")
		}
		outputs = append(outputs, domain.OutputFile{
			Name:        name,
			ContentType: "application/pdf",
			Content:     buf.Bytes(),
		})
	}
	return outputs, nil
}

func pdfMerge(_ context.Context, files []domain.UploadedFile, _ any) ([]domain.OutputFile, error) {
	readers := make([]io.ReadSeeker, 0, len(files))
	for _, file := range files {
		readers = append(readers, bytes.NewReader(file.Content))
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, nil); err != nil {
		return nil, fmt.Errorf("%w: merge: %v", domain.ErrTransformation, err)
	}
	return []domain.OutputFile{{
		Name:        generatedName("merged", "pdf"),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}}, nil
}

type pagesParams struct {
	ranges []PageRange
}

// parsePagesParams validates the pages grammar against the actual page count
// before any mutation of the document.
func parsePagesParams(fields url.Values, files []domain.UploadedFile) (any, error) {
	totalPages, err := api.PageCount(bytes.NewReader(files[0].Content), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrTransformation, files[0].Name, err)
	}
	ranges, err := ParsePageRanges(fields.Get("pages"), totalPages)
	if err != nil {
		return nil, err
	}
	return pagesParams{ranges: ranges}, nil
}

func pdfDeletePages(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(pagesParams)
	var buf bytes.Buffer
	if err := api.RemovePages(bytes.NewReader(file.Content), &buf, Selection(p.ranges), nil); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: delete pages from %s: %v", domain.ErrTransformation, file.Name, err)
	}
	return domain.OutputFile{
		Name:        generatedName("trimmed", "pdf"),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}

func pdfExtractPages(_ context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	p := params.(pagesParams)
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(file.Content), &buf, Selection(p.ranges), nil); err != nil {
		return domain.OutputFile{}, fmt.Errorf("%w: extract pages from %s: %v", domain.ErrTransformation, file.Name, err)
	}
	return domain.OutputFile{
		Name:        generatedName("extracted", "pdf"),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}
