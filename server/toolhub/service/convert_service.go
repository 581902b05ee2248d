package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"toolhub/server/common/archive"
	"toolhub/server/common/log"
	"toolhub/server/toolhub/domain"
)

const defaultTransformTimeout = 60 * time.Second

// Tool describes one conversion endpoint: how many files it takes, how its
// parameters are validated, the transformation itself and whether the
// result is always delivered as an archive. One generic pipeline drives
// every tool off this description.
type Tool struct {
	Name     string
	MinFiles int
	MaxFiles int
	// Bundle forces archive delivery even for a single output.
	Bundle bool
	// ParseParams validates tool parameters before any transformation work.
	ParseParams func(fields url.Values, files []domain.UploadedFile) (any, error)
	// Transform converts one file; used with fan-out for multi-file uploads.
	Transform func(ctx context.Context, file domain.UploadedFile, params any) (domain.OutputFile, error)
	// TransformAll consumes all files at once (merge-style tools); when set
	// it replaces Transform.
	TransformAll func(ctx context.Context, files []domain.UploadedFile, params any) ([]domain.OutputFile, error)
}

// ObjectStore is the slice of the blob store the pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Result struct {
	URL string
	Key string
}

type ConvertService struct {
	store            ObjectStore
	tools            map[string]Tool
	transformTimeout time.Duration
}

func NewConvertService(store ObjectStore) *ConvertService {
	s := &ConvertService{
		store:            store,
		tools:            map[string]Tool{},
		transformTimeout: defaultTransformTimeout,
	}
	s.register(imageTools())
	s.register(pdfTools())
	s.register(officeTools())
	return s
}

func (s *ConvertService) register(tools []Tool) {
	for _, t := range tools {
		s.tools[t.Name] = t
	}
}

// Convert runs the shared pipeline: validate, transform (fanning out over
// multiple files), bundle, store, link. Any single failure aborts the whole
// request; nothing partial is ever stored.
func (s *ConvertService) Convert(ctx context.Context, toolName string, upload domain.Upload) (Result, error) {
	tool, ok := s.tools[toolName]
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown tool %q", domain.ErrBadRequest, toolName)
	}
	if len(upload.Files) == 0 {
		return Result{}, fmt.Errorf("%w: at least one file is required", domain.ErrBadRequest)
	}
	if len(upload.Files) < tool.MinFiles {
		return Result{}, fmt.Errorf("%w: %s requires at least %d files", domain.ErrBadRequest, tool.Name, tool.MinFiles)
	}
	if tool.MaxFiles > 0 && len(upload.Files) > tool.MaxFiles {
		return Result{}, fmt.Errorf("%w: %s accepts at most %d files", domain.ErrBadRequest, tool.Name, tool.MaxFiles)
	}

	var params any
	if tool.ParseParams != nil {
		var err error
		params, err = tool.ParseParams(upload.Fields, upload.Files)
		if err != nil {
			return Result{}, err
		}
	}

	outputs, err := s.transform(ctx, tool, upload.Files, params)
	if err != nil {
		return Result{}, err
	}
	if len(outputs) == 0 {
		return Result{}, fmt.Errorf("%w: %s produced no output", domain.ErrTransformation, tool.Name)
	}

	key, data, contentType, err := s.packageOutputs(tool, outputs)
	if err != nil {
		return Result{}, err
	}
	return s.storeResult(ctx, key, data, contentType)
}

func (s *ConvertService) transform(ctx context.Context, tool Tool, files []domain.UploadedFile, params any) ([]domain.OutputFile, error) {
	if tool.TransformAll != nil {
		return s.runAll(ctx, tool, files, params)
	}
	if len(files) == 1 {
		out, err := s.runOne(ctx, tool, files[0], params)
		if err != nil {
			return nil, err
		}
		return []domain.OutputFile{out}, nil
	}

	// Fan out per file; results land at their input index so the archive
	// keeps input order no matter which transform finishes first.
	outputs := make([]domain.OutputFile, len(files))
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for i, file := range files {
		wg.Add(1)
		go func(i int, file domain.UploadedFile) {
			defer wg.Done()
			out, err := s.runOne(fanCtx, tool, file, params)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			outputs[i] = out
		}(i, file)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return outputs, nil
}

func (s *ConvertService) runOne(ctx context.Context, tool Tool, file domain.UploadedFile, params any) (domain.OutputFile, error) {
	return bounded(ctx, s.transformTimeout, file.Name, func(tctx context.Context) (domain.OutputFile, error) {
		return tool.Transform(tctx, file, params)
	})
}

func (s *ConvertService) runAll(ctx context.Context, tool Tool, files []domain.UploadedFile, params any) ([]domain.OutputFile, error) {
	return bounded(ctx, s.transformTimeout, tool.Name, func(tctx context.Context) ([]domain.OutputFile, error) {
		return tool.TransformAll(tctx, files, params)
	})
}

type boundedResult[T any] struct {
	value T
	err   error
}

// bounded runs fn under the transform timeout. A transform that overruns is
// abandoned; its goroutine may finish in the background but its result only
// ever travels through the channel, so a late finisher writes nothing the
// caller can observe.
func bounded[T any](ctx context.Context, timeout time.Duration, subject string, fn func(ctx context.Context) (T, error)) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan boundedResult[T], 1)
	go func() {
		value, err := fn(tctx)
		done <- boundedResult[T]{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-tctx.Done():
		var zero T
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w: %s", domain.ErrTransformTimeout, subject)
		}
		return zero, tctx.Err()
	}
}

func (s *ConvertService) packageOutputs(tool Tool, outputs []domain.OutputFile) (key string, data []byte, contentType string, err error) {
	ts := time.Now().UnixMilli()
	if len(outputs) > 1 || tool.Bundle {
		entries := make([]archive.Entry, 0, len(outputs))
		for _, out := range outputs {
			entries = append(entries, archive.Entry{Name: out.Name, Content: out.Content})
		}
		data, err = archive.Build(entries)
		if err != nil {
			return "", nil, "", err
		}
		return fmt.Sprintf("%s_%d.zip", tool.Name, ts), data, "application/zip", nil
	}

	out := outputs[0]
	ext := strings.TrimPrefix(filepath.Ext(out.Name), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", tool.Name, ts, ext), out.Content, out.ContentType, nil
}

func (s *ConvertService) storeResult(ctx context.Context, key string, data []byte, contentType string) (Result, error) {
	publicURL, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		// one bounded retry: transient store blips are plausible, broken
		// inputs are not
		log.Warnf("store put %s failed, retrying once: %v", key, err)
		publicURL, err = s.store.Put(ctx, key, data, contentType)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		return Result{}, err
	}
	return Result{URL: publicURL, Key: key}, nil
}

// outputName derives a deterministic result name from the input name, or a
// timestamped one when the input name has no usable stem.
func outputName(inputName, op, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	if stem == "" || stem == "." {
		return generatedName(op, ext)
	}
	return stem + "-" + op + "." + ext
}

func generatedName(op, ext string) string {
	return fmt.Sprintf("%s-%d.%s", op, time.Now().UnixMilli(), ext)
}
