package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"toolhub/server/toolhub/domain"
)

type storedPut struct {
	key         string
	contentType string
	data        []byte
}

type fakeStore struct {
	mu       sync.Mutex
	puts     []storedPut
	failures int
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return "", fmt.Errorf("%w: simulated outage", domain.ErrStorage)
	}
	f.puts = append(f.puts, storedPut{key: key, contentType: contentType, data: data})
	return "http://files.local/bucket/" + key, nil
}

func uploadOf(names ...string) domain.Upload {
	files := make([]domain.UploadedFile, 0, len(names))
	for _, name := range names {
		files = append(files, domain.UploadedFile{
			Name:        name,
			ContentType: "image/png",
			SizeBytes:   int64(len(name)),
			Content:     []byte(name),
		})
	}
	return domain.Upload{Files: files}
}

// echoTool copies input to output; delays make later inputs finish first so
// ordering bugs in the fan-in would surface.
func echoTool(name string, bundle bool, delays map[string]time.Duration) Tool {
	return Tool{
		Name:     name,
		MinFiles: 1,
		Bundle:   bundle,
		Transform: func(ctx context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
			if d, ok := delays[file.Name]; ok {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return domain.OutputFile{}, ctx.Err()
				}
			}
			return domain.OutputFile{Name: file.Name + ".out", ContentType: "text/plain", Content: file.Content}, nil
		},
	}
}

func TestConvert_UnknownTool(t *testing.T) {
	t.Parallel()

	s := NewConvertService(&fakeStore{})
	_, err := s.Convert(context.Background(), "no-such-tool", uploadOf("a"))
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestConvert_EmptyFileList(t *testing.T) {
	t.Parallel()

	s := NewConvertService(&fakeStore{})
	_, err := s.Convert(context.Background(), "image-rotate", domain.Upload{})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestConvert_FanOutPreservesInputOrder(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s := NewConvertService(store)
	s.tools["echo"] = echoTool("echo", false, map[string]time.Duration{
		"first":  80 * time.Millisecond,
		"second": 40 * time.Millisecond,
		"third":  0,
	})

	result, err := s.Convert(context.Background(), "echo", uploadOf("first", "second", "third"))
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.HasPrefix(result.Key, "echo_") || !strings.HasSuffix(result.Key, ".zip") {
		t.Fatalf("multi-file output must be archived, got key %q", result.Key)
	}

	if len(store.puts) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.puts))
	}
	r, err := zip.NewReader(bytes.NewReader(store.puts[0].data), int64(len(store.puts[0].data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := []string{"first.out", "second.out", "third.out"}
	if len(r.File) != len(want) {
		t.Fatalf("entry count mismatch: got %d", len(r.File))
	}
	for i, f := range r.File {
		if f.Name != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, f.Name, want[i])
		}
	}
}

func TestConvert_SingleFailureAbortsEverything(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s := NewConvertService(store)
	s.tools["flaky"] = Tool{
		Name:     "flaky",
		MinFiles: 1,
		Transform: func(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
			if file.Name == "bad" {
				return domain.OutputFile{}, fmt.Errorf("%w: corrupt input", domain.ErrTransformation)
			}
			return domain.OutputFile{Name: file.Name, ContentType: "text/plain", Content: file.Content}, nil
		},
	}

	_, err := s.Convert(context.Background(), "flaky", uploadOf("good", "bad", "also-good"))
	if !errors.Is(err, domain.ErrTransformation) {
		t.Fatalf("expected ErrTransformation, got %v", err)
	}
	if len(store.puts) != 0 {
		t.Fatalf("nothing may be stored on failure, got %d puts", len(store.puts))
	}
}

func TestConvert_BundlePolicyWrapsSingleOutput(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s := NewConvertService(store)
	s.tools["wrapped"] = echoTool("wrapped", true, nil)

	result, err := s.Convert(context.Background(), "wrapped", uploadOf("only"))
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.HasSuffix(result.Key, ".zip") {
		t.Fatalf("expected archived key, got %q", result.Key)
	}
	if store.puts[0].contentType != "application/zip" {
		t.Fatalf("expected zip content type, got %q", store.puts[0].contentType)
	}
}

func TestConvert_SingleOutputPassesThrough(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s := NewConvertService(store)
	s.tools["plain"] = echoTool("plain", false, nil)

	result, err := s.Convert(context.Background(), "plain", uploadOf("doc"))
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.HasPrefix(result.Key, "plain/") || !strings.HasSuffix(result.Key, ".out") {
		t.Fatalf("unexpected key %q", result.Key)
	}
	if store.puts[0].contentType != "text/plain" {
		t.Fatalf("content type mismatch: %q", store.puts[0].contentType)
	}
	if !bytes.Equal(store.puts[0].data, []byte("doc")) {
		t.Fatalf("stored bytes mismatch")
	}
	if result.URL != "http://files.local/bucket/"+result.Key {
		t.Fatalf("url mismatch: %q", result.URL)
	}
}

func TestConvert_StorageRetriesOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 1}
	s := NewConvertService(store)
	s.tools["plain"] = echoTool("plain", false, nil)

	if _, err := s.Convert(context.Background(), "plain", uploadOf("doc")); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.puts))
	}

	store = &fakeStore{failures: 2}
	s = NewConvertService(store)
	s.tools["plain"] = echoTool("plain", false, nil)
	_, err := s.Convert(context.Background(), "plain", uploadOf("doc"))
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage after retry, got %v", err)
	}
}

func TestConvert_TransformTimeout(t *testing.T) {
	t.Parallel()

	s := NewConvertService(&fakeStore{})
	s.transformTimeout = 20 * time.Millisecond
	s.tools["slow"] = Tool{
		Name:     "slow",
		MinFiles: 1,
		Transform: func(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
			time.Sleep(time.Second)
			return domain.OutputFile{Name: file.Name, Content: file.Content}, nil
		},
	}

	_, err := s.Convert(context.Background(), "slow", uploadOf("doc"))
	if !errors.Is(err, domain.ErrTransformTimeout) {
		t.Fatalf("expected ErrTransformTimeout, got %v", err)
	}
}

func TestConvert_LateTransformResultDiscarded(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s := NewConvertService(store)
	s.transformTimeout = 20 * time.Millisecond

	finished := make(chan struct{})
	s.tools["straggler"] = Tool{
		Name:     "straggler",
		MinFiles: 1,
		Transform: func(_ context.Context, file domain.UploadedFile, _ any) (domain.OutputFile, error) {
			defer close(finished)
			time.Sleep(100 * time.Millisecond)
			return domain.OutputFile{Name: file.Name, ContentType: "text/plain", Content: file.Content}, nil
		},
	}

	out, err := s.Convert(context.Background(), "straggler", uploadOf("doc"))
	if !errors.Is(err, domain.ErrTransformTimeout) {
		t.Fatalf("expected ErrTransformTimeout, got %v", err)
	}
	if out != (Result{}) {
		t.Fatalf("timed-out convert must return a zero result, got %+v", out)
	}

	// let the abandoned transform complete; its output must go nowhere
	<-finished
	time.Sleep(20 * time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.puts) != 0 {
		t.Fatalf("abandoned transform result was stored: %v", store.puts)
	}
}

func TestConvert_ArityChecks(t *testing.T) {
	t.Parallel()

	s := NewConvertService(&fakeStore{})
	if _, err := s.Convert(context.Background(), "pdf-merge", uploadOf("one")); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for single-file merge, got %v", err)
	}
	if _, err := s.Convert(context.Background(), "image-base64", uploadOf("a", "b")); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for two-file base64, got %v", err)
	}
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	if got := outputName("photo.png", "rotated", "png"); got != "photo-rotated.png" {
		t.Fatalf("outputName mismatch: %q", got)
	}
	if got := outputName(".png", "rotated", "png"); !strings.HasPrefix(got, "rotated-") {
		t.Fatalf("expected generated name for empty stem, got %q", got)
	}
}
