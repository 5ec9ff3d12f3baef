package services

import (
	"context"
	"os"
	"sync"

	"github.com/foxxcyber/docfields/internal/llm"
	"github.com/foxxcyber/docfields/internal/models"
)

type fakeRecognizer struct {
	mu        sync.Mutex
	fragments []string
	err       error
	seen      []string
	onCall    func(imagePath string)
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, imagePath)
	if f.onCall != nil {
		f.onCall(imagePath)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.fragments, nil
}

func (f *fakeRecognizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// fakeRasterizer writes a real temporary file so tests can check it is released
type fakeRasterizer struct {
	err      error
	rendered []string
	released []string
}

func (f *fakeRasterizer) RenderFirstPage(_ context.Context, documentPath string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	tmp, err := os.CreateTemp("", "page-*.png")
	if err != nil {
		return "", nil, err
	}
	tmp.Close()
	f.rendered = append(f.rendered, tmp.Name())
	return tmp.Name(), func() {
		f.released = append(f.released, tmp.Name())
		os.Remove(tmp.Name())
	}, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	requests []llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) Name() string {
	return "fake"
}

// stubExtractor returns fixed values and records what it was asked to parse
type stubExtractor struct {
	text      string
	result    models.ExtractionResult
	err       error
	parsed    []string
	schemas   []models.FieldSchema
	recognize int
}

func (s *stubExtractor) Recognize(context.Context, string) (string, error) {
	s.recognize++
	return s.text, s.err
}

func (s *stubExtractor) Parse(_ context.Context, text string, schema models.FieldSchema) (models.ExtractionResult, error) {
	s.parsed = append(s.parsed, text)
	s.schemas = append(s.schemas, schema)
	if s.err != nil {
		return nil, s.err
	}
	out := make(models.ExtractionResult, len(s.result))
	for k, v := range s.result {
		out[k] = v
	}
	return out, nil
}
