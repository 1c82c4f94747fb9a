// Package geminitest provides an in-memory gemini.Generator for handler and
// service tests.
package geminitest

import (
	"context"
	"errors"
	"sync"

	"gemini-studio/internal/gemini"

	"google.golang.org/genai"
)

// Fake answers each call through the matching function field. A nil field
// returns an error so tests notice unexpected calls.
type Fake struct {
	TextFunc         func(ctx context.Context, req gemini.TextRequest) (string, error)
	FunctionCallFunc func(ctx context.Context, req gemini.FunctionRequest) (*genai.FunctionCall, error)
	ImageFunc        func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error)
	ImagenFunc       func(ctx context.Context, prompt, aspectRatio string) (*gemini.Media, error)
	VideoFunc        func(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error)

	mu            sync.Mutex
	TextCalls     []gemini.TextRequest
	FunctionCalls []gemini.FunctionRequest
	ImageCalls    []gemini.ImageRequest
	ImagenCalls   []string
	VideoCalls    []gemini.VideoRequest
}

var errUnexpected = errors.New("geminitest: unexpected call")

var _ gemini.Generator = (*Fake)(nil)

// Texts returns a Fake whose Text calls return the given replies in order,
// repeating the last one once they run out.
func Texts(replies ...string) *Fake {
	f := &Fake{}
	f.TextFunc = func(ctx context.Context, req gemini.TextRequest) (string, error) {
		f.mu.Lock()
		i := len(f.TextCalls) - 1
		f.mu.Unlock()
		if len(replies) == 0 {
			return "", nil
		}
		if i >= len(replies) {
			i = len(replies) - 1
		}
		return replies[i], nil
	}
	return f
}

func (f *Fake) Text(ctx context.Context, req gemini.TextRequest) (string, error) {
	f.mu.Lock()
	f.TextCalls = append(f.TextCalls, req)
	f.mu.Unlock()
	if f.TextFunc == nil {
		return "", errUnexpected
	}
	return f.TextFunc(ctx, req)
}

func (f *Fake) FunctionCall(ctx context.Context, req gemini.FunctionRequest) (*genai.FunctionCall, error) {
	f.mu.Lock()
	f.FunctionCalls = append(f.FunctionCalls, req)
	f.mu.Unlock()
	if f.FunctionCallFunc == nil {
		return nil, errUnexpected
	}
	return f.FunctionCallFunc(ctx, req)
}

func (f *Fake) Image(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
	f.mu.Lock()
	f.ImageCalls = append(f.ImageCalls, req)
	f.mu.Unlock()
	if f.ImageFunc == nil {
		return nil, errUnexpected
	}
	return f.ImageFunc(ctx, req)
}

func (f *Fake) Imagen(ctx context.Context, prompt, aspectRatio string) (*gemini.Media, error) {
	f.mu.Lock()
	f.ImagenCalls = append(f.ImagenCalls, prompt)
	f.mu.Unlock()
	if f.ImagenFunc == nil {
		return nil, errUnexpected
	}
	return f.ImagenFunc(ctx, prompt, aspectRatio)
}

func (f *Fake) Video(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error) {
	f.mu.Lock()
	f.VideoCalls = append(f.VideoCalls, req)
	f.mu.Unlock()
	if f.VideoFunc == nil {
		return nil, errUnexpected
	}
	return f.VideoFunc(ctx, req)
}

// TextCallCount is safe to use while calls are still in flight.
func (f *Fake) TextCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.TextCalls)
}
