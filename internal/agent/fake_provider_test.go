package agent

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/jibot/internal/providers"
)

// fakeProvider returns a canned reply and records the last request.
type fakeProvider struct {
	reply string
	err   error
	last  providers.ChatRequest
	calls int
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) DefaultModel() string { return "fake-1" }

func (f *fakeProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply}, nil
}

var errUpstream = errors.New("upstream 503")
