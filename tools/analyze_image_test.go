package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnforge/meshpilot/core"
)

type stubVisionGateway struct {
	responses []*core.AIResponse
	errs      []error
	calls     int
}

func (s *stubVisionGateway) AnalyzeImage(ctx context.Context, prompt string, imageData []byte, mimeType string, opts *core.AIOptions) (*core.AIResponse, error) {
	i := s.calls
	s.calls++
	var resp *core.AIResponse
	var err error
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

func TestAnalyzeImageTool_Success(t *testing.T) {
	vision := &stubVisionGateway{responses: []*core.AIResponse{{Content: "a red ceramic mug"}}}
	tool := NewAnalyzeImageTool(vision, nil)

	res := tool.Run(context.Background(), []Attachment{{Data: []byte("fakejpeg"), MimeType: "image/jpeg"}})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Payload["imageCount"] != 1 {
		t.Errorf("imageCount = %v, want 1", res.Payload["imageCount"])
	}
}

func TestAnalyzeImageTool_NoAttachments(t *testing.T) {
	vision := &stubVisionGateway{}
	tool := NewAnalyzeImageTool(vision, nil)

	res := tool.Run(context.Background(), nil)
	if res.Success {
		t.Fatal("expected failure when no attachments are provided")
	}
}

func TestAnalyzeImageTool_FallsBackOnVisionFailure(t *testing.T) {
	vision := &stubVisionGateway{errs: []error{errors.New("provider unavailable")}}
	tool := NewAnalyzeImageTool(vision, nil)

	res := tool.Run(context.Background(), []Attachment{{Data: []byte("x"), MimeType: "image/png"}})
	if !res.Success {
		t.Fatalf("expected success with templated fallback, got %+v", res)
	}
	descriptions, ok := res.Payload["analysis"].([]string)
	if !ok || len(descriptions) != 1 {
		t.Fatalf("analysis = %+v", res.Payload["analysis"])
	}
}
