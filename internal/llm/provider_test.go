package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ServesResponsesInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"question":"first"}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockJSON(map[string]any{"question": "second"}),
	)

	resp, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "one"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"question":"first"}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}
	if resp.Usage.InputTokens != 10 || resp.StopReason != "end" || resp.Model != "mock" {
		t.Fatalf("unexpected response metadata: %+v", resp)
	}
	if mock.Remaining() != 1 {
		t.Fatalf("expected 1 queued response, got %d", mock.Remaining())
	}

	resp, err = mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"question":"second"}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}
}

func TestMockProvider_EmptyQueueIsUnavailable(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected *ErrProviderUnavailable, got %T", err)
	}
	if KindOf(err) != KindUnavailable {
		t.Fatalf("expected kind %q, got %q", KindUnavailable, KindOf(err))
	}
}

func TestMockProvider_RecordsCallsAndPurposes(t *testing.T) {
	mock := NewMockProvider(MockJSON(struct{}{}), MockJSON(struct{}{}))

	ctx := WithPurpose(context.Background(), PurposeAnalysis)
	_, _ = mock.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hello"}}})
	_, _ = mock.Generate(context.Background(), Request{})

	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
	want := []string{PurposeAnalysis, "unknown"}
	for i, p := range want {
		if mock.Purposes[i] != p {
			t.Errorf("purpose %d = %q, want %q", i, mock.Purposes[i], p)
		}
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})

	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected *ErrRateLimit, got %T", err)
	}
}

func TestMockProvider_ModelID(t *testing.T) {
	if id := NewMockProvider().ModelID(); id != "mock" {
		t.Fatalf("expected 'mock', got %q", id)
	}
}

func TestRequestContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}
	if id := SessionIDFrom(ctx); id != "" {
		t.Fatalf("expected no session id, got %q", id)
	}

	ctx = WithSessionID(WithPurpose(ctx, PurposeAdaptiveQuestion), "s-42")
	if p := PurposeFrom(ctx); p != PurposeAdaptiveQuestion {
		t.Fatalf("expected %q, got %q", PurposeAdaptiveQuestion, p)
	}
	if id := SessionIDFrom(ctx); id != "s-42" {
		t.Fatalf("expected 's-42', got %q", id)
	}
	if WithSessionID(ctx, "") != ctx {
		t.Fatal("an empty session id should leave the context unchanged")
	}
}
