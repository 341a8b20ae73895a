package summarizer

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meeting-summarizer/pkg/metrics"
)

func testConfig() Config {
	return Config{Model: "test-model", Temperature: 0.2, HistoryLimit: 10}
}

func TestGenerateReturnsProviderText(t *testing.T) {
	client := &stubChatClient{completion: Completion{
		Text:  "- **Decision**: ship on Friday",
		Usage: metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
	gen := NewGenerator(testConfig(), client, nil, newTestLogger())

	got := gen.Generate(context.Background(), "Alice: we ship Friday. Bob: agreed.", "List decisions")
	require.False(t, got.Fallback)
	require.Equal(t, "- **Decision**: ship on Friday", got.Text)
	require.Equal(t, 15, got.Usage.TotalTokens)

	require.Equal(t, "test-model", client.lastRequest.Model)
	require.Contains(t, client.lastRequest.Prompt, `perform this task: "List decisions"`)
	require.Contains(t, client.lastRequest.Prompt, "---\nAlice: we ship Friday. Bob: agreed.\n---")
	require.Contains(t, client.lastRequest.Prompt, "strictly in Markdown")
}

func TestGenerateFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		client *stubChatClient
	}{
		{name: "provider error", client: &stubChatClient{completionErr: errors.New("quota exceeded")}},
		{name: "empty text", client: &stubChatClient{completion: Completion{Text: ""}}},
		{name: "whitespace text", client: &stubChatClient{completion: Completion{Text: " \n\t "}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := NewGenerator(testConfig(), tt.client, nil, newTestLogger())
			got := gen.Generate(context.Background(), "transcript", "instruction")
			require.True(t, got.Fallback)
			require.Equal(t, FallbackMessage, got.Text)
		})
	}
}

func TestStreamFallsBackBeforeFirstFragment(t *testing.T) {
	tests := []struct {
		name   string
		client *stubChatClient
	}{
		{name: "open error", client: &stubChatClient{streamErr: errors.New("dial tcp: refused")}},
		{name: "error before content", client: &stubChatClient{stream: newScriptedStream(errors.New("reset"))}},
		{name: "eof before content", client: &stubChatClient{stream: newScriptedStream(nil, "", "")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := NewGenerator(testConfig(), tt.client, nil, newTestLogger())
			stream := gen.Stream(context.Background(), "transcript", "instruction")
			require.True(t, IsFallback(stream))

			frag, err := stream.Recv()
			require.NoError(t, err)
			require.Equal(t, FallbackMessage, frag)
			_, err = stream.Recv()
			require.ErrorIs(t, err, io.EOF)
			require.NoError(t, stream.Close())

			if upstream, ok := tt.client.stream.(*scriptedStream); ok {
				require.EqualValues(t, 1, upstream.closed.Load())
			}
		})
	}
}

func TestStreamRelaysFragmentsInOrder(t *testing.T) {
	upstream := newScriptedStream(nil, "", "- one", "", "\n- two")
	gen := NewGenerator(testConfig(), &stubChatClient{stream: upstream}, nil, newTestLogger())

	stream := gen.Stream(context.Background(), "transcript", "instruction")
	require.False(t, IsFallback(stream))

	var got []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, frag)
	}
	require.Equal(t, []string{"- one", "\n- two"}, got)
	require.NoError(t, stream.Close())
	require.EqualValues(t, 1, upstream.closed.Load())
}

func TestStreamPropagatesMidStreamError(t *testing.T) {
	boom := errors.New("upstream reset")
	gen := NewGenerator(testConfig(), &stubChatClient{stream: newScriptedStream(boom, "partial")}, nil, newTestLogger())

	stream := gen.Stream(context.Background(), "transcript", "instruction")
	frag, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "partial", frag)

	_, err = stream.Recv()
	require.ErrorIs(t, err, boom)
}
