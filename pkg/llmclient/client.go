// Package llmclient is the concrete llmgateway.ProviderClient backed by the
// gRPC service described in proto/llm.proto. Grounded on pkg/agent/llm_grpc.go
// (insecure local transport via grpc.NewClient, one struct-to-wire mapping
// function per direction) and pkg/agent/llm_client.go (the Go-side interface
// and message shapes the gRPC layer translates to/from).
package llmclient

import (
	"context"
	"fmt"

	"github.com/nellia/prospectord/pkg/llmgateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const generateMethod = "/prospectord.llm.v1.LLMService/Generate"
const embedMethod = "/prospectord.llm.v1.LLMService/Embed"

// embedDimensions matches proto/llm.proto's EmbedResponse.vector length
// contract for the one embedding model this deployment is wired to.
const embedDimensions = 1536

type embedWireRequest struct {
	Text string `json:"text"`
}

type embedWireResponse struct {
	Vector []float32 `json:"vector"`
}

// wireRequest and wireResponse mirror proto/llm.proto's messages field-for-
// field; the JSON codec (codec.go) marshals these directly onto the wire.
type wireRequest struct {
	Prompt          string  `json:"prompt"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

type wireResponse struct {
	Content         string `json:"content"`
	PromptTokens    int32  `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	HaveTokenCounts bool   `json:"have_token_counts"`
	FinishReason    string `json:"finish_reason"`
	Blocked         bool   `json:"blocked"`
	BlockReason     string `json:"block_reason"`
}

// Client implements llmgateway.ProviderClient over a single gRPC connection.
type Client struct {
	conn *grpc.ClientConn
}

// New dials addr with insecure (plaintext) transport. The LLM service is
// expected to run as a sidecar or on localhost; deploying across a network
// boundary requires upgrading to TLS credentials.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("llmclient: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Generate implements llmgateway.ProviderClient.
func (c *Client) Generate(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	req := &wireRequest{
		Prompt:          prompt,
		Model:           opts.Model,
		Temperature:     opts.Temperature,
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	}
	resp := &wireResponse{}

	err := c.conn.Invoke(ctx, generateMethod, req, resp, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, classifyGRPCError(err)
	}

	if resp.Blocked {
		reason := resp.BlockReason
		if reason == "" {
			reason = "content blocked by provider safety filter"
		}
		return nil, &llmgateway.ProviderError{
			Kind:    llmgateway.ProviderErrorBlocked,
			Message: reason,
		}
	}

	return &llmgateway.ProviderResponse{
		Content:          resp.Content,
		PromptTokens:     int(resp.PromptTokens),
		CompletionTokens: int(resp.CompletionTokens),
		FinishReason:     resp.FinishReason,
		HaveTokenCounts:  resp.HaveTokenCounts,
	}, nil
}

// Embed implements pkg/ragstore.Embedder over the same gRPC connection
// Generate uses, calling the service's sibling Embed RPC (proto/llm.proto).
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := &embedWireRequest{Text: text}
	resp := &embedWireResponse{}

	if err := c.conn.Invoke(ctx, embedMethod, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, classifyGRPCError(err)
	}
	return resp.Vector, nil
}

// Dimensions implements pkg/ragstore.Embedder.
func (c *Client) Dimensions() int {
	return embedDimensions
}

// classifyGRPCError maps a transport-level gRPC failure to the
// llmgateway.ProviderError kind the gateway's retry policy dispatches on.
func classifyGRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorTransport, Message: err.Error(), Retryable: true}
	}

	switch st.Code() {
	case codes.ResourceExhausted:
		return &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorRateLimit, Message: st.Message(), Retryable: true}
	case codes.PermissionDenied, codes.InvalidArgument, codes.FailedPrecondition:
		return &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorBlocked, Message: st.Message()}
	case codes.DataLoss, codes.Unimplemented:
		// The provider returned a payload the wire codec couldn't decode, or
		// a method shape it doesn't recognize — not a transient transport
		// failure, and not a safety block either.
		return &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorInvalidResponse, Message: st.Message()}
	default:
		return &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorTransport, Message: st.Message(), Retryable: true}
	}
}
