// Package vectorindex wraps github.com/qdrant/go-client for the per-job
// ephemeral vector collection pkg/ragstore builds on top of. Grounded on
// Tangerg-lynx's ai/providers/vectorstores/qdrant.VectorStore: same
// collection-exists-then-create pattern, same PointStruct/payload shape,
// same ScoredPoint-to-plain-Go-value conversion — narrowed to exactly the
// upsert/query/delete operations the RAG store needs (no filter DSL, no
// document batcher abstraction, since a prospecting job's seed set is small
// enough to upsert in one call).
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// ErrUnavailable is returned when the index cannot be reached or a
// collection operation fails; pkg/ragstore treats this as "degrade to
// keyword overlap", not a fatal error (spec.md §4.C4).
var ErrUnavailable = errors.New("vectorindex: unavailable")

// Point is one chunk's vector plus its source text, kept in the payload so
// a query result can return chunk text directly.
type Point struct {
	Text   string
	Vector []float32
}

// Match is a single query result.
type Match struct {
	Text  string
	Score float32
}

// Index wraps a qdrant.Client, scoping all operations to one collection per
// job (collection name == job ID) so concurrent jobs never collide.
type Index struct {
	client *qdrant.Client
}

// New dials addr (host:port) for the Qdrant gRPC API. addr may be empty, in
// which case New returns nil, nil and callers fall back to keyword overlap
// (spec.md §4.C4: "if the ... index library is unavailable").
func New(addr string) (*Index, error) {
	if addr == "" {
		return nil, nil
	}
	host, port, err := splitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Index{client: client}, nil
}

// EnsureCollection creates the job's collection if it does not already
// exist, sized for vectors of the given dimension. Idempotent — concurrent
// callers for the same job converge on one collection (spec.md §4.C4
// "build ... is idempotent per job").
func (idx *Index) EnsureCollection(ctx context.Context, jobID string, dimension int) error {
	exists, err := idx.client.CollectionExists(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if exists {
		return nil
	}
	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: jobID,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Upsert adds points to the job's collection.
func (idx *Index) Upsert(ctx context.Context, jobID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	upsert := &qdrant.UpsertPoints{CollectionName: jobID}
	for _, p := range points {
		contentValue, err := qdrant.NewValue(p.Text)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		upsert.Points = append(upsert.Points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: map[string]*qdrant.Value{"text": contentValue},
		})
	}
	if _, err := idx.client.Upsert(ctx, upsert); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Query returns the top-k nearest points to vector in the job's collection.
func (idx *Index) Query(ctx context.Context, jobID string, vector []float32, k int) ([]Match, error) {
	scored, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: jobID,
		Query:          qdrant.NewQuery(vector...),
		Limit:          ptrUint64(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	matches := make([]Match, 0, len(scored))
	for _, sp := range scored {
		text := ""
		if payload := sp.GetPayload(); payload != nil {
			if v, ok := payload["text"]; ok {
				text = v.GetStringValue()
			}
		}
		matches = append(matches, Match{Text: text, Score: sp.GetScore()})
	}
	return matches, nil
}

// DropCollection removes the job's collection once the job is done.
func (idx *Index) DropCollection(ctx context.Context, jobID string) error {
	if err := idx.client.DeleteCollection(ctx, jobID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (idx *Index) Close() error {
	return idx.client.Close()
}

func ptrUint64(v uint64) *uint64 { return &v }

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
