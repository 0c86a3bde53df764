package rag

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeEmbedder returns a fixed vector for every input text.
type fakeEmbedder struct {
	// vec is returned once per input text.
	vec []float32
	// err is returned instead of embeddings when non-nil.
	err error
	// calls records the texts passed to each Embed call.
	calls [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// fakeStore returns canned documents from Search.
type fakeStore struct {
	// docs is the full ranked result, returned regardless of topK.
	docs []Document
	// err is returned from Search when non-nil.
	err error
	// gotTopK records the topK of the last Search call.
	gotTopK int
}

func (f *fakeStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (f *fakeStore) Ping(context.Context) error                            { return nil }
func (f *fakeStore) Close() error                                          { return nil }

func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]Document, error) {
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func docs(texts ...string) []Document {
	out := make([]Document, len(texts))
	for i, t := range texts {
		out[i] = Document{Content: t}
	}
	return out
}

// ---------------------------------------------------------------------------
// DefaultRetriever
// ---------------------------------------------------------------------------

func TestNewRetriever_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 4); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 4); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1}}, store, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(t.Context(), "q", 0); err != nil {
		t.Fatal(err)
	}
	if store.gotTopK != 4 {
		t.Errorf("topK = %d, want 4", store.gotTopK)
	}
}

func TestRetrieve_TruncatesOverDelivery(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: docs("a", "b", "c", "d", "e", "f")}
	r, _ := NewRetriever(&fakeEmbedder{vec: []float32{1}}, store, 4)

	got, err := r.Retrieve(t.Context(), "q", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Content != "a" || got[3].Content != "d" {
		t.Errorf("rank order not preserved: %+v", got)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	t.Parallel()

	embedErr := errors.New("embed down")
	searchErr := errors.New("store down")

	tests := []struct {
		name     string
		embedder *fakeEmbedder
		store    *fakeStore
		want     error
		wantMsg  string
	}{
		{"embed failure", &fakeEmbedder{err: embedErr}, &fakeStore{}, embedErr, "embedding query failed"},
		{"search failure", &fakeEmbedder{vec: []float32{1}}, &fakeStore{err: searchErr}, searchErr, "vector search failed"},
		{"empty vector", &fakeEmbedder{vec: nil}, &fakeStore{}, nil, "empty result"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, _ := NewRetriever(tc.embedder, tc.store, 4)
			_, err := r.Retrieve(t.Context(), "q", 4)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tc.want)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q missing %q", err, tc.wantMsg)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// PassageSearcher
// ---------------------------------------------------------------------------

func TestPassageSearcher_ReturnsTextInOrder(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: docs("first", "second")}
	r, _ := NewRetriever(&fakeEmbedder{vec: []float32{1}}, store, 4)

	got, err := NewPassageSearcher(r).Search(t.Context(), "q", 4)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Search() = %v, want %v", got, want)
	}
}

func TestPassageSearcher_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	r, _ := NewRetriever(&fakeEmbedder{vec: []float32{1}}, &fakeStore{}, 4)
	got, err := NewPassageSearcher(r).Search(t.Context(), "q", 4)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %#v, want empty non-nil slice", got)
	}
}

// ---------------------------------------------------------------------------
// Payload mapping
// ---------------------------------------------------------------------------

func TestPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	in := Document{
		Content:  "body",
		Source:   "notes.md",
		Metadata: map[string]string{MetaChunkIndex: "3", fieldText: "ignored"},
	}
	payload := payloadFor(in)
	if payload[fieldText] != "body" {
		t.Errorf("metadata overwrote text: %v", payload[fieldText])
	}

	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		fields[k] = v.(string)
	}
	out := documentFromFields(fields)
	if out.Content != "body" || out.Source != "notes.md" || out.Metadata[MetaChunkIndex] != "3" {
		t.Errorf("documentFromFields() = %+v", out)
	}
}

func TestParseWeaviateHits(t *testing.T) {
	t.Parallel()

	data := map[string]models.JSONObject{
		"Get": map[string]any{
			"DocumentQA": []any{
				map[string]any{
					"text":   "alpha",
					"source": "a.pdf",
					"_additional": map[string]any{
						"id":        "0b4c3a3e-1111-5222-8333-444455556666",
						"certainty": 0.91,
					},
				},
				"not-a-map",
				map[string]any{"text": "beta"},
			},
		},
	}

	got := parseWeaviateHits(data, "DocumentQA")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "alpha" || got[0].Source != "a.pdf" || got[0].ID == "" {
		t.Errorf("first hit = %+v", got[0])
	}
	if got[0].Score < 0.9 {
		t.Errorf("score = %v, want ~0.91", got[0].Score)
	}
	if got[1].Content != "beta" {
		t.Errorf("second hit = %+v", got[1])
	}

	if empty := parseWeaviateHits(map[string]models.JSONObject{}, "DocumentQA"); empty == nil || len(empty) != 0 {
		t.Errorf("missing Get should yield empty slice, got %#v", empty)
	}
}
