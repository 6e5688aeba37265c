// Package catalog holds the read-only set of searchable videos.
package catalog

import (
	"fmt"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// Item is one catalog row (immutable value object).
type Item struct {
	title               string
	videoID             string
	titleEmbedding      []float32
	transcriptEmbedding []float32
}

// NewItem creates an Item. Embedding slices are owned by the Item afterwards.
func NewItem(title, videoID string, titleEmbedding, transcriptEmbedding []float32) Item {
	return Item{
		title:               title,
		videoID:             videoID,
		titleEmbedding:      titleEmbedding,
		transcriptEmbedding: transcriptEmbedding,
	}
}

// Title returns the video title.
func (i *Item) Title() string { return i.title }

// VideoID returns the video identifier.
func (i *Item) VideoID() string { return i.videoID }

// TitleEmbedding returns the title embedding. Callers must not modify it.
func (i *Item) TitleEmbedding() []float32 { return i.titleEmbedding }

// TranscriptEmbedding returns the transcript embedding. Callers must not modify it.
func (i *Item) TranscriptEmbedding() []float32 { return i.transcriptEmbedding }

// Catalog is an ordered, read-only sequence of items sharing one embedding dimension.
// It is never mutated after New, so concurrent readers need no locking.
type Catalog struct {
	items     []Item
	dimension int
}

// New validates items and creates a Catalog.
// dimension <= 0 infers the dimension from the first item.
// Every item must carry both embeddings with exactly that dimension and a non-empty, unique video ID.
func New(items []Item, dimension int) (*Catalog, error) {
	if dimension <= 0 && len(items) > 0 {
		dimension = len(items[0].titleEmbedding)
	}
	if len(items) > 0 && dimension == 0 {
		return nil, fmt.Errorf("%w: items have empty embeddings", domain.ErrDimensionMismatch)
	}

	seen := make(map[string]int, len(items))
	for idx := range items {
		it := &items[idx]
		if it.videoID == "" {
			return nil, fmt.Errorf("item %d: video_id is required", idx)
		}
		if prev, ok := seen[it.videoID]; ok {
			return nil, fmt.Errorf("item %d: duplicate video_id %q (first seen at %d)", idx, it.videoID, prev)
		}
		seen[it.videoID] = idx

		if len(it.titleEmbedding) != dimension {
			return nil, domain.NewDimensionMismatch(
				fmt.Sprintf("items[%d].title_embedding", idx), dimension, len(it.titleEmbedding))
		}
		if len(it.transcriptEmbedding) != dimension {
			return nil, domain.NewDimensionMismatch(
				fmt.Sprintf("items[%d].transcript_embedding", idx), dimension, len(it.transcriptEmbedding))
		}
	}

	return &Catalog{items: items, dimension: dimension}, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Dimension returns the shared embedding dimension D (0 for an empty catalog built without one).
func (c *Catalog) Dimension() int { return c.dimension }

// At returns the item at index i. Panics if i is out of range.
func (c *Catalog) At(i int) *Item { return &c.items[i] }
