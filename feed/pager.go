// Package feed loads pages of public clips and turns swipe gestures
// into bounded navigation over them.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"clipfeed/clip-api/model"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// ErrFetchInProgress is returned when a page load is requested while a
// previous one is still pending. The caller must drop the request,
// running both would consume the same cursor twice and duplicate or
// skip items.
var ErrFetchInProgress = errors.New("a page fetch is already in progress")

// ErrBadCursor is returned for continuation tokens that didn't come
// from this pager.
var ErrBadCursor = errors.New("malformed cursor")

// Page is one batch of feed records. HasMore is a heuristic: a short
// page means the result set is exhausted.
type Page struct {
	Items      []model.VideoAsset `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// cursor is the keyset position after the last returned record.
// External callers only ever see its encoded form and must treat that
// as opaque.
type cursor struct {
	CreatedAt int64  `json:"c"`
	ID        string `json:"i"`
}

func encodeCursor(c cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(token string) (cursor, error) {
	var c cursor

	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, fmt.Errorf("%w, %v", ErrBadCursor, err)
	}

	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%w, %v", ErrBadCursor, err)
	}

	return c, nil
}

// Pager fetches consecutive pages of the public feed, newest first.
// One Pager belongs to one consumer; the busy guard makes overlapping
// calls from that consumer impossible, it is not a general lock.
type Pager struct {
	db       *gorm.DB
	pageSize int
	fetching atomic.Bool
}

func NewPager(db *gorm.DB) *Pager {
	return &Pager{
		db:       db,
		pageSize: viper.GetInt("feed.page_size"),
	}
}

// LoadPage returns the page after token, or the first page when token
// is empty.
func (p *Pager) LoadPage(ctx context.Context, token string) (Page, error) {
	if !p.fetching.CompareAndSwap(false, true) {
		return Page{}, ErrFetchInProgress
	}
	defer p.fetching.Store(false)

	q := p.db.WithContext(ctx).
		Where("visibility = ?", model.VisibilityPublic).
		Order("created_at DESC, id DESC").
		Limit(p.pageSize)

	if token != "" {
		cur, err := decodeCursor(token)
		if err != nil {
			return Page{}, err
		}

		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var items []model.VideoAsset
	if err := q.Find(&items).Error; err != nil {
		return Page{}, fmt.Errorf("failed to fetch feed page, %w", err)
	}

	page := Page{
		Items:   items,
		HasMore: len(items) == p.pageSize,
	}

	if page.HasMore {
		last := items[len(items)-1]
		page.NextCursor = encodeCursor(cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return page, nil
}
