package pagination

import (
	"encoding/base64"
	"encoding/json"
)

const (
	DefaultLimit = 20
	MaxLimit     = 250
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit,default=20" binding:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	CreatedAt string `json:"created_at,omitempty"`
	ID        string `json:"id,omitempty"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Page trims a result fetched with limit+1 rows and builds its PageInfo.
func Page[T any](data []*T, limit int, extractID func(*T) string) ([]*T, *PageInfo) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if len(data) <= limit {
		return data, &PageInfo{HasMore: false}
	}

	data = data[:limit]
	next, _ := EncodeCursor(Cursor{ID: extractID(data[len(data)-1])})

	return data, &PageInfo{HasMore: true, NextCursor: next}
}
