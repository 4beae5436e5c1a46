package repository

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor marks a position in a createdAt-descending trip listing. Backends
// fill CreatedAt with their own stored representation (text timestamp for
// the relational store, unix milliseconds for the document store); ID breaks
// ties. The encoded form is opaque to callers.
type Cursor struct {
	CreatedAt string `json:"c"`
	ID        string `json:"id"`
}

// Encode serializes the cursor into an opaque token.
func (c Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by Encode. An empty token yields the
// zero cursor (first page).
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.ID == "" {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
