package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"snatchbot/models"
	"strconv"

	"github.com/samber/lo"
)

// ParseError means the payload was not the JSON shape the feed promises
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed tower feed payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UpstreamError is a failure the feed host reported inside an otherwise
// well-formed payload, e.g. {"error": "database offline"}. Handled like a
// transport failure by both trigger paths.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("tower feed reported an error: %s", e.Message)
}

// Parse decodes a feed payload into a snapshot. The payload is a JSON object
// mapping playfield names to objects keyed by site tokens:
//
//	{"Wailing Wastes": {"A1": {}, "A3": {}}, "Mort": {"C7": {}}}
//
// Token values are ignored. An empty object is a valid snapshot meaning no
// unclaimed sites anywhere. Playfield order in the payload is preserved,
// which is why this goes through a streaming decoder instead of a map.
func Parse(raw []byte) (*models.FeedSnapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ParseError{Err: fmt.Errorf("payload is not a JSON object")}
	}

	snapshot := &models.FeedSnapshot{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		name, ok := tok.(string)
		if !ok {
			return nil, &ParseError{Err: fmt.Errorf("unexpected key %v", tok)}
		}

		// An explicit error field replaces the listing entirely
		if name == "error" {
			var message string
			if err := dec.Decode(&message); err != nil {
				return nil, &ParseError{Err: fmt.Errorf("error field: %w", err)}
			}
			return nil, &UpstreamError{Message: message}
		}

		var sites map[string]json.RawMessage
		if err := dec.Decode(&sites); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("playfield %q: %w", name, err)}
		}
		if sites == nil {
			return nil, &ParseError{Err: fmt.Errorf("playfield %q is not an object", name)}
		}

		snapshot.Regions = append(snapshot.Regions, models.FeedRegion{
			Playfield: name,
			Tokens:    lo.Keys(sites),
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Err: err}
	}

	// The closing brace must end the payload. A body with more bytes behind
	// it is corrupt no matter how well the object prefix parsed.
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Err: fmt.Errorf("trailing data after payload")}
	}

	return snapshot, nil
}

// SiteNumber extracts the numeric part of a site token. The leading
// character is a grid letter the catalog does not key on, so "A3" is site 3
// and "C27" is site 27. Tokens without a usable non-negative number report
// false; they can never match a catalog row.
func SiteNumber(token string) (int, bool) {
	if len(token) < 2 {
		return 0, false
	}

	number, err := strconv.Atoi(token[1:])
	if err != nil || number < 0 {
		return 0, false
	}

	return number, true
}
