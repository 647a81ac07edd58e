package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// Tree is the transport-independent nested representation of a webhook
// body. After Normalize, downstream code never learns whether the
// source was JSON, urlencoded, or multipart.
type Tree map[string]any

// maxPartSize caps each multipart field read; binary uploads riding on
// the order endpoint are not order data
const maxPartSize = 1 << 20

// Normalize parses raw body bytes into a Tree according to the declared
// content type. An unknown or missing content type is attempted as JSON
// first, then as urlencoded form data. Structural problems surface as
// an error; semantic validation is the resolver's job.
func Normalize(body []byte, contentType string) (Tree, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case strings.Contains(mediaType, "application/json"):
		return parseJSON(body)
	case strings.Contains(mediaType, "application/x-www-form-urlencoded"):
		return parseURLEncoded(body)
	case strings.Contains(mediaType, "multipart/form-data"):
		return parseMultipart(body, params["boundary"])
	default:
		if tree, err := parseJSON(body); err == nil {
			return tree, nil
		}
		return parseURLEncoded(body)
	}
}

func parseJSON(body []byte) (Tree, error) {
	var tree Tree
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return tree, nil
}

func parseURLEncoded(body []byte) (Tree, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("invalid form payload: %w", err)
	}

	tree := Tree{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		tree.set(splitBracketKey(key), vals[0])
	}
	return tree, nil
}

func parseMultipart(body []byte, boundary string) (Tree, error) {
	if boundary == "" {
		return nil, fmt.Errorf("multipart payload missing boundary")
	}

	tree := Tree{}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid multipart payload: %w", err)
		}

		// File parts carry binary data, not order fields
		if part.FileName() != "" {
			part.Close()
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxPartSize))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("reading multipart field %q: %w", part.FormName(), err)
		}
		if name := part.FormName(); name != "" {
			tree.set(splitBracketKey(name), string(value))
		}
	}
	return tree, nil
}

// splitBracketKey breaks a bracket-notation form key into its path
// segments: "form[fields][phone]" -> ["form", "fields", "phone"].
// Keys without brackets come back as a single segment.
func splitBracketKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}
	}

	segments := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			// Malformed trailing text; keep it as a literal segment
			segments = append(segments, rest)
			break
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			segments = append(segments, rest[1:])
			break
		}
		if seg := rest[1:end]; seg != "" {
			segments = append(segments, seg)
		}
		rest = rest[end+1:]
	}
	return segments
}

// set builds out the nested path segment by segment, overwriting any
// scalar that stands where an object needs to be
func (t Tree) set(path []string, value any) {
	if len(path) == 0 {
		return
	}

	node := t
	for _, seg := range path[:len(path)-1] {
		child, ok := node[seg].(Tree)
		if !ok {
			if m, isMap := node[seg].(map[string]any); isMap {
				child = Tree(m)
			} else {
				child = Tree{}
			}
			node[seg] = child
		}
		node = child
	}
	node[path[len(path)-1]] = value
}

// Get walks the tree along path. Numeric segments index into arrays so
// JSON line-item lookups ("line_items", "0", "name") work the same as
// nested form keys.
func (t Tree) Get(path ...string) (any, bool) {
	var node any = t
	for _, seg := range path {
		switch v := node.(type) {
		case Tree:
			child, ok := v[seg]
			if !ok {
				return nil, false
			}
			node = child
		case map[string]any:
			child, ok := v[seg]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			node = v[idx]
		default:
			return nil, false
		}
	}
	return node, true
}

// GetString walks the tree along path and stringifies the scalar found
// there. Objects and arrays yield an empty string.
func (t Tree) GetString(path ...string) string {
	node, ok := t.Get(path...)
	if !ok {
		return ""
	}
	return stringify(node)
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}
