package chatstore

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// encodeSessions writes the collection as a single JSON object keyed by
// session id. Keys are emitted in insertion order so that ties in recency
// stay stable across reloads. Sessions without messages are skipped.
func encodeSessions(order []string, sessions map[string]*Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, id := range order {
		s, ok := sessions[id]
		if !ok || s == nil || len(s.Messages) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(id)
		if err != nil {
			return nil, errors.Wrap(err, "chatstore: encode session id")
		}
		value, err := json.Marshal(s)
		if err != nil {
			return nil, errors.Wrapf(err, "chatstore: encode session %s", id)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeSessions reads a collection written by encodeSessions and returns
// the keys in document order.
func decodeSessions(data []byte) ([]string, map[string]*Session, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, errors.Wrap(err, "chatstore: read collection")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.Errorf("chatstore: collection is not an object (got %v)", tok)
	}

	order := []string{}
	sessions := map[string]*Session{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, errors.Wrap(err, "chatstore: read session key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.Errorf("chatstore: unexpected key token %v", tok)
		}
		var s Session
		if err := dec.Decode(&s); err != nil {
			return nil, nil, errors.Wrapf(err, "chatstore: decode session %s", key)
		}
		if s.ID == "" {
			s.ID = key
		}
		for _, m := range s.Messages {
			if !validRole(m.Role) {
				return nil, nil, errors.Errorf("chatstore: session %s has message with unknown role %q", key, m.Role)
			}
		}
		if _, seen := sessions[key]; !seen {
			order = append(order, key)
		}
		sessions[key] = &s
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, errors.Wrap(err, "chatstore: read collection end")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("chatstore: trailing data after collection")
	}
	return order, sessions, nil
}
