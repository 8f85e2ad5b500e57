package model

import (
	"encoding/base64"
	"encoding/json"
	"sort"
)

// Handle canonicalizes req (any JSON-marshalable request envelope) and
// base64-encodes it. Canonicalization sorts object keys recursively so
// that two requests with the same content produce the same handle
// regardless of struct field order or map iteration order — the same
// discipline the teacher's series-fingerprint helper applies to label
// sets, generalized here to whole request envelopes.
func Handle(req interface{}) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canon, err := canonicalJSON(generic)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(canon), nil
}

// ResolveHandle decodes a handle back into the generic JSON value of
// the request that produced it. Callers re-run the request by
// unmarshaling into the concrete request type they expect.
func ResolveHandle(h string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(h)
}

// canonicalJSON re-encodes a decoded JSON value with every object's
// keys sorted, recursively.
func canonicalJSON(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := canonicalJSON(t[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil

	case []interface{}:
		buf := []byte{'['}
		for i, e := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := canonicalJSON(e)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil

	default:
		return json.Marshal(t)
	}
}
