// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// ContentDigest returns the hex-encoded BLAKE2b-256 digest of the canonical
// JSON encoding of contents. Two bundles carry "equivalent knowledge" iff
// their digests match.
func ContentDigest(contents json.RawMessage) (string, error) {
	canon, err := canonicalize(contents)
	if err != nil {
		return "", err
	}
	sum := blake2bSum(canon)
	return hex.EncodeToString(sum[:]), nil
}

func blake2bSum(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

// canonicalize re-encodes arbitrary JSON with map keys sorted at every
// level, so semantically identical objects always produce byte-identical
// output regardless of the original field order.
func canonicalize(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
