// Copyright 2026 The GameManager Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the GameManager's standard CBOR encoding
// configuration.
//
// The GameManager uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the upstream tool/RPC protocol, the
//     lobby wire protocol, and Bridge IPC frames.
//   - CBOR for internal, opaque-to-clients state: the multiplexer's
//     on-disk checkpoint tree and the supervisor's per-instance
//     checkpoint payload.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every internal package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations (files, tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets, IPC):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON or interact with CLI tooling.
//     Example: the checkpoint tree's internal snapshot/Node envelope.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: types shared between
//     the upstream tool protocol (JSON) and the Bridge IPC socket
//     (also JSON, but occasionally persisted as CBOR in the
//     checkpoint tree).
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
