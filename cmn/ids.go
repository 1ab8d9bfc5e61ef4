// Package cmn provides common low-level types and utilities shared by the
// storage engine and the gateway.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"math/rand"

	"github.com/teris-io/shortid"
)

// Alphabet for generating ids similar to shortid.DEFAULT_ABC.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var sid *shortid.Shortid

// InitIDGen seeds the process-wide id generator. Call once at startup.
func InitIDGen(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, idABC, seed)
}

// NewID generates a short, human-readable id prefixed with kind, e.g.
// NewID("obj") -> "obj-8hJ3nQaZ". Used for object_id, blob_id, upload_id
// and bucket_id so that ids stay short enough to show up in logs and XML
// without wrapping.
func NewID(kind string) string {
	raw := sid.MustGenerate()
	if !isAlpha(raw[0]) {
		raw = string(rune('a'+rand.Intn(26))) + raw
	}
	return kind + "-" + raw
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
