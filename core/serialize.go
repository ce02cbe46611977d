// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the two record types. The field order is
// part of the on-disk format; append new fields at the end only.

// IDMUS serializes IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// QueryRecordMUS serializes QueryRecords.
var QueryRecordMUS = queryRecordMUS{}

type queryRecordMUS struct{}

func (queryRecordMUS) Marshal(v QueryRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.QueryID, bs)
	n += ord.String.Marshal(v.User, bs[n:])
	n += ord.String.Marshal(v.Session, bs[n:])
	n += ord.String.Marshal(v.Query, bs[n:])
	n += ord.String.Marshal(v.Model, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.Response, bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += ord.Bool.Marshal(v.UseRAGDatabase, bs[n:])
	n += marshalStringSlice(v.ContextBranches, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.Timestamp, bs[n:])
	return n
}

func (queryRecordMUS) Unmarshal(bs []byte) (v QueryRecord, n int, err error) {
	var (
		m      int
		status string
	)
	if v.QueryID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.User, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Session, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Query, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Model, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if status, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Status = QueryStatus(status)
	n += m
	if v.Response, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Error, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.UseRAGDatabase, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.ContextBranches, m, err = unmarshalStringSlice(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Timestamp, m, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (queryRecordMUS) Size(v QueryRecord) (size int) {
	size = ord.String.Size(v.QueryID)
	size += ord.String.Size(v.User)
	size += ord.String.Size(v.Session)
	size += ord.String.Size(v.Query)
	size += ord.String.Size(v.Model)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.Response)
	size += ord.String.Size(v.Error)
	size += ord.Bool.Size(v.UseRAGDatabase)
	size += sizeStringSlice(v.ContextBranches)
	size += raw.TimeUnixMicro.Size(v.Timestamp)
	return size
}

// ContextChunkMUS serializes ContextChunks.
var ContextChunkMUS = contextChunkMUS{}

type contextChunkMUS struct{}

func (contextChunkMUS) Marshal(v ContextChunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	return n
}

func (contextChunkMUS) Unmarshal(bs []byte) (v ContextChunk, n int, err error) {
	var (
		m  int
		id uint64
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	v.Id = ID(id)
	if v.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var length int
	if length, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if length > 0 {
		v.Vector = make([]float32, length)
		for i := 0; i < length; i++ {
			if v.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}
	if v.InsertedAt, m, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (contextChunkMUS) Size(v ContextChunk) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Source)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	return size
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	var (
		length int
		m      int
	)
	if length, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if length <= 0 {
		return nil, n, nil
	}
	v = make([]string, length)
	for i := 0; i < length; i++ {
		if v[i], m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
	}
	return
}

func sizeStringSlice(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}
