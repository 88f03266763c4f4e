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

package cache

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/queryroute/core"
)

// MarshalCachedQuery serializes a CachedQuery to bytes in MUS format.
func MarshalCachedQuery(q *core.CachedQuery) []byte {
	buf := make([]byte, sizeCachedQuery(q))
	marshalCachedQuery(q, buf)
	return buf
}

// UnmarshalCachedQuery deserializes a CachedQuery from bytes.
func UnmarshalCachedQuery(data []byte) (*core.CachedQuery, error) {
	q, _, err := unmarshalCachedQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return q, nil
}

func sizeCachedQuery(q *core.CachedQuery) int {
	size := ord.String.Size(q.QueryHash)
	size += ord.String.Size(q.OriginalText)
	size += sizeAnalysis(&q.Analysis)
	size += varint.Uint64.Size(q.HitCount)
	size += ord.Bool.Size(q.UsedRefinement)
	size += sizeTime(q.InsertedAt)
	size += sizeTime(q.LastUsedAt)
	return size
}

func marshalCachedQuery(q *core.CachedQuery, bs []byte) (n int) {
	n = ord.String.Marshal(q.QueryHash, bs)
	n += ord.String.Marshal(q.OriginalText, bs[n:])
	n += marshalAnalysis(&q.Analysis, bs[n:])
	n += varint.Uint64.Marshal(q.HitCount, bs[n:])
	n += ord.Bool.Marshal(q.UsedRefinement, bs[n:])
	n += marshalTime(q.InsertedAt, bs[n:])
	n += marshalTime(q.LastUsedAt, bs[n:])
	return n
}

func unmarshalCachedQuery(bs []byte) (q *core.CachedQuery, n int, err error) {
	q = &core.CachedQuery{}
	var n1 int

	q.QueryHash, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	q.OriginalText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	q.Analysis, n1, err = unmarshalAnalysis(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	q.HitCount, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	q.UsedRefinement, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	q.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	q.LastUsedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return q, n, nil
}

func sizeAnalysis(a *core.QueryAnalysis) int {
	size := varint.Int.Size(int(a.Intent))
	size += varint.Int.Size(len(a.Filters))
	for i := range a.Filters {
		size += sizeFilter(&a.Filters[i])
	}
	size += varint.Int.Size(len(a.MatchTerms))
	for _, term := range a.MatchTerms {
		size += ord.String.Size(term)
	}
	size += raw.Float64.Size(a.Confidence)
	size += varint.Int.Size(int(a.SuggestedSort))
	return size
}

func marshalAnalysis(a *core.QueryAnalysis, bs []byte) (n int) {
	n = varint.Int.Marshal(int(a.Intent), bs)
	n += varint.Int.Marshal(len(a.Filters), bs[n:])
	for i := range a.Filters {
		n += marshalFilter(&a.Filters[i], bs[n:])
	}
	n += varint.Int.Marshal(len(a.MatchTerms), bs[n:])
	for _, term := range a.MatchTerms {
		n += ord.String.Marshal(term, bs[n:])
	}
	n += raw.Float64.Marshal(a.Confidence, bs[n:])
	n += varint.Int.Marshal(int(a.SuggestedSort), bs[n:])
	return n
}

func unmarshalAnalysis(bs []byte) (a core.QueryAnalysis, n int, err error) {
	var n1 int

	intent, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return a, n, err
	}
	a.Intent = core.Intent(intent)

	filterCount, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return a, n, err
	}
	if filterCount > 0 {
		a.Filters = make([]core.Filter, filterCount)
		for i := 0; i < filterCount; i++ {
			a.Filters[i], n1, err = unmarshalFilter(bs[n:])
			n += n1
			if err != nil {
				return a, n, err
			}
		}
	}

	termCount, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return a, n, err
	}
	if termCount > 0 {
		a.MatchTerms = make([]string, termCount)
		for i := 0; i < termCount; i++ {
			a.MatchTerms[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return a, n, err
			}
		}
	}

	a.Confidence, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return a, n, err
	}

	sortOrder, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return a, n, err
	}
	a.SuggestedSort = core.SortOrder(sortOrder)

	return a, n, nil
}

func sizeFilter(f *core.Filter) int {
	size := ord.String.Size(f.Field)
	size += ord.String.Size(f.CanonicalField)
	size += varint.Int.Size(int(f.Operator))
	size += sizeFilterValue(&f.Value)
	return size
}

func marshalFilter(f *core.Filter, bs []byte) (n int) {
	n = ord.String.Marshal(f.Field, bs)
	n += ord.String.Marshal(f.CanonicalField, bs[n:])
	n += varint.Int.Marshal(int(f.Operator), bs[n:])
	n += marshalFilterValue(&f.Value, bs[n:])
	return n
}

func unmarshalFilter(bs []byte) (f core.Filter, n int, err error) {
	var n1 int

	f.Field, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return f, n, err
	}
	f.CanonicalField, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return f, n, err
	}
	op, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return f, n, err
	}
	f.Operator = core.Operator(op)

	f.Value, n1, err = unmarshalFilterValue(bs[n:])
	n += n1
	return f, n, err
}

func sizeFilterValue(v *core.FilterValue) int {
	size := varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Text)
	size += raw.Float64.Size(v.Number)
	size += raw.Float64.Size(v.UpperNumber)
	size += ord.Bool.Size(v.Bool)
	size += sizeTime(v.From)
	size += sizeTime(v.To)
	size += varint.Int.Size(int(v.Period))
	return size
}

func marshalFilterValue(v *core.FilterValue, bs []byte) (n int) {
	n = varint.Int.Marshal(int(v.Kind), bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += raw.Float64.Marshal(v.Number, bs[n:])
	n += raw.Float64.Marshal(v.UpperNumber, bs[n:])
	n += ord.Bool.Marshal(v.Bool, bs[n:])
	n += marshalTime(v.From, bs[n:])
	n += marshalTime(v.To, bs[n:])
	n += varint.Int.Marshal(int(v.Period), bs[n:])
	return n
}

func unmarshalFilterValue(bs []byte) (v core.FilterValue, n int, err error) {
	var n1 int

	kind, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	v.Kind = core.ValueKind(kind)

	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Number, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.UpperNumber, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Bool, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.From, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.To, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	period, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Period = core.RelativePeriod(period)

	return v, n, nil
}

// Times travel as a zero flag plus Unix microseconds, so the zero value
// survives a round trip exactly.
func sizeTime(t time.Time) int {
	size := ord.Bool.Size(t.IsZero())
	if !t.IsZero() {
		size += varint.Int64.Size(t.UnixMicro())
	}
	return size
}

func marshalTime(t time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(t.IsZero(), bs)
	if !t.IsZero() {
		n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	}
	return n
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	zero, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || zero {
		return time.Time{}, n, err
	}
	micro, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}
