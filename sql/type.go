// Copyright 2020-2021 Dolthub, Inc.
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

package sql

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Type represents a value type of a column or an expression result. Types
// convert arbitrary driver values into their canonical representation and
// order values of that representation.
type Type interface {
	// Name returns the canonical name of the type.
	Name() string
	// Convert a value of a compatible type to the canonical representation.
	Convert(v interface{}) (interface{}, error)
	// Compare returns an integer comparing two values. NULL sorts first.
	Compare(a interface{}, b interface{}) (int, error)
	// Zero returns the zero value for this type.
	Zero() interface{}
}

var (
	// Null represents the type of NULL values.
	Null Type = nullT{}
	// Boolean is a true/false type.
	Boolean Type = booleanT{}
	// Int64 is a 64-bit signed integer type.
	Int64 Type = int64T{}
	// Float64 is a 64-bit floating point type.
	Float64 Type = float64T{}
	// Text is a variable-length string type.
	Text Type = textT{}
	// Timestamp is a date and time type.
	Timestamp Type = timestampT{}
	// Date is a date without time type.
	Date Type = dateT{}
)

// TimestampLayout is the canonical layout of Timestamp values.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the canonical layout of Date values.
const DateLayout = "2006-01-02"

type nullT struct{}

func (nullT) Name() string { return "NULL" }

func (nullT) Convert(interface{}) (interface{}, error) { return nil, nil }

func (nullT) Compare(a, b interface{}) (int, error) {
	if a == nil && b == nil {
		return 0, nil
	}
	if a == nil {
		return -1, nil
	}
	return 1, nil
}

func (nullT) Zero() interface{} { return nil }

type booleanT struct{}

func (booleanT) Name() string { return "BOOLEAN" }

func (booleanT) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case string:
		switch strings.ToLower(v) {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, ErrInvalidType.New(v)
	default:
		return cast.ToBoolE(v)
	}
}

func (t booleanT) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	ab, bb := av.(bool), bv.(bool)
	if ab == bb {
		return 0, nil
	}
	if !ab {
		return -1, nil
	}
	return 1, nil
}

func (booleanT) Zero() interface{} { return false }

type int64T struct{}

func (int64T) Name() string { return "BIGINT" }

func (int64T) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Unix(), nil
	}
	return cast.ToInt64E(v)
}

func (t int64T) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	ai, bi := av.(int64), bv.(int64)
	if ai < bi {
		return -1, nil
	}
	if ai > bi {
		return 1, nil
	}
	return 0, nil
}

func (int64T) Zero() interface{} { return int64(0) }

type float64T struct{}

func (float64T) Name() string { return "DOUBLE" }

func (float64T) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return cast.ToFloat64E(v)
}

func (t float64T) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	af, bf := av.(float64), bv.(float64)
	if af < bf {
		return -1, nil
	}
	if af > bf {
		return 1, nil
	}
	return 0, nil
}

func (float64T) Zero() interface{} { return float64(0) }

type textT struct{}

func (textT) Name() string { return "TEXT" }

func (textT) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return cast.ToStringE(v)
}

func (t textT) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	return strings.Compare(av.(string), bv.(string)), nil
}

func (textT) Zero() interface{} { return "" }

type timestampT struct{}

func (timestampT) Name() string { return "TIMESTAMP" }

func (timestampT) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(TimestampLayout, v)
		if err != nil {
			t, err = time.Parse(DateLayout, v)
			if err != nil {
				return nil, ErrInvalidType.New(v)
			}
		}
		return t.UTC(), nil
	default:
		ts, err := Int64.Convert(v)
		if err != nil {
			return nil, ErrInvalidType.New(v)
		}
		return time.Unix(ts.(int64), 0).UTC(), nil
	}
}

func (t timestampT) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	at, bt := av.(time.Time), bv.(time.Time)
	if at.Before(bt) {
		return -1, nil
	}
	if at.After(bt) {
		return 1, nil
	}
	return 0, nil
}

func (timestampT) Zero() interface{} { return time.Time{} }

type dateT struct{}

func (dateT) Name() string { return "DATE" }

func (dateT) Convert(v interface{}) (interface{}, error) {
	v, err := Timestamp.Convert(v)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	t := v.(time.Time)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (t dateT) Compare(a, b interface{}) (int, error) {
	if cmp, done := compareNulls(a, b); done {
		return cmp, nil
	}
	av, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	bv, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	at, bt := av.(time.Time), bv.(time.Time)
	if at.Before(bt) {
		return -1, nil
	}
	if at.After(bt) {
		return 1, nil
	}
	return 0, nil
}

func (dateT) Zero() interface{} { return time.Time{} }

// compareNulls reports the ordering of a and b when at least one of them is
// NULL, and whether that was the case.
func compareNulls(a, b interface{}) (int, bool) {
	if a == nil && b == nil {
		return 0, true
	}
	if a == nil {
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

// TypeFromName returns the Type whose Name matches the given string, or Text
// if it is unknown. Matching is case-insensitive.
func TypeFromName(name string) Type {
	switch strings.ToUpper(name) {
	case "NULL":
		return Null
	case "BOOLEAN", "BOOL":
		return Boolean
	case "BIGINT", "INT", "INTEGER", "SMALLINT", "TINYINT":
		return Int64
	case "DOUBLE", "FLOAT", "REAL", "DECIMAL", "NUMERIC":
		return Float64
	case "TIMESTAMP", "DATETIME":
		return Timestamp
	case "DATE":
		return Date
	default:
		return Text
	}
}

// IsNumber reports whether the type is a numeric type.
func IsNumber(t Type) bool {
	return t == Int64 || t == Float64
}

// IsText reports whether the type is a string type.
func IsText(t Type) bool {
	return t == Text
}
