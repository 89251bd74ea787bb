/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package params wraps a command's attribute map and provides typed
extraction of individual arguments.

The attribute map travels the wire as a structpb.Struct so that it can
carry the heterogeneous union spec.md describes: strings, bools,
numbers, enumerations (encoded as strings), string lists and nested
lists, without inventing a bespoke wire encoding for something
google.golang.org/protobuf's well-known types already model.

Unlike config.Str/Int/Bool (which assert on a trusted local file),
Accessor's getters return errors: a command's attribute map is untrusted
RPC input and a malformed value must fail the one command, not panic the
worker.
*/
package params

import (
	"github.com/krotik/grape/errs"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
Accessor provides typed access to a command's attribute map.
*/
type Accessor struct {
	attrs *structpb.Struct
}

/*
New wraps a structpb.Struct (may be nil, treated as empty) as an
Accessor.
*/
func New(attrs *structpb.Struct) *Accessor {
	if attrs == nil {
		attrs = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return &Accessor{attrs: attrs}
}

/*
NewFromMap builds an Accessor from a plain Go map, for callers (tests,
cmd/worker's transport shim) that do not already have a structpb.Struct.
*/
func NewFromMap(m map[string]interface{}) (*Accessor, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errs.Newf(errs.InvalidValue, "attribute map: %v", err)
	}
	return New(s), nil
}

func (a *Accessor) value(key string) (*structpb.Value, error) {
	v, ok := a.attrs.Fields[key]
	if !ok {
		return nil, errs.Newf(errs.MissingKey, "missing required key %q", key)
	}
	return v, nil
}

/*
Has reports whether key is present in the attribute map.
*/
func (a *Accessor) Has(key string) bool {
	_, ok := a.attrs.Fields[key]
	return ok
}

/*
String returns the string value of key.
*/
func (a *Accessor) String(key string) (string, error) {
	v, err := a.value(key)
	if err != nil {
		return "", err
	}
	s, ok := v.Kind.(*structpb.Value_StringValue)
	if !ok {
		return "", errs.Newf(errs.InvalidValue, "key %q is not a string", key)
	}
	return s.StringValue, nil
}

/*
StringOr returns the string value of key, or def if key is absent.
Still errors if key is present but not a string.
*/
func (a *Accessor) StringOr(key, def string) (string, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.String(key)
}

/*
Bool returns the boolean value of key.
*/
func (a *Accessor) Bool(key string) (bool, error) {
	v, err := a.value(key)
	if err != nil {
		return false, err
	}
	b, ok := v.Kind.(*structpb.Value_BoolValue)
	if !ok {
		return false, errs.Newf(errs.InvalidValue, "key %q is not a bool", key)
	}
	return b.BoolValue, nil
}

/*
BoolOr returns the boolean value of key, or def if key is absent.
*/
func (a *Accessor) BoolOr(key string, def bool) (bool, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Bool(key)
}

/*
Int64 returns the integer value of key (numbers travel the wire as
float64, per structpb; this truncates and validates there is no
fractional part).
*/
func (a *Accessor) Int64(key string) (int64, error) {
	v, err := a.value(key)
	if err != nil {
		return 0, err
	}
	n, ok := v.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return 0, errs.Newf(errs.InvalidValue, "key %q is not a number", key)
	}
	i := int64(n.NumberValue)
	if float64(i) != n.NumberValue {
		return 0, errs.Newf(errs.InvalidValue, "key %q is not an integer", key)
	}
	return i, nil
}

/*
Int64Or returns the integer value of key, or def if key is absent.
*/
func (a *Accessor) Int64Or(key string, def int64) (int64, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Int64(key)
}

/*
StringList returns the string-list value of key. Each element of the
underlying list must itself be a string.
*/
func (a *Accessor) StringList(key string) ([]string, error) {
	v, err := a.value(key)
	if err != nil {
		return nil, err
	}
	l, ok := v.Kind.(*structpb.Value_ListValue)
	if !ok {
		return nil, errs.Newf(errs.InvalidValue, "key %q is not a list", key)
	}
	out := make([]string, 0, len(l.ListValue.Values))
	for i, item := range l.ListValue.Values {
		s, ok := item.Kind.(*structpb.Value_StringValue)
		if !ok {
			return nil, errs.Newf(errs.InvalidValue, "key %q[%d] is not a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

/*
StringListOr returns the string-list value of key, or def if absent.
*/
func (a *Accessor) StringListOr(key string, def []string) ([]string, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.StringList(key)
}

/*
List returns the raw nested-list value of key (a list whose elements may
themselves be lists, structs, or scalars) as []*structpb.Value, for
callers that need to walk a nested proto list (e.g. PROJECT_GRAPH's
label/property descriptors).
*/
func (a *Accessor) List(key string) ([]*structpb.Value, error) {
	v, err := a.value(key)
	if err != nil {
		return nil, err
	}
	l, ok := v.Kind.(*structpb.Value_ListValue)
	if !ok {
		return nil, errs.Newf(errs.InvalidValue, "key %q is not a list", key)
	}
	return l.ListValue.Values, nil
}

/*
Struct returns the raw nested-object value of key as a plain Go map, for
callers that need an arbitrary named-argument bag (e.g. RUN_APP's
algorithm-specific query_args) rather than one of the fixed typed
getters above.
*/
func (a *Accessor) Struct(key string) (map[string]interface{}, error) {
	v, err := a.value(key)
	if err != nil {
		return nil, err
	}
	s, ok := v.Kind.(*structpb.Value_StructValue)
	if !ok {
		return nil, errs.Newf(errs.InvalidValue, "key %q is not an object", key)
	}
	return s.StructValue.AsMap(), nil
}

/*
StructOr returns the nested-object value of key, or def if key is
absent.
*/
func (a *Accessor) StructOr(key string, def map[string]interface{}) (map[string]interface{}, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Struct(key)
}

/*
Enum validates that the string value of key is one of allowed and
returns it. Enumerations arrive on the wire as plain strings; this is
just String plus a membership check.
*/
func (a *Accessor) Enum(key string, allowed ...string) (string, error) {
	v, err := a.String(key)
	if err != nil {
		return "", err
	}
	for _, ok := range allowed {
		if v == ok {
			return v, nil
		}
	}
	return "", errs.Newf(errs.InvalidValue, "key %q value %q is not one of %v", key, v, allowed)
}
