// Package server contains the JSON payload types shared by the HTTP wrappers.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
)

// FloatT is a struct with a single float64 field, for JSON encoding
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, for JSON encoding
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field, for JSON encoding
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, for JSON encoding
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload carries one value of kind T.  Only the field matching T is
// sent to the client.
type HumanPayload struct {
	// T is one of types.Bool, types.Int, types.Float64 or types.String
	T types.BasicKind

	Bool   bool
	Int    int
	Float  float64
	String string
}

// payload converts hp to the matching single-field struct
func (hp HumanPayload) payload() (interface{}, error) {
	switch hp.T {
	case types.Bool:
		return BoolT{Bool: hp.Bool}, nil
	case types.Int:
		return IntT{Int: hp.Int}, nil
	case types.Float64:
		return FloatT{F64: hp.Float}, nil
	case types.String:
		return StrT{Str: hp.String}, nil
	default:
		return nil, fmt.Errorf("unsupported payload kind %v", hp.T)
	}
}

// EncodeAndRespond writes hp to w as JSON with status 200
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) error {
	p, err := hp.payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}
	return EncodeJSON(w, p)
}

// EncodeJSON writes v to w as JSON with status 200
func EncodeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(v)
}
