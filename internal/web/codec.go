package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/francoispqt/gojay"
)

// processRequest is the body of POST /processar. The variance may be sent as
// a number or as a numeric string.
type processRequest struct {
	Text     string
	Variance float64

	hasText     bool
	hasVariance bool
}

func (r *processRequest) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "vetor_entrada":
		r.hasText = true
		return dec.String(&r.Text)
	case "variancia":
		r.hasVariance = true
		var raw gojay.EmbeddedJSON
		if err := dec.EmbeddedJSON(&raw); err != nil {
			return err
		}
		v, err := parseVariance(raw)
		if err != nil {
			return err
		}
		r.Variance = v
	}
	return nil
}

func (r *processRequest) NKeys() int { return 0 }

func parseVariance(raw []byte) (float64, error) {
	s := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return 0, fmt.Errorf("variancia: %w", err)
		}
		s = strings.TrimSpace(u)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("variancia: %q is not a number", s)
	}
	return v, nil
}

func decodeRequest(body []byte) (*processRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty request body")
	}
	// gojay stops at the end of the object and ignores what follows it.
	if !json.Valid(body) {
		return nil, errors.New("invalid JSON: malformed or trailing data")
	}
	req := &processRequest{}
	if err := gojay.UnmarshalJSONObject(body, req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	switch {
	case !req.hasText:
		return nil, errors.New("missing field vetor_entrada")
	case !req.hasVariance:
		return nil, errors.New("missing field variancia")
	case req.Variance < 0 || math.IsNaN(req.Variance) || math.IsInf(req.Variance, 0):
		return nil, fmt.Errorf("variancia must be a finite non-negative number, got %g", req.Variance)
	}
	return req, nil
}

type processResponse struct {
	Encoded    []uint8
	Received   []float64
	Decoded    []uint8
	Ratio      string
	InputText  string
	OutputText string
	Variance   float64
}

func (r *processResponse) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ArrayKey("saida_encoder", bitArray(r.Encoded))
	enc.ArrayKey("saida_canal", roundedArray(r.Received))
	enc.ArrayKey("saida_decoder", bitArray(r.Decoded))
	enc.StringKey("taxa_erro", r.Ratio)
	enc.StringKey("entrada_texto", r.InputText)
	enc.StringKey("saida_texto", r.OutputText)
	enc.Float64Key("variancia", r.Variance)
}

func (r *processResponse) IsNil() bool { return r == nil }

type bitArray []uint8

func (a bitArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, b := range a {
		enc.Int(int(b))
	}
}

func (a bitArray) IsNil() bool { return a == nil }

// roundedArray writes samples rounded to two decimals.
type roundedArray []float64

func (a roundedArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range a {
		enc.Float64(math.Round(v*100) / 100)
	}
}

func (a roundedArray) IsNil() bool { return a == nil }

type errorBody string

func (e errorBody) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("error", string(e))
}

func (e errorBody) IsNil() bool { return false }
