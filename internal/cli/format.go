package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
	formatCBOR = "cbor"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cli: CBOR encoder initialization failed: " + err.Error())
	}
	// Maps decode as map[string]any, the shape the other formats produce.
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cli: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshalFormat(format string, values map[string]any) ([]byte, error) {
	switch format {
	case formatYAML:
		return yaml.Marshal(textual(values))
	case formatJSON:
		out, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case formatCBOR:
		return cborEnc.Marshal(values)
	}
	return nil, fmt.Errorf("unknown format '%s'", format)
}

func unmarshalFormat(format string, data []byte) (map[string]any, error) {
	var values map[string]any
	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case formatCBOR:
		if err := cborDec.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parse cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format '%s'", format)
	}
	return values, nil
}

// textual replaces bytes with base64 strings, as JSON does on its own.
func textual(v any) any {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = textual(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = textual(val)
		}
		return out
	}
	return v
}
