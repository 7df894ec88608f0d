package billing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractDataID returns the payment id a MercadoPago notification refers to.
// The first non-empty value wins, in this order:
//
//  1. query "id"
//  2. query "data.id"
//  3. body data.id
//  4. body data.payment.id
//  5. body resource
//  6. body key "data.id" (flattened form)
func ExtractDataID(query map[string]string, body map[string]any) string {
	candidates := []func() string{
		func() string { return query["id"] },
		func() string { return query["data.id"] },
		func() string { return stringAt(body, "data", "id") },
		func() string { return stringAt(body, "data", "payment", "id") },
		func() string { return stringAt(body, "resource") },
		func() string { return stringAt(body, "data.id") },
	}
	for _, candidate := range candidates {
		if v := strings.TrimSpace(candidate()); v != "" {
			return v
		}
	}
	return ""
}

// stringAt walks nested JSON objects and renders the leaf as a string.
func stringAt(m map[string]any, path ...string) string {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = obj[key]
		if !ok {
			return ""
		}
	}
	return scalarString(cur)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	}
	return ""
}

// uintFrom reads an id that may arrive as a JSON number or a numeric string.
func uintFrom(v any) uint {
	s := strings.TrimSpace(scalarString(v))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f < 0 {
			return 0
		}
		return uint(f)
	}
	return uint(n)
}

// decodeJSONObject decodes a JSON object keeping numbers exact. An empty body is an empty object.
func decodeJSONObject(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
