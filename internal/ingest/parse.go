package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

var errNotObject = errors.New("top-level JSON value is not an object")

// ParseOutcome holds either a decoded resume or the failure that prevented
// it. Exactly one of Resume and Err is set.
type ParseOutcome struct {
	Resume json.RawMessage
	Raw    string
	Err    error
}

// OK reports whether the reply decoded successfully.
func (o ParseOutcome) OK() bool {
	return o.Err == nil
}

// StripFence removes a surrounding ```json ... ``` pair. The text is
// returned trimmed and otherwise unchanged when either marker is missing.
func StripFence(reply string) string {
	s := strings.TrimSpace(reply)
	if len(s) >= len(fenceOpen)+len(fenceClose) &&
		strings.HasPrefix(s, fenceOpen) && strings.HasSuffix(s, fenceClose) {
		s = strings.TrimSpace(s[len(fenceOpen) : len(s)-len(fenceClose)])
	}
	return s
}

// ParseReply decodes a model reply. With validate set the value must match
// the StructuredResume schema and is re-encoded through the typed struct,
// so unknown keys are dropped and every declared key is present. Without
// it the decoded object is returned as-is.
func ParseReply(reply string, validate bool) ParseOutcome {
	text := StripFence(reply)
	fail := func(err error) ParseOutcome {
		return ParseOutcome{Raw: reply, Err: err}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fail(fmt.Errorf("decode reply: %w", err))
	}
	if dec.More() {
		return fail(errors.New("decode reply: trailing data after JSON value"))
	}
	if _, ok := v.(map[string]any); !ok {
		return fail(errNotObject)
	}

	if !validate {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(text)); err != nil {
			return fail(fmt.Errorf("decode reply: %w", err))
		}
		return ParseOutcome{Resume: buf.Bytes(), Raw: reply}
	}

	if err := validateShape(v); err != nil {
		return fail(err)
	}
	var resume StructuredResume
	if err := json.Unmarshal([]byte(text), &resume); err != nil {
		return fail(fmt.Errorf("decode resume: %w", err))
	}
	resume.normalize()
	out, err := json.Marshal(resume)
	if err != nil {
		return fail(fmt.Errorf("encode resume: %w", err))
	}
	return ParseOutcome{Resume: out, Raw: reply}
}
