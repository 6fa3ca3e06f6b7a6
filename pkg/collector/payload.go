package collector

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const (
	ContentTypeNicknames = "nicknames"
	ContentTypeError     = "error"
)

// ErrMalformedPayload is matched by every PayloadError.
var ErrMalformedPayload = errors.New("collector: malformed payload")

// PayloadError describes which part of the collector output was invalid.
type PayloadError struct {
	Field  string
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	msg := fmt.Sprintf("collector: malformed payload: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Kind tells which variant a Response holds.
type Kind int

const (
	// KindNicknames responses carry a Payload.
	KindNicknames Kind = iota
	// KindError responses carry the collector's error Message.
	KindError
	// KindUnsupported responses succeeded with a content type nothing consumes.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNicknames:
		return "nicknames"
	case KindError:
		return "error"
	default:
		return "unsupported"
	}
}

// Payload maps champion ids to the nicknames collected for them, in the
// order the collector listed them.
type Payload map[uint32][]string

// Response is a decoded collector envelope.
type Response struct {
	Kind        Kind
	Status      int
	ContentType string
	Cooldown    time.Duration

	Nicknames Payload // KindNicknames only.
	Message   string  // KindError only.
}

type rawEnvelope struct {
	Status      *int            `json:"status"`
	ContentType *string         `json:"content_type"`
	Cooldown    *int64          `json:"cooldown"`
	Content     json.RawMessage `json:"content"`
}

// ParseResponse decodes a collector envelope. defaultCooldown is used when
// the envelope does not name one.
func ParseResponse(data []byte, defaultCooldown time.Duration) (*Response, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &PayloadError{Field: "envelope", Reason: "invalid json", Err: err}
	}
	if raw.Status == nil {
		return nil, &PayloadError{Field: "status", Reason: "missing"}
	}
	if raw.ContentType == nil {
		return nil, &PayloadError{Field: "content_type", Reason: "missing"}
	}

	resp := &Response{
		Status:      *raw.Status,
		ContentType: *raw.ContentType,
		Cooldown:    defaultCooldown,
	}
	if raw.Cooldown != nil {
		if *raw.Cooldown < 0 {
			return nil, &PayloadError{Field: "cooldown", Reason: "negative"}
		}
		resp.Cooldown = time.Duration(*raw.Cooldown) * time.Second
	}

	switch {
	case resp.Status != 0:
		resp.Kind = KindError
		resp.Message = contentMessage(raw.Content)
	case resp.ContentType == ContentTypeNicknames:
		payload, err := DecodeNicknames(raw.Content)
		if err != nil {
			return nil, err
		}
		resp.Kind = KindNicknames
		resp.Nicknames = payload
	default:
		resp.Kind = KindUnsupported
	}
	return resp, nil
}

// DecodeNicknames decodes a bulk nicknames object such as
// {"14": ["foo", "bar"], "81": ["hello", "world"]}.
func DecodeNicknames(data []byte) (Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &PayloadError{Field: "content", Reason: "missing"}
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &PayloadError{Field: "content", Reason: "expected an object of nickname lists", Err: err}
	}
	if raw == nil {
		return nil, &PayloadError{Field: "content", Reason: "expected an object of nickname lists"}
	}

	payload := make(Payload, len(raw))
	for key, nicknames := range raw {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, &PayloadError{Field: "content", Reason: fmt.Sprintf("champion id %q is not an unsigned 32-bit integer", key), Err: err}
		}
		if strconv.FormatUint(id, 10) != key {
			return nil, &PayloadError{Field: "content", Reason: fmt.Sprintf("champion id %q is not in canonical form", key)}
		}
		payload[uint32(id)] = nicknames
	}
	return payload, nil
}

// contentMessage renders error content as text. Strings are unquoted; any
// other JSON value is returned verbatim.
func contentMessage(content json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(content, &msg); err == nil {
		return msg
	}
	return string(bytes.TrimSpace(content))
}
