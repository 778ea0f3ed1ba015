package cache

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Response is the cached form of a handler response.
type Response struct {
	Status     int         `json:"status" msgpack:"status" cbor:"1,keyasint"`
	StatusText string      `json:"statusText,omitempty" msgpack:"statusText,omitempty" cbor:"2,keyasint,omitempty"`
	Header     http.Header `json:"header,omitempty" msgpack:"header,omitempty" cbor:"3,keyasint,omitempty"`
	Body       []byte      `json:"body,omitempty" msgpack:"body,omitempty" cbor:"4,keyasint,omitempty"`
}

// Codec converts Responses to and from stored bytes.
type Codec interface {
	Name() string
	Encode(Response) ([]byte, error)
	Decode([]byte) (Response, error)
}

// Codec names accepted by NewCodec.
const (
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
	CodecJSON    = "json"
)

// NewCodec returns the codec registered under name. An empty name selects
// msgpack.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecMsgpack:
		return MsgpackCodec{}, nil
	case CodecCBOR:
		return NewCBORCodec()
	case CodecJSON:
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// MsgpackCodec encodes responses with vmihailenco/msgpack. The zero value is
// ready to use.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) Encode(r Response) ([]byte, error) {
	return msgpack.Marshal(r)
}

func (MsgpackCodec) Decode(b []byte) (Response, error) {
	var r Response
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return r, checkResponse(r)
}

// CBORCodec encodes responses with fxamacker/cbor using core deterministic
// encoding. Construct with NewCBORCodec.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec constructs a CBOR codec.
func NewCBORCodec() (*CBORCodec, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{enc: em, dec: dm}, nil
}

func (c *CBORCodec) Name() string { return CodecCBOR }

func (c *CBORCodec) Encode(r Response) ([]byte, error) {
	return c.enc.Marshal(r)
}

func (c *CBORCodec) Decode(b []byte) (Response, error) {
	var r Response
	if err := c.dec.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return r, checkResponse(r)
}

// JSONCodec encodes responses as JSON. Bodies are base64 on the wire.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) Encode(r Response) ([]byte, error) {
	return json.Marshal(r)
}

func (JSONCodec) Decode(b []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return r, checkResponse(r)
}

// checkResponse rejects payloads that decoded cleanly but cannot be replayed.
func checkResponse(r Response) error {
	if r.Status < 100 || r.Status > 999 {
		return fmt.Errorf("%w: status %d", ErrCorruptEntry, r.Status)
	}
	return nil
}

var (
	_ Codec = MsgpackCodec{}
	_ Codec = (*CBORCodec)(nil)
	_ Codec = JSONCodec{}
)
