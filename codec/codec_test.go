package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type row struct {
	ID      int64     `json:"id" cbor:"id" msgpack:"id"`
	Name    string    `json:"name" cbor:"name" msgpack:"name"`
	Updated time.Time `json:"updated" cbor:"updated" msgpack:"updated"`
}

func TestCodecsPreserveRows(t *testing.T) {
	in := row{ID: 7, Name: "Ada", Updated: time.Unix(1_700_000_000, 0).UTC()}
	for name, c := range map[string]Codec[row]{
		"json":         JSON[row]{},
		"cbor":         MustCBOR[row](CBOROptions{Deterministic: true}),
		"cbor/zero":    CBOR[row]{},
		"msgpack":      Msgpack[row]{},
		"msgpack/json": Msgpack[row]{JSONTags: true},
	} {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if out.ID != in.ID || out.Name != in.Name || !out.Updated.Equal(in.Updated) {
			t.Fatalf("%s: got %+v want %+v", name, out, in)
		}
	}
}

func TestMsgpackJSONTags(t *testing.T) {
	type jsonOnly struct {
		UserID int64 `json:"user_id"`
	}
	b, err := Msgpack[jsonOnly]{JSONTags: true}.Encode(jsonOnly{UserID: 9})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]int64
	if err := msgpack.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["user_id"] != 9 {
		t.Fatalf("json tag not honored: %v", m)
	}
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	// {"id": 1, "id": 2}
	dup := []byte{0xa2, 0x62, 'i', 'd', 0x01, 0x62, 'i', 'd', 0x02}
	if _, err := MustCBOR[row](CBOROptions{}).Decode(dup); err == nil {
		t.Fatalf("duplicate keys should not decode")
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[string]{Inner: String{}, Max: 4}
	if _, err := c.Encode("abcd"); err != nil {
		t.Fatalf("encode at limit: %v", err)
	}
	if _, err := c.Encode("abcde"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("encode over limit: %v", err)
	}
	if _, err := c.Decode([]byte("abcde")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("decode over limit: %v", err)
	}
	if _, err := (LimitCodec[string]{Inner: String{}}).Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("unlimited decode: %v", err)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("row-7"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if m.GetValue() != "row-7" {
		t.Fatalf("got %q", m.GetValue())
	}
}
