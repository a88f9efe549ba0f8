package scanlog

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

// TagID is the UID read off an RFID tag. It travels as a hex string.
type TagID []byte

// ParseTagID decodes a hex tag UID. Length is not checked here; Submit
// rejects anything that is not TagIDLength bytes.
func ParseTagID(s string) (TagID, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return TagID(b), nil
}

func (t TagID) String() string {
	return strings.ToUpper(hex.EncodeToString(t))
}

// Clone returns a copy that does not share the backing array
func (t TagID) Clone() TagID {
	if t == nil {
		return nil
	}
	out := make(TagID, len(t))
	copy(out, t)
	return out
}

func (t TagID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TagID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTagID(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
