package problem

import (
	"encoding/json"
	"fmt"
)

// The wire contract encodes a dependency as a two-element array
// ["pred_id", "succ_id"] rather than an object.

// MarshalJSON implements json.Marshaler.
func (d Dependency) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{d.Pred, d.Succ})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("dependency must be a [pred, succ] pair, got %d elements", len(pair))
	}
	d.Pred, d.Succ = pair[0], pair[1]
	return nil
}
