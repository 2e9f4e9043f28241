package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// maxJSONBody caps decoded response bodies.
const maxJSONBody = 16 << 20

// DecodeJSONInto decodes a single JSON document from r into out.
func DecodeJSONInto(r io.Reader, out any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxJSONBody)).Decode(out); err != nil {
		return eris.Wrap(err, "json: decode object")
	}
	return nil
}
