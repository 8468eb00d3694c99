package cache

import (
	"strconv"
	"strings"

	"github.com/gaborage/tilecache/tile"
)

// KeySeparator separates the components of a tile key.
const KeySeparator = "_"

// keyEscaper escapes the separator inside key components so that distinct
// identities can never concatenate to the same key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, KeySeparator, `\`+KeySeparator)

// TileKey derives the cache key of a tile from its layer, gridset, XYZ
// coordinates and blob format.
//
// The parameter set is deliberately not part of the key: two tiles that differ
// only by request parameters share one cache slot.
func TileKey(obj *tile.Object) string {
	var b strings.Builder
	b.Grow(len(obj.LayerName) + len(obj.GridSetID) + len(obj.BlobFormat) + 32)

	b.WriteString(keyEscaper.Replace(obj.LayerName))
	b.WriteString(KeySeparator)
	b.WriteString(keyEscaper.Replace(obj.GridSetID))
	b.WriteString(KeySeparator)
	b.WriteByte('[')
	for i, v := range obj.XYZ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	b.WriteByte(']')
	b.WriteString(KeySeparator)
	b.WriteString(keyEscaper.Replace(obj.BlobFormat))

	return b.String()
}
