package coordinator

import (
	"crypto/rand"
	"math/big"
)

// randomIndex returns a uniform index into a pool of size n.
func randomIndex(n int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("coordinator: crypto/rand failed: " + err.Error())
	}
	return int(i.Int64())
}

// Word pools for memorable room ids. Three pools, one word from each, so a
// room id reads like "maple-focus-harbor" and is easy to share out loud.

var places = []string{
	"harbor", "meadow", "summit", "grove", "canyon", "atrium", "veranda", "loft",
	"garden", "alcove", "terrace", "orchard", "lagoon", "plateau", "cove", "glade",
	"studio", "archive", "gallery", "pavilion", "annex", "rotunda", "mezzanine", "court",
}

var moods = []string{
	"quiet", "steady", "bright", "gentle", "focused", "calm", "mellow", "crisp",
	"tidy", "patient", "earnest", "serene", "diligent", "keen", "composed", "brisk",
	"amber", "cobalt", "ivory", "sage", "coral", "slate", "hazel", "indigo",
}

var things = []string{
	"maple", "lantern", "compass", "journal", "teacup", "bookmark", "pencil", "satchel",
	"candle", "abacus", "easel", "inkwell", "ledger", "quill", "primer", "slate",
	"atlas", "beacon", "anchor", "ember", "willow", "clover", "pebble", "acorn",
}
