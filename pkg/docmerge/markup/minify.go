package markup

import (
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/xml"
)

const mimeXML = "text/xml"

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured XML minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		// Whitespace inside w:t is content.
		minifier.Add(mimeXML, &xml.Minifier{KeepWhitespace: true})
	})
	return minifier
}

// Minify removes redundant bytes from serialized XML, such as whitespace
// between tags and the long form of empty elements
func Minify(data []byte) ([]byte, error) {
	return getMinifier().Bytes(mimeXML, data)
}
