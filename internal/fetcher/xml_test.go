package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rssItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Show</title>
<item><title>Ep 3</title><link>https://pod.example/3</link></item>
<item><title>Ep 2</title><link>https://pod.example/2</link></item>
<item><title>Ep 1</title><link>https://pod.example/1</link></item>
</channel></rss>`

func TestDecodeXMLElements(t *testing.T) {
	items, err := DecodeXMLElements[rssItem](context.Background(), strings.NewReader(feed), "item", 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Ep 3", items[0].Title)
	assert.Equal(t, "https://pod.example/1", items[2].Link)
}

func TestDecodeXMLElements_Limit(t *testing.T) {
	items, err := DecodeXMLElements[rssItem](context.Background(), strings.NewReader(feed), "item", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestDecodeXMLElements_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><item><title>Caf\xe9</title></item></rss>"
	items, err := DecodeXMLElements[rssItem](context.Background(), strings.NewReader(doc), "item", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café", items[0].Title)
}
