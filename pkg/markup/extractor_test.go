package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `
<html><body>
<h1> Trang  chủ </h1>
<div id="news-content">
  <h2>Mức thu lệ phí trước bạ là bao nhiêu?</h2>
  <p>Theo quy định hiện hành, mức thu như sau.</p>
  <blockquote>Điều 8. Mức thu lệ phí trước bạ theo tỷ lệ (%)</blockquote>
  <p>   </p>
  <table>
    <tr><th>Loại</th><th>Mức thu</th></tr>
    <tr><td>Nhà, đất</td><td>0,5%</td></tr>
  </table>
  <div>ignored wrapper</div>
  <span>ignored inline</span>
</div>
</body></html>`

func TestExtractOrderedBlocks(t *testing.T) {
	e := NewExtractor("#news-content")
	blocks, err := e.Extract(samplePage)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	assert.Equal(t, KindHeading, blocks[0].Kind)
	assert.Equal(t, "Mức thu lệ phí trước bạ là bao nhiêu?", blocks[0].Text)
	assert.Equal(t, KindParagraph, blocks[1].Kind)
	assert.Equal(t, KindBlockquote, blocks[2].Kind)
	assert.Equal(t, KindTable, blocks[3].Kind)

	for i, b := range blocks {
		assert.Equal(t, i, b.SequenceIndex)
	}
}

func TestExtractDropsEmptyNonTableBlocks(t *testing.T) {
	e := NewExtractor("#news-content")
	blocks, err := e.Extract(`<div id="news-content"><p>  </p><h2>
	</h2><blockquote></blockquote><p>ok</p></div>`)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ok", blocks[0].Text)
}

func TestExtractKeepsStructuralTables(t *testing.T) {
	e := NewExtractor("#news-content")
	blocks, err := e.Extract(`<div id="news-content"><table></table></div>`)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, KindTable, blocks[0].Kind)
}

func TestExtractTableMarkdown(t *testing.T) {
	e := NewExtractor("#news-content")
	blocks, err := e.Extract(samplePage)
	require.NoError(t, err)

	table := blocks[3].Text
	assert.Contains(t, table, "Loại")
	assert.Contains(t, table, "Mức thu")
	assert.Contains(t, table, "|")
	assert.Contains(t, table, "0,5%")
}

func TestExtractContainerNotFound(t *testing.T) {
	e := NewExtractor("#news-content")
	_, err := e.Extract(`<html><body><p>no container here</p></body></html>`)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestExtractEmptyContainer(t *testing.T) {
	e := NewExtractor("#news-content")
	blocks, err := e.Extract(`<div id="news-content"></div>`)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestTitle(t *testing.T) {
	e := NewExtractor("#news-content")
	assert.Equal(t, "Trang chủ", e.Title(samplePage))
	assert.Equal(t, "", e.Title("<p>nothing</p>"))
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("  a \n\n  b\tc  "))
	assert.Equal(t, "", NormalizeSpace(" \n\t "))
	assert.Equal(t, "một hai", NormalizeSpace("một\nhai"))
}
