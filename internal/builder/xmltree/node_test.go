package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Node {
	return E("Invoice",
		T("cbc:ID", "INV-1"),
		T("cbc:Note", ""),
		E("cac:Party",
			T("cbc:EndpointID", "", A("schemeID", "0009")),
			T("cbc:Name", "ACME", A("lang", "")),
		),
		E("cac:Empty", T("cbc:Nothing", "")),
		E("line", nil).Attrs(A("b", "2"), A("a", "1"), A("skip", "")),
		E("kept").Keep(),
	).Attrs(A("xmlns", "urn:x"), A("xmlns:cbc", "urn:cbc"))
}

func TestRender_PrunesAndOrders(t *testing.T) {
	out, err := Render(sample(), Pretty)
	require.NoError(t, err)
	xml := string(out)

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `<Invoice xmlns="urn:x" xmlns:cbc="urn:cbc">`)
	assert.Contains(t, xml, "<cbc:ID>INV-1</cbc:ID>")
	assert.Contains(t, xml, "<cbc:Name>ACME</cbc:Name>")
	assert.Contains(t, xml, `<line b="2" a="1"/>`)
	assert.Contains(t, xml, "<kept/>")
	assert.NotContains(t, xml, "cbc:Note")
	assert.NotContains(t, xml, "EndpointID")
	assert.NotContains(t, xml, "cac:Empty")
	assert.NotContains(t, xml, "skip")
}

func TestRender_Idempotent(t *testing.T) {
	first, err := Render(sample(), Pretty)
	require.NoError(t, err)
	second, err := Render(sample(), Pretty)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_Canonical(t *testing.T) {
	out, err := Render(E("a", E("b").Keep()), Options{Canonical: true})
	require.NoError(t, err)
	assert.Equal(t, "<a><b></b></a>", string(out))
}

func TestRender_EmptyRoot(t *testing.T) {
	_, err := Render(E("root", T("x", "")), Pretty)
	assert.EqualError(t, err, "root element root is empty")
}

func TestFind(t *testing.T) {
	n := sample()
	require.NotNil(t, n.Find("cbc:Name"))
	assert.Nil(t, n.Find("missing"))
	assert.Equal(t, "cac:Party", n.Children()[2].Name())
}

func TestReindent(t *testing.T) {
	out, err := Reindent([]byte(`<a><b>1</b></a>`))
	require.NoError(t, err)
	assert.Equal(t, "<a>\n  <b>1</b>\n</a>", strings.TrimSpace(string(out)))

	_, err = Reindent([]byte("<a><b></a>"))
	assert.Error(t, err)
}
