package parsers

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildDocx 在内存中构造一个最小的 .docx 文件
func buildDocx(t *testing.T, documentXML string) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return bytes.NewReader(buf.Bytes())
}

func TestDocxParserExtractsParagraphs(t *testing.T) {
	doc := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>第一段内容</w:t></w:r></w:p>
    <w:p><w:r><w:t>第二段</w:t></w:r><w:r><w:t>接着的文字</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := NewDocxParser().Parse(doc)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "第一段内容", lines[0])
	require.Equal(t, "第二段接着的文字", lines[1])
}

func TestDocxParserSkipsEmptyParagraphs(t *testing.T) {
	doc := buildDocx(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p></w:p>
    <w:p><w:r><w:t>唯一的段落</w:t></w:r></w:p>
    <w:p><w:r><w:t>  </w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := NewDocxParser().Parse(doc)
	require.NoError(t, err)
	require.Equal(t, "唯一的段落", text)
}

func TestDocxParserRejectsNonZip(t *testing.T) {
	_, err := NewDocxParser().Parse(strings.NewReader("不是 zip 文件"))
	require.Error(t, err)
}

func TestDocxParserRejectsZipWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewDocxParser().Parse(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "document.xml")
}
