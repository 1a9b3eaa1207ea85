package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryParsesText(t *testing.T) {
	r := NewRegistry()

	text, err := r.Parse("cours.txt", strings.NewReader("数列的极限"))
	require.NoError(t, err)
	require.Equal(t, "数列的极限", text)
}

func TestRegistryParsesMarkdown(t *testing.T) {
	r := NewRegistry()

	text, err := r.Parse("cours.md", strings.NewReader("# 标题\n\n正文"))
	require.NoError(t, err)
	require.Contains(t, text, "正文")
}

func TestRegistryUnknownExtensionFallsBackToText(t *testing.T) {
	r := NewRegistry()

	text, err := r.Parse("notes.csv", strings.NewReader("a,b,c"))
	require.NoError(t, err)
	require.Equal(t, "a,b,c", text)
}

func TestRegistryRejectsBinaryWithUnknownExtension(t *testing.T) {
	r := NewRegistry()

	_, err := r.Parse("image.bin", strings.NewReader("\xff\xfe\x00\x01二进制"))
	require.Error(t, err)
}

func TestRegistryEmptyTextIsValid(t *testing.T) {
	r := NewRegistry()

	text, err := r.Parse("empty.txt", strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestRegistryCaseInsensitiveExtension(t *testing.T) {
	r := NewRegistry()

	text, err := r.Parse("COURS.TXT", strings.NewReader("内容"))
	require.NoError(t, err)
	require.Equal(t, "内容", text)
}
