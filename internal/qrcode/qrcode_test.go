package qrcode

import (
	"bytes"
	"image/png"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate("https://sho.rt/abc123")
	require.NoError(t, err)
	b, err := Generate("https://sho.rt/abc123")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate("https://sho.rt/other")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerate_IsSquareSVGWithMargin(t *testing.T) {
	svg, err := Generate("hello")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))

	m := regexp.MustCompile(`viewBox="0 0 (\d+) (\d+)"`).FindStringSubmatch(svg)
	require.NotNil(t, m)
	assert.Equal(t, m[1], m[2])
	// 版本 1 的二维码 21 个模块，加两侧各 1 个模块的静区
	assert.Equal(t, "23", m[1])
	// 左上角定位图案从 (1,1) 开始
	assert.Contains(t, svg, "M1 1h7v1h-7z")
}

func TestEmbedLogo_Geometry(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><path d="M0 0h1v1h-1z"/></svg>`
	out := EmbedLogo(svg, "https://cdn.example/logo.png", 0.2)

	assert.True(t, strings.HasSuffix(out, `preserveAspectRatio="xMidYMid slice"/></svg>`), "Logo 必须是最后绘制的元素")
	assert.Contains(t, out, `<rect x="39" y="39" width="22" height="22" fill="white" rx="2.2"/>`)
	assert.Contains(t, out, `href="https://cdn.example/logo.png" xlink:href="https://cdn.example/logo.png"`)
	assert.Contains(t, out, `x="40" y="40" width="20" height="20"`)
	assert.Less(t, strings.Index(out, "<path"), strings.Index(out, "<rect"))
}

func TestEmbedLogo_OffsetViewBox(t *testing.T) {
	svg := `<svg viewBox="-10 20 50 50"></svg>`
	out := EmbedLogo(svg, "logo.svg", 0.2)
	// logo 10x10，底板 11x11，都以 (15, 45) 为中心
	assert.Contains(t, out, `<rect x="9.5" y="39.5" width="11" height="11"`)
	assert.Contains(t, out, `x="10" y="40" width="10" height="10"`)
}

func TestEmbedLogo_NoOpWhenFrameUnknown(t *testing.T) {
	tests := map[string]string{
		"no viewBox":      `<svg width="100" height="100"></svg>`,
		"short viewBox":   `<svg viewBox="0 0 100"></svg>`,
		"garbage viewBox": `<svg viewBox="a b c d"></svg>`,
		"zero size":       `<svg viewBox="0 0 0 0"></svg>`,
		"not closed":      `<svg viewBox="0 0 10 10">`,
	}
	for name, svg := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, svg, EmbedLogo(svg, "logo.png", 0.2))
		})
	}
	assert.Equal(t, "<svg/>", EmbedLogo("<svg/>", "", 0.2))
}

func TestEmbedLogo_EscapesURL(t *testing.T) {
	out := EmbedLogo(`<svg viewBox="0 0 10 10"></svg>`, `https://x.example/a.png?"><script>`, 0.2)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&#34;&gt;&lt;script&gt;")
}

func TestEmbedLogo_OnGeneratedCode(t *testing.T) {
	svg, err := Generate("https://sho.rt/abc123")
	require.NoError(t, err)
	out := EmbedLogo(svg, "logo.png", DefaultLogoFraction)
	assert.NotEqual(t, svg, out)
	assert.Equal(t, 1, strings.Count(out, "</svg>"))
}

func TestPNG(t *testing.T) {
	data, err := PNG("https://sho.rt/abc123", 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}
