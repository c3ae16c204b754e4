package metadata

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Extract 从 HTML 中提取标题、描述和预览图。
// og:* 标签只在对应的普通标签缺失时作为后备。
func Extract(r io.Reader) Preview {
	var (
		p                        Preview
		ogTitle, ogDesc, twImage string
		inTitle                  bool
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return finish(p, ogTitle, ogDesc, twImage)

		case html.TextToken:
			if inTitle && p.Title == "" {
				p.Title = strings.TrimSpace(string(z.Text()))
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "title":
				inTitle = false
			case "head":
				return finish(p, ogTitle, ogDesc, twImage)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "title":
				inTitle = true
			case "body":
				return finish(p, ogTitle, ogDesc, twImage)
			case "meta":
				if !hasAttr {
					continue
				}
				key, content := metaAttrs(z)
				if content == "" {
					continue
				}
				switch key {
				case "description":
					p.Description = content
				case "og:title":
					ogTitle = content
				case "og:description":
					ogDesc = content
				case "og:image":
					p.Image = content
				case "twitter:image":
					twImage = content
				}
			}
		}
	}
}

// metaAttrs 返回 name 或 property（小写）以及 content
func metaAttrs(z *html.Tokenizer) (key, content string) {
	for {
		k, v, more := z.TagAttr()
		switch string(k) {
		case "name", "property":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(string(v)))
			}
		case "content":
			content = strings.TrimSpace(string(v))
		}
		if !more {
			return key, content
		}
	}
}

func finish(p Preview, ogTitle, ogDesc, twImage string) Preview {
	if p.Title == "" {
		p.Title = ogTitle
	}
	if p.Description == "" {
		p.Description = ogDesc
	}
	if p.Image == "" {
		p.Image = twImage
	}
	return p
}
