// Package qrcode 生成短链接二维码（SVG 与 PNG），并可在中心叠加 Logo。
package qrcode

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

const (
	// margin 静区宽度（模块数）
	margin = 1
	// DefaultLogoFraction Logo 边长占图像宽度的比例
	DefaultLogoFraction = 0.2
)

// Generate 以最高纠错等级生成 SVG，相同输入输出的字节完全一致
func Generate(text string) (string, error) {
	code, err := qr.New(text, qr.Highest)
	if err != nil {
		return "", fmt.Errorf("生成二维码失败: %w", err)
	}
	code.DisableBorder = true
	bitmap := code.Bitmap()
	size := len(bitmap) + 2*margin

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size)
	b.WriteString(`<path fill="#000000" d="`)
	for y, row := range bitmap {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			// 合并同一行中连续的深色模块
			run := 1
			for x+run < len(row) && row[x+run] {
				run++
			}
			fmt.Fprintf(&b, "M%d %dh%dv1h-%dz", x+margin, y+margin, run, run)
			x += run
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String(), nil
}

// PNG 生成边长为 size 像素的 PNG
func PNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qr.Encode(text, qr.Highest, size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return png, nil
}

var viewBoxPattern = regexp.MustCompile(`viewBox="([^"]+)"`)

// EmbedLogo 在 SVG 中心放置白色底板和 Logo，作为最后绘制的元素。
// 无法解析 viewBox 时原样返回。
func EmbedLogo(svg, logoURL string, fraction float64) string {
	if logoURL == "" {
		return svg
	}
	if fraction <= 0 || fraction >= 1 {
		fraction = DefaultLogoFraction
	}

	m := viewBoxPattern.FindStringSubmatch(svg)
	if m == nil {
		return svg
	}
	parts := strings.Fields(strings.ReplaceAll(m[1], ",", " "))
	if len(parts) != 4 {
		return svg
	}
	var box [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return svg
		}
		box[i] = v
	}
	vx, vy, vw, vh := box[0], box[1], box[2], box[3]
	if vw <= 0 || vh <= 0 {
		return svg
	}

	closing := strings.LastIndex(svg, "</svg>")
	if closing < 0 {
		return svg
	}

	logoSize := vw * fraction
	bgSize := logoSize * 1.1
	href := html.EscapeString(logoURL)

	overlay := fmt.Sprintf(
		`<rect x="%s" y="%s" width="%s" height="%s" fill="white" rx="%s"/>`+
			`<image href="%s" xlink:href="%s" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid slice"/>`,
		num(vx+(vw-bgSize)/2), num(vy+(vh-bgSize)/2), num(bgSize), num(bgSize), num(bgSize*0.1),
		href, href, num(vx+(vw-logoSize)/2), num(vy+(vh-logoSize)/2), num(logoSize), num(logoSize),
	)
	return svg[:closing] + overlay + svg[closing:]
}

// num 保留四位小数，避免浮点误差出现在输出中
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
