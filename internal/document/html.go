package document

import (
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageCSS prints one backup page per sheet with codes at their A4 positions.
const pageCSS = `@page { size: A4; margin: 0; }
body { margin: 0; font-family: Helvetica, Arial, sans-serif; }
.page { position: relative; width: 21cm; height: 29.7cm; page-break-after: always; overflow: hidden; }
.code { position: absolute; margin: 0; }
.code img { display: block; width: 8cm; height: 8cm; image-rendering: pixelated; }
.code figcaption { position: absolute; top: -0.6cm; left: 0.6cm; white-space: nowrap; }
.footer { position: absolute; bottom: 0.6cm; left: 10cm; }`

// HTMLWriter produces a self-contained page with the codes embedded as data
// URIs, for printing from a browser.
type HTMLWriter struct{}

func (h *HTMLWriter) Write(w io.Writer, doc Document) error {
	body := element(atom.Body)
	for _, page := range doc.Pages {
		div := element(atom.Div, attr("class", "page"))
		for _, pl := range page.Placements {
			fig := element(atom.Figure,
				attr("class", "code"),
				attr("style", fmt.Sprintf("left:%.2fcm;bottom:%.2fcm", pl.Position.X, pl.Position.Y)),
			)
			fig.AppendChild(element(atom.Img,
				attr("src", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pl.Image)),
				attr("alt", pl.Caption),
			))
			caption := element(atom.Figcaption)
			caption.AppendChild(text(pl.Caption))
			fig.AppendChild(caption)
			div.AppendChild(fig)
		}
		footer := element(atom.Div, attr("class", "footer"))
		footer.AppendChild(text(page.Footer))
		div.AppendChild(footer)
		body.AppendChild(div)
	}

	title := element(atom.Title)
	title.AppendChild(text(doc.Title))
	style := element(atom.Style)
	style.AppendChild(text(pageCSS))
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	head.AppendChild(title)
	head.AppendChild(style)

	root := element(atom.Html, attr("lang", "en"))
	root.AppendChild(head)
	root.AppendChild(body)

	d := &html.Node{Type: html.DocumentNode}
	d.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	d.AppendChild(root)

	if err := html.Render(w, d); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
