package types

import (
	"bytes"
	"fmt"
	"log"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

// FeedbackHTML renders grading feedback as a single HTML fragment.
// Feedback arrives as markdown-ish plain text from the AI service or the
// teacher; markdown is processed and any script or style elements that
// survive rendering are stripped before the result is handed to a browser.
func FeedbackHTML(feedback string) (string, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return "", nil
	}
	if !utf8.ValidString(feedback) {
		return "", loggedErrorf("feedback is not valid utf8")
	}

	var extensions blackfriday.Extensions
	extensions |= blackfriday.NoIntraEmphasis
	extensions |= blackfriday.Tables
	extensions |= blackfriday.FencedCode
	extensions |= blackfriday.Autolink
	extensions |= blackfriday.Strikethrough
	extensions |= blackfriday.SpaceHeadings
	extensions |= blackfriday.HardLineBreak

	justHTML := blackfriday.Run([]byte(feedback), blackfriday.WithExtensions(extensions))

	// parse the html
	doc, err := html.Parse(bytes.NewReader(justHTML))
	if err != nil {
		log.Printf("error parsing rendered feedback: %v", err)
		return "", err
	}
	if doc == nil {
		return "", loggedErrorf("parsing the HTML yielded a nil document")
	}

	// drop script and style elements
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		c := n.FirstChild
		for c != nil {
			next := c.NextSibling
			if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
				n.RemoveChild(c)
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(doc)

	// re-render it
	var buf bytes.Buffer
	if err = html.Render(&buf, doc); err != nil {
		log.Printf("error rendering HTML: %v", err)
		return "", err
	}

	return buf.String(), nil
}

func loggedErrorf(f string, params ...interface{}) error {
	log.Print(logPrefix() + fmt.Sprintf(f, params...))
	return fmt.Errorf(f, params...)
}

func logPrefix() string {
	prefix := ""
	if _, file, line, ok := runtime.Caller(2); ok {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		file = short
		prefix = fmt.Sprintf("%s:%d: ", file, line)
	}
	return prefix
}
