package corpus

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/ryumin/askd/internal/retrieval"
)

// extractor reads one file and returns its plain text.
type extractor func(path string) (string, error)

var extractors = map[string]extractor{
	".md":   readTextFile,
	".txt":  readTextFile,
	".pdf":  readPDFFile,
	".html": readHTMLFile,
	".htm":  readHTMLFile,
}

// Reader loads passage documents from a directory tree.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadDocuments walks root and converts every supported file into a
// Document, splitting off the trailing metadata block when present.
// Files with other extensions are skipped silently; a supported file
// that cannot be read or parsed fails the whole load.
func (r *Reader) ReadDocuments(root string) ([]retrieval.Document, error) {
	var docs []retrieval.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		extract, ok := extractors[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		text, err := extract(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		content, meta := ExtractMetadata(text)
		docs = append(docs, retrieval.Document{
			ID:       uuid.New().String(),
			Content:  content,
			Metadata: meta,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDFFile(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readHTMLFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	node, err := html.Parse(f)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	collectText(node, &buf)
	return buf.String(), nil
}

// collectText gathers text nodes, skipping script and style subtrees.
func collectText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}
