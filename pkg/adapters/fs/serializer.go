package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/markdown"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads a note from r.
	Parse(r io.Reader) (core.Note, error)
	// Serialize converts the note to bytes.
	Serialize(n core.Note) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
		".md":   MarkdownSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer stores the note model as indented JSON.
type JSONSerializer struct{}

func (JSONSerializer) Parse(r io.Reader) (core.Note, error) {
	var n core.Note
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return core.Note{}, fmt.Errorf("invalid json: %w", err)
	}
	return n, nil
}

func (JSONSerializer) Serialize(n core.Note) ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}

// --- YAML Serializer ---

// YAMLSerializer stores the note model as YAML.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(r io.Reader) (core.Note, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Note{}, err
	}
	var n core.Note
	if err := yaml.Unmarshal(data, &n); err != nil {
		return core.Note{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return n, nil
}

func (YAMLSerializer) Serialize(n core.Note) ([]byte, error) {
	return yaml.Marshal(n)
}

// --- Markdown Serializer ---

// MarkdownSerializer writes a YAML frontmatter followed by the note as
// markdown. Block ids live in the frontmatter and are reattached on parse
// when the file still has the same number of blocks.
type MarkdownSerializer struct{}

type frontmatter struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title,omitempty"`
	Folder  *string   `yaml:"folder,omitempty"`
	Created time.Time `yaml:"created"`
	Blocks  []string  `yaml:"blocks,omitempty"`
}

var (
	fmOpen  = []byte("---\n")
	fmClose = []byte("\n---\n")
)

func (MarkdownSerializer) Parse(r io.Reader) (core.Note, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Note{}, err
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	var fm frontmatter
	body := data
	if bytes.HasPrefix(data, fmOpen) {
		rest := data[len(fmOpen):]
		end := bytes.Index(append([]byte("\n"), rest...), fmClose)
		if end < 0 {
			return core.Note{}, errors.New("frontmatter started but no closing delimiter found")
		}
		head := rest[:max(end-1, 0)]
		body = rest[min(end+len(fmClose)-1, len(rest)):]
		if err := yaml.Unmarshal(head, &fm); err != nil {
			return core.Note{}, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	n := markdown.ImportNote(fm.ID, body)
	if fm.Title != "" {
		n.Title, n.Content.Title = fm.Title, fm.Title
	}
	n.Folder = fm.Folder
	n.Created = fm.Created
	if len(fm.Blocks) == len(n.Content.Blocks) {
		for i := range n.Content.Blocks {
			n.Content.Blocks[i].ID = fm.Blocks[i]
		}
	}
	return n, nil
}

func (MarkdownSerializer) Serialize(n core.Note) ([]byte, error) {
	fm := frontmatter{ID: n.ID, Title: n.Title, Folder: n.Folder, Created: n.Created}
	for _, b := range n.Content.Blocks {
		fm.Blocks = append(fm.Blocks, b.ID)
	}

	var buf bytes.Buffer
	buf.Write(fmOpen)
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, err
	}
	encoder.Close()
	buf.WriteString("---\n")
	buf.Write(markdown.Export(n))
	return buf.Bytes(), nil
}
