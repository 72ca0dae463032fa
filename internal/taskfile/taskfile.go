// Package taskfile parses markdown task files into tasks.
//
// A task file carries optional YAML frontmatter for structured fields,
// followed by a markdown body. The first level-1 heading becomes the task
// description; "## Requirements" and "## Context Files" sections contribute
// bullet items.
package taskfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/foreman/internal/models"
)

// Parser parses markdown task files.
type Parser struct {
	markdown goldmark.Markdown
}

// NewParser creates a task file parser.
func NewParser() *Parser {
	return &Parser{markdown: goldmark.New()}
}

// frontmatterFields is the structured header of a task file.
type frontmatterFields struct {
	ID            string   `yaml:"id"`
	WorkingDir    string   `yaml:"working_dir"`
	MaxIterations int      `yaml:"max_iterations"`
	ContextFiles  []string `yaml:"context_files"`
	Requirements  []string `yaml:"requirements"`
}

// ParseFile parses the task file at path. When the frontmatter carries no
// id, the file's base name without extension is used.
func (p *Parser) ParseFile(path string) (*models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()

	task, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}

	if task.ID == "" {
		base := filepath.Base(path)
		task.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return task, nil
}

// Parse parses a task file from a reader. The caller is responsible for
// assigning an ID if the frontmatter omits one.
func (p *Parser) Parse(r io.Reader) (*models.Task, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	task := &models.Task{}

	body, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var fields frontmatterFields
		if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		task.ID = fields.ID
		task.WorkingDir = fields.WorkingDir
		task.MaxIterations = fields.MaxIterations
		task.ContextFiles = append(task.ContextFiles, fields.ContextFiles...)
		task.Requirements = append(task.Requirements, fields.Requirements...)
	}

	if err := p.parseBody(task, body); err != nil {
		return nil, err
	}

	if task.Description == "" {
		return nil, fmt.Errorf("task file has no description: add a level-1 heading or body text")
	}
	return task, nil
}

// parseBody walks the markdown AST, taking the first level-1 heading as the
// description and collecting bullet items from known level-2 sections.
func (p *Parser) parseBody(task *models.Task, source []byte) error {
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var section string

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			title := extractText(node, source)
			if node.Level == 1 && task.Description == "" {
				task.Description = title
				return ast.WalkSkipChildren, nil
			}
			if node.Level == 2 {
				section = strings.ToLower(strings.TrimSpace(title))
				return ast.WalkSkipChildren, nil
			}
			section = ""

		case *ast.ListItem:
			item := strings.TrimSpace(extractItemText(node, source))
			if item == "" {
				return ast.WalkContinue, nil
			}
			switch section {
			case "requirements":
				task.Requirements = append(task.Requirements, item)
			case "context files":
				task.ContextFiles = append(task.ContextFiles, item)
			}
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk task markdown: %w", err)
	}

	// No heading at all: use the whole body as the description.
	if task.Description == "" {
		task.Description = strings.TrimSpace(string(source))
	}
	return nil
}

// extractText extracts plain text from an AST node's direct children.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// extractItemText extracts the text of a list item, descending through its
// paragraph wrapper and inline nodes.
func extractItemText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractFrontmatter extracts YAML frontmatter from markdown content.
// Returns the content without frontmatter and the frontmatter bytes.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	return content, nil
}
