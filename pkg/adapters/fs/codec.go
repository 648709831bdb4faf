package fs

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/kbsync/pkg/core"
)

// DefaultPriority is assigned to files whose frontmatter omits a priority.
const DefaultPriority = 3

var (
	fenceOpen  = []byte("---\n")
	fenceClose = []byte("\n---\n")
)

// frontmatter is the YAML header of a record file.
type frontmatter struct {
	ID        string        `yaml:"id,omitempty"`
	Title     string        `yaml:"title"`
	Category  core.Category `yaml:"category"`
	CreatedAt time.Time     `yaml:"created_at,omitempty"`
	UpdatedAt time.Time     `yaml:"updated_at,omitempty"`
	Tags      []string      `yaml:"tags,omitempty"`
	Priority  int           `yaml:"priority"`
	Status    core.Status   `yaml:"status"`
}

// ParseRecord decodes a Markdown file with YAML frontmatter into a record owned
// by device. The record ID is always id, derived from the file path: an id key
// in the frontmatter is informational only. modTime fills missing timestamps.
// Missing status means active, missing priority DefaultPriority.
func ParseRecord(data []byte, id, device string, modTime time.Time) (core.Record, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, fenceOpen) {
		return core.Record{}, errors.New("missing frontmatter")
	}
	rest := data[len(fenceOpen):]

	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, fenceOpen[:3]) && (len(rest) == 3 || rest[3] == '\n'):
		// Empty frontmatter.
		body = bytes.TrimPrefix(rest[3:], []byte("\n"))
	default:
		end := bytes.Index(rest, fenceClose)
		switch {
		case end >= 0:
			header, body = rest[:end+1], rest[end+len(fenceClose):]
		case bytes.HasSuffix(rest, fenceClose[:4]):
			header = rest[:len(rest)-3]
		default:
			return core.Record{}, errors.New("frontmatter started but no closing delimiter found")
		}
	}

	var fm frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return core.Record{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	r := core.Record{
		ID:           id,
		Title:        fm.Title,
		Content:      string(body),
		Category:     fm.Category,
		OriginDevice: device,
		CreatedAt:    fm.CreatedAt,
		UpdatedAt:    fm.UpdatedAt,
		Tags:         fm.Tags,
		Priority:     fm.Priority,
		Status:       fm.Status,
	}
	if r.Status == "" {
		r.Status = core.StatusActive
	}
	if r.Priority == 0 {
		r.Priority = DefaultPriority
	}
	switch {
	case r.CreatedAt.IsZero() && r.UpdatedAt.IsZero():
		r.CreatedAt, r.UpdatedAt = modTime, modTime
	case r.CreatedAt.IsZero():
		r.CreatedAt = r.UpdatedAt
	case r.UpdatedAt.IsZero():
		r.UpdatedAt = r.CreatedAt
	}
	return r, nil
}

// FormatRecord encodes a record as Markdown with YAML frontmatter.
// The origin device is not written: it is implied by the directory.
func FormatRecord(r core.Record) ([]byte, error) {
	fm := frontmatter{
		ID:        r.ID,
		Title:     r.Title,
		Category:  r.Category,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Tags:      r.Tags,
		Priority:  r.Priority,
		Status:    r.Status,
	}

	var buf bytes.Buffer
	buf.Write(fenceOpen)
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.Write(fenceOpen)
	buf.WriteString(r.Content)
	return buf.Bytes(), nil
}
