// Package include expands psql include meta-commands in schema files.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// directivePattern matches \i, \ir, \include and \include_relative with an
// optionally quoted path and an optional trailing semicolon.
var directivePattern = regexp.MustCompile(`^\s*\\(i|ir|include|include_relative)\s+('[^']+'|"[^"]+"|[^\s;]+)\s*;?\s*$`)

// Processor expands include directives. \i paths resolve against the base
// directory, \ir paths against the directory of the including file; both
// must stay inside the base directory.
type Processor struct {
	baseDir  string
	visited  map[string]bool
	included map[string]bool
}

// NewProcessor creates a processor rooted at baseDir.
func NewProcessor(baseDir string) *Processor {
	return &Processor{
		baseDir:  baseDir,
		visited:  make(map[string]bool),
		included: make(map[string]bool),
	}
}

// ProcessFile reads filename and returns its content with every include
// directive replaced by the content of the included file.
func (p *Processor) ProcessFile(filename string) (string, error) {
	p.visited = make(map[string]bool)

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", filename, err)
	}
	if p.baseDir == "" {
		p.baseDir = filepath.Dir(absPath)
	}
	return p.processFile(absPath)
}

// Included returns the absolute paths of every file pulled in by an
// include directive so far, sorted.
func (p *Processor) Included() []string {
	out := make([]string, 0, len(p.included))
	for path := range p.included {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (p *Processor) processFile(filename string) (string, error) {
	if p.visited[filename] {
		return "", fmt.Errorf("circular include detected: %s", filename)
	}
	p.visited[filename] = true
	// the same file may still be included from another branch
	defer delete(p.visited, filename)

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	processed, err := p.expand(string(content), filepath.Dir(filename))
	if err != nil {
		return "", fmt.Errorf("failed to process includes in %s: %w", filename, err)
	}
	return processed, nil
}

func (p *Processor) expand(content, currentDir string) (string, error) {
	lines := strings.Split(content, "\n")
	var result strings.Builder

	for i, line := range lines {
		matches := directivePattern.FindStringSubmatch(line)
		if matches == nil {
			result.WriteString(line)
			if i < len(lines)-1 {
				result.WriteString("\n")
			}
			continue
		}

		target := strings.Trim(matches[2], `'"`)
		dir := p.baseDir
		if matches[1] == "ir" || matches[1] == "include_relative" {
			dir = currentDir
		}
		resolved, err := p.resolve(target, dir)
		if err != nil {
			return "", fmt.Errorf("line %d: failed to resolve include path %s: %w", i+1, target, err)
		}
		p.included[resolved] = true

		included, err := p.processFile(resolved)
		if err != nil {
			return "", fmt.Errorf("line %d: failed to process included file %s: %w", i+1, resolved, err)
		}
		result.WriteString(included)
		if !strings.HasSuffix(included, "\n") {
			result.WriteString("\n")
		}
	}
	return result.String(), nil
}

// resolve joins target to dir and checks that the result exists inside the
// base directory.
func (p *Processor) resolve(target, dir string) (string, error) {
	clean := filepath.Clean(target)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("absolute include paths are not allowed: %s", target)
	}

	absPath, err := filepath.Abs(filepath.Join(dir, clean))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	baseAbs, err := filepath.Abs(p.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute base path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("include path %s is outside the base directory %s", target, p.baseDir)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("included file does not exist: %s", absPath)
	}
	return absPath, nil
}
