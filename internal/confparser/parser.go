package confparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/confreload/confreload/internal/lexer"
)

// MaxIncludeDepth bounds recursive `include` nesting. A chain of exactly
// MaxIncludeDepth files including one another succeeds; one more fails.
const MaxIncludeDepth = 10

// FileSystem is the read-only filesystem collaborator the parser consumes.
// Production code uses OSFileSystem; tests supply a map-backed fake so the
// include chain can be exercised without touching disk.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// SyntaxError is returned for a malformed line; it carries the file and
// line so callers can render "file:line: message" without re-deriving it.
type SyntaxError struct {
	Filename string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Msg)
}

// LimitError is returned when an include chain exceeds MaxIncludeDepth.
type LimitError struct {
	Filename string
	Line     int
	Depth    int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s:%d: include depth %d exceeds the limit of %d", e.Filename, e.Line, e.Depth, MaxIncludeDepth)
}

// FileAccessError wraps an underlying filesystem failure with the
// referencing file/line.
type FileAccessError struct {
	Filename string
	Line     int
	Path     string
	Err      error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s:%d: could not open %q: %s", e.Filename, e.Line, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// Parser reads a root file plus its recursive includes into an Assignment
// List. The zero value is not usable; construct with New.
type Parser struct {
	fs      FileSystem
	dataDir string
}

// New returns a Parser reading files through fs. dataDir is the directory
// include paths resolve against when there is no calling file (i.e. for the
// root file itself, if it is given as a relative path with no directory
// component of its own to anchor further includes).
func New(fs FileSystem, dataDir string) *Parser {
	return &Parser{fs: fs, dataDir: dataDir}
}

// Parse parses rootPath and everything it includes, returning the combined
// Assignment List in depth-first, file order. On any error the returned
// List is partial and must be discarded by the caller — nothing about it is
// safe to commit.
func (p *Parser) Parse(rootPath string) (*List, error) {
	list := &List{}
	abs, err := p.resolve(rootPath, p.dataDir)
	if err != nil {
		return list, err
	}
	if err := p.parseFile(abs, 1, list); err != nil {
		return list, err
	}
	return list, nil
}

// resolve anchors path against callingDir unless path is already absolute.
func (p *Parser) resolve(path, callingDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(filepath.Join(callingDir, path))
}

func (p *Parser) parseFile(absPath string, depth int, list *List) error {
	if depth > MaxIncludeDepth {
		return &LimitError{Filename: absPath, Depth: depth}
	}

	src, err := p.fs.ReadFile(absPath)
	if err != nil {
		return &FileAccessError{Filename: absPath, Path: absPath, Err: err}
	}

	dir := filepath.Dir(absPath)
	lx := lexer.New(src)

	for {
		nameTok := lx.Next()
		if nameTok.Kind == lexer.EOF {
			return nil
		}
		if nameTok.Kind == lexer.EOL {
			// blank or comment-only line
			continue
		}
		if nameTok.Kind != lexer.ID && nameTok.Kind != lexer.QualifiedID {
			return &SyntaxError{Filename: absPath, Line: nameTok.Line,
				Msg: fmt.Sprintf("unexpected %s %q, expected a setting name", nameTok.Kind, nameTok.Text)}
		}

		valueTok := lx.Next()
		if valueTok.Kind == lexer.Equals {
			valueTok = lx.Next()
		}
		if !isValueToken(valueTok.Kind) {
			return &SyntaxError{Filename: absPath, Line: valueTok.Line,
				Msg: fmt.Sprintf("unexpected %s %q, expected a value", valueTok.Kind, valueTok.Text)}
		}

		endTok := lx.Next()
		if endTok.Kind != lexer.EOL && endTok.Kind != lexer.EOF {
			return &SyntaxError{Filename: absPath, Line: endTok.Line,
				Msg: fmt.Sprintf("unexpected %s %q at end of line", endTok.Kind, endTok.Text)}
		}

		value := valueTok.Text
		if valueTok.Kind == lexer.String {
			value = lexer.Decode(valueTok.Text)
		}

		if strings.EqualFold(nameTok.Text, "include") {
			includePath, err := p.resolve(value, dir)
			if err != nil {
				return &FileAccessError{Filename: absPath, Line: nameTok.Line, Path: value, Err: err}
			}
			if err := p.parseFile(includePath, depth+1, list); err != nil {
				return err
			}
		} else {
			list.Append(Assignment{
				Name:       nameTok.Text,
				Value:      value,
				Filename:   absPath,
				SourceLine: nameTok.Line,
			})
		}

		if endTok.Kind == lexer.EOF {
			return nil
		}
	}
}

func isValueToken(k lexer.Kind) bool {
	switch k {
	case lexer.ID, lexer.String, lexer.Integer, lexer.Real, lexer.UnquotedString:
		return true
	default:
		return false
	}
}
