package versioning

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
)

// Record is the parsed Version Record.
type Record struct {
	Number string
	Build  int
}

// Label returns the record's release label.
func (r Record) Label() string { return Label(r.Number, r.Build) }

// Store reads and writes the record file.
type Store struct {
	path      string
	numberKey string
	buildKey  string
}

// NewStore creates a store for the record at path.
func NewStore(path, numberKey, buildKey string) *Store {
	return &Store{path: path, numberKey: numberKey, buildKey: buildKey}
}

// Path returns the record file path.
func (s *Store) Path() string { return s.path }

// document keeps every line of the file so that rewriting only touches the
// build value.
type document struct {
	lines     []string
	newline   string
	trailing  bool
	numberIdx int
	buildIdx  int
	record    Record
}

// Read parses the record.
func (s *Store) Read() (Record, error) {
	doc, err := s.load()
	if err != nil {
		return Record{}, err
	}
	return doc.record, nil
}

// Bump increments the build counter and persists it atomically. The returned
// record is the new one. On failure the file is unchanged.
func (s *Store) Bump() (Record, error) {
	doc, err := s.load()
	if err != nil {
		return Record{}, err
	}
	doc.record.Build++
	doc.lines[doc.buildIdx] = s.buildKey + ": " + strconv.Itoa(doc.record.Build)

	if err := s.save(doc); err != nil {
		return Record{}, err
	}
	return doc.record, nil
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, s.failure("version record not found", err)
	}
	if err != nil {
		return nil, s.failure("cannot read version record", err)
	}

	text := string(data)
	doc := &document{newline: "\n", numberIdx: -1, buildIdx: -1}
	if strings.Contains(text, "\r\n") {
		doc.newline = "\r\n"
	}
	doc.trailing = strings.HasSuffix(text, doc.newline)
	text = strings.TrimSuffix(text, doc.newline)
	doc.lines = strings.Split(text, doc.newline)

	for i, line := range doc.lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case s.numberKey:
			doc.numberIdx = i
			doc.record.Number = strings.TrimSpace(value)
		case s.buildKey:
			doc.buildIdx = i
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, s.failure(fmt.Sprintf("build counter %q is not a non-negative integer", strings.TrimSpace(value)), err)
			}
			doc.record.Build = n
		}
	}

	if doc.numberIdx < 0 || doc.record.Number == "" {
		return nil, s.failure(fmt.Sprintf("version record has no %s entry", s.numberKey), nil)
	}
	if doc.buildIdx < 0 {
		return nil, s.failure(fmt.Sprintf("version record has no %s entry", s.buildKey), nil)
	}
	if err := ValidateNumber(doc.record.Number); err != nil {
		return nil, s.failure("invalid release number", err)
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	out := strings.Join(doc.lines, doc.newline)
	if doc.trailing {
		out += doc.newline
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsutil.AtomicWriteFile(s.path, []byte(out), perm); err != nil {
		return s.failure("cannot write version record", err)
	}
	return nil
}

func (s *Store) failure(msg string, cause error) error {
	b := ferrors.VersionPersistenceFailure(msg).WithContext("path", s.path)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}
