package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gametime/internal/config"
	"gametime/internal/gametime"
)

// readLines returns the meaningful lines of path: blank lines and # comments
// are skipped and surrounding whitespace is trimmed.
func readLines(path string) ([]string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// readIDFile reads one steam id per line.
func readIDFile(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lines))
	for i, line := range lines {
		if strings.ContainsAny(line, " \t,") {
			return nil, fmt.Errorf("%s: entry %d: expected a single steam id, got %q", path, i+1, line)
		}
		ids = append(ids, line)
	}
	return ids, nil
}

// readStartsFile reads "<steam_id>,<date>" lines. A space or tab may be used
// instead of the comma.
func readStartsFile(path string) (map[string]time.Time, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	starts := make(map[string]time.Time, len(lines))
	for _, line := range lines {
		id, date, ok := strings.Cut(line, ",")
		if !ok {
			id, date, ok = strings.Cut(line, " ")
		}
		if !ok {
			id, date, ok = strings.Cut(line, "\t")
		}
		if !ok {
			return nil, fmt.Errorf("%s: expected '<steam_id>,<date>', got %q", path, line)
		}
		id = strings.TrimSpace(id)
		ts, err := gametime.ParseTime(strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("%s: start date for %s: %w", path, id, err)
		}
		if _, dup := starts[id]; dup {
			return nil, fmt.Errorf("%s: steam id %s listed twice", path, id)
		}
		starts[id] = ts
	}
	return starts, nil
}

type subjectMappingFile struct {
	Subjects map[string]string `toml:"subjects"`
}

// readSubjectMapping loads a [subjects] table of steam_id = "label".
func readSubjectMapping(path string) (gametime.Mapping, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	var file subjectMappingFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return gametime.Mapping(file.Subjects), nil
}

// parseGroup parses a comma-separated list of values. An empty string is an
// empty group.
func parseGroup(value string) ([]float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []float64{}, nil
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid group value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
