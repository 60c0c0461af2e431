package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/pkg/model"
)

// Format names a scenario input format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

// Parser converts scenario files into model.Scenario values.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logging.Component(logger, "parser")}
}

// ParseFile reads and parses the scenario at path. Files ending in .yaml or
// .yml are parsed as YAML; anything else is auto-detected. The scenario is
// named after the file.
func (p *Parser) ParseFile(path string) (*model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	format := FormatAuto
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	sc, err := p.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Parse parses data in the given format.
func (p *Parser) Parse(data []byte, format Format) (*model.Scenario, error) {
	if format == FormatAuto || format == "" {
		format = DetectFormat(data)
	}
	var (
		sc  *model.Scenario
		err error
	)
	switch format {
	case FormatText:
		sc, err = parseText(data)
	case FormatYAML:
		sc, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("scenario parsed", "format", format, "resources", len(sc.Resources), "tasks", len(sc.Tasks))
	return sc, nil
}

// DetectFormat returns FormatText when the first significant character is
// '[' (the resource table) or a digit, and FormatYAML otherwise.
func DetectFormat(data []byte) Format {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if line[0] == '[' || (line[0] >= '0' && line[0] <= '9') {
			return FormatText
		}
		return FormatYAML
	}
	return FormatText
}

var (
	resourceRe = regexp.MustCompile(`\[\s*(\d+)\s*,\s*(\d+)\s*\]`)
	bracketRe  = regexp.MustCompile(`(?i)^(R|F)\[\s*(\d+)\s*,\s*(\d+)\s*\]$`)
	callRe     = regexp.MustCompile(`(?i)^(request|release)\(\s*(\d+)\s*,\s*(\d+)\s*\)$`)
)

// parseText parses the line-oriented format:
//
//	[1, 2], [2, 1]
//	1 0 3 CPU {R[1,1], 5, F[1,1]} IO {4} CPU {3}
func parseText(data []byte) (*model.Scenario, error) {
	sc := &model.Scenario{Resources: []model.Resource{}, Tasks: []model.TaskSpec{}}
	seenHeader := false

	for i, raw := range strings.Split(string(data), "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seenHeader {
			seenHeader = true
			resources, err := parseResources(line, lineNo)
			if err != nil {
				return nil, err
			}
			sc.Resources = resources
			continue
		}
		task, err := parseTaskLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		sc.Tasks = append(sc.Tasks, task)
	}
	if !seenHeader {
		return nil, &model.ParseError{Line: 1, Message: "empty scenario: missing resource table"}
	}
	return sc, nil
}

func parseResources(line string, lineNo int) ([]model.Resource, error) {
	resources := []model.Resource{}
	for _, m := range resourceRe.FindAllStringSubmatch(line, -1) {
		id, n, err := parsePair(m[1], m[2])
		if err != nil {
			return nil, &model.ParseError{Line: lineNo, Token: m[0], Message: err.Error()}
		}
		resources = append(resources, model.Resource{ID: id, Instances: n})
	}
	rest := strings.Trim(resourceRe.ReplaceAllString(line, ""), " ,\t")
	if rest != "" && rest != "[]" {
		return nil, &model.ParseError{Line: lineNo, Token: rest, Message: "malformed resource table, want [id, instances], ..."}
	}
	return resources, nil
}

func parseTaskLine(line string, lineNo int) (model.TaskSpec, error) {
	var spec model.TaskSpec
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return spec, &model.ParseError{Line: lineNo, Token: line, Message: "want PID ARRIVAL PRIORITY followed by bursts"}
	}
	nums := make([]int, 3)
	for i, name := range []string{"pid", "arrival", "priority"} {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return spec, &model.ParseError{Line: lineNo, Token: fields[i], Message: "invalid " + name}
		}
		nums[i] = n
	}
	spec.ID, spec.Arrival, spec.Priority = nums[0], nums[1], nums[2]

	// Everything after the third field is the burst list.
	rest := line
	for _, f := range fields[:3] {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, f))
	}
	bursts, err := parseBursts(rest, lineNo)
	if err != nil {
		return spec, err
	}
	spec.Bursts = bursts
	return spec, nil
}

// parseBursts scans `CPU {...}` and `IO {n}` groups.
func parseBursts(s string, lineNo int) ([]model.Burst, error) {
	var bursts []model.Burst
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return bursts, nil
		}
		open := strings.IndexByte(s, '{')
		if open < 0 {
			return nil, &model.ParseError{Line: lineNo, Token: s, Message: "burst is missing '{'"}
		}
		kind := strings.ToUpper(strings.TrimSpace(s[:open]))
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return nil, &model.ParseError{Line: lineNo, Token: s, Message: "burst is missing '}'"}
		}
		body := s[open+1 : open+end]
		token := s[:open+end+1]
		s = s[open+end+1:]

		switch kind {
		case "CPU":
			actions, err := parseActions(body, lineNo)
			if err != nil {
				return nil, err
			}
			bursts = append(bursts, model.CPU(actions...))
		case "IO":
			n, err := strconv.Atoi(strings.TrimSpace(body))
			if err != nil {
				return nil, &model.ParseError{Line: lineNo, Token: token, Message: "IO duration must be an integer"}
			}
			bursts = append(bursts, model.IO(n))
		default:
			return nil, &model.ParseError{Line: lineNo, Token: token, Message: "unknown burst kind, want CPU or IO"}
		}
	}
}

// parseActions parses a comma-separated CPU burst body. Commas inside
// brackets or parentheses do not split items; empty items are skipped.
func parseActions(body string, lineNo int) ([]model.Action, error) {
	actions := []model.Action{}
	for _, item := range splitItems(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		a, err := parseAction(item)
		if err != nil {
			return nil, &model.ParseError{Line: lineNo, Token: item, Message: err.Error()}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func parseAction(item string) (model.Action, error) {
	n, err := strconv.Atoi(item)
	if err == nil {
		return model.Run(n), nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return model.Action{}, fmt.Errorf("run duration %s is out of range", item)
	}
	m := bracketRe.FindStringSubmatch(item)
	if m == nil {
		m = callRe.FindStringSubmatch(item)
	}
	if m == nil {
		return model.Action{}, errors.New("unknown CPU burst item, want N, R[id,n] or F[id,n]")
	}
	id, n, err := parsePair(m[2], m[3])
	if err != nil {
		return model.Action{}, err
	}
	switch strings.ToLower(m[1]) {
	case "r", "request":
		return model.Request(id, n), nil
	default:
		return model.Release(id, n), nil
	}
}

// parsePair converts the digit groups of an [id, n] pair.
func parsePair(id, n string) (int, int, error) {
	a, err := strconv.Atoi(id)
	if err != nil {
		return 0, 0, fmt.Errorf("resource id %s is out of range", id)
	}
	b, err := strconv.Atoi(n)
	if err != nil {
		return 0, 0, fmt.Errorf("count %s is out of range", n)
	}
	return a, b, nil
}

func splitItems(s string) []string {
	var (
		items []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	return append(items, s[start:])
}

// yamlScenario is the on-disk YAML layout.
type yamlScenario struct {
	Name      string           `yaml:"name"`
	Resources []model.Resource `yaml:"resources"`
	Tasks     []yamlTask       `yaml:"tasks"`
}

type yamlTask struct {
	ID       int         `yaml:"id"`
	Arrival  int         `yaml:"arrival"`
	Priority int         `yaml:"priority"`
	Bursts   []yamlBurst `yaml:"bursts"`
}

type yamlBurst struct {
	CPU  *string `yaml:"cpu"`
	IO   *int    `yaml:"io"`
	line int
}

// UnmarshalYAML records the burst's source line for error reporting.
func (b *yamlBurst) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlBurst
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*b = yamlBurst(v)
	b.line = node.Line
	return nil
}

func parseYAML(data []byte) (*model.Scenario, error) {
	var doc yamlScenario
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ParseError{Message: "invalid YAML scenario: " + err.Error()}
	}
	sc := &model.Scenario{
		Name:      doc.Name,
		Resources: doc.Resources,
		Tasks:     make([]model.TaskSpec, 0, len(doc.Tasks)),
	}
	if sc.Resources == nil {
		sc.Resources = []model.Resource{}
	}
	for _, t := range doc.Tasks {
		spec := model.TaskSpec{ID: t.ID, Arrival: t.Arrival, Priority: t.Priority}
		for _, b := range t.Bursts {
			switch {
			case b.CPU != nil && b.IO != nil:
				return nil, &model.ParseError{Line: b.line, Message: "burst sets both cpu and io"}
			case b.CPU != nil:
				actions, err := parseActions(*b.CPU, b.line)
				if err != nil {
					return nil, err
				}
				spec.Bursts = append(spec.Bursts, model.CPU(actions...))
			case b.IO != nil:
				spec.Bursts = append(spec.Bursts, model.IO(*b.IO))
			default:
				return nil, &model.ParseError{Line: b.line, Message: "burst must set cpu or io"}
			}
		}
		sc.Tasks = append(sc.Tasks, spec)
	}
	return sc, nil
}
