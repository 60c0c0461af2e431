package parser

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/me/schedsim/pkg/model"
)

func testParser() *Parser {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func testdataPath(rel string) string {
	return filepath.Join("..", "..", "testdata", rel)
}

func loadTestdata(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(testdataPath(rel))
	if err != nil {
		t.Fatalf("load testdata %q: %v", rel, err)
	}
	return data
}

func TestParseFile_ClassicDeadlock(t *testing.T) {
	sc, err := testParser().ParseFile(testdataPath("scenarios/classic_deadlock.txt"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if sc.Name != "classic_deadlock" {
		t.Errorf("Name = %q, want classic_deadlock", sc.Name)
	}
	wantRes := []model.Resource{{ID: 1, Instances: 1}, {ID: 2, Instances: 1}}
	if !slices.Equal(sc.Resources, wantRes) {
		t.Errorf("Resources = %v, want %v", sc.Resources, wantRes)
	}
	if len(sc.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(sc.Tasks))
	}
	p2 := sc.Tasks[1]
	if p2.ID != 2 || p2.Arrival != 0 || p2.Priority != 0 {
		t.Errorf("P2 header = %+v", p2)
	}
	if got := p2.Bursts[0].String(); got != "CPU {R[2,1], 5, R[1,1], 5}" {
		t.Errorf("P2 burst = %q", got)
	}
}

func TestParseFile_YAML(t *testing.T) {
	sc, err := testParser().ParseFile(testdataPath("scenarios/mixed.yaml"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if sc.Name != "mixed" || len(sc.Resources) != 2 || len(sc.Tasks) != 3 {
		t.Fatalf("scenario = %+v", sc)
	}

	tests := []struct {
		task  int
		burst int
		want  string
	}{
		{0, 0, "CPU {R[1,1], 3, F[1,1]}"},
		{0, 1, "IO {4}"},
		{0, 2, "CPU {2}"},
		{1, 0, "CPU {R[2,1], 4, F[2,1]}"},
		{2, 0, "CPU {6}"},
	}
	for _, tt := range tests {
		if got := sc.Tasks[tt.task].Bursts[tt.burst].String(); got != tt.want {
			t.Errorf("task %d burst %d = %q, want %q", tt.task, tt.burst, got, tt.want)
		}
	}
}

func TestParse_TextGrammar(t *testing.T) {
	data := []byte(`
# comment
[1,2] , [7, 0]
3 4 5 CPU{request(1, 2), 3, release(1,2)}   IO { 6 } cpu {1,}
`)
	sc, err := testParser().Parse(data, FormatAuto)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !slices.Equal(sc.Resources, []model.Resource{{ID: 1, Instances: 2}, {ID: 7, Instances: 0}}) {
		t.Errorf("Resources = %v", sc.Resources)
	}
	task := sc.Tasks[0]
	if task.ID != 3 || task.Arrival != 4 || task.Priority != 5 || len(task.Bursts) != 3 {
		t.Fatalf("task = %+v", task)
	}
	want := []model.Burst{
		model.CPU(model.Request(1, 2), model.Run(3), model.Release(1, 2)),
		model.IO(6),
		model.CPU(model.Run(1)),
	}
	for i := range want {
		if task.Bursts[i].String() != want[i].String() {
			t.Errorf("burst %d = %s, want %s", i, task.Bursts[i], want[i])
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLine  int
		wantToken string
	}{
		{"empty", "# nothing\n", 1, ""},
		{"bad resource table", "[1, 1], oops\n", 1, "oops"},
		{"short task line", "[1,1]\n1 0\n", 2, "1 0"},
		{"bad arrival", "[1,1]\n1 x 0 CPU {1}\n", 2, "x"},
		{"unknown burst kind", "[1,1]\n\n1 0 0 GPU {1}\n", 3, "GPU {1}"},
		{"unclosed burst", "[1,1]\n1 0 0 CPU {1, 2\n", 2, "CPU {1, 2"},
		{"bad item", "[1,1]\n1 0 0 CPU {R[1], 2}\n", 2, "R[1]"},
		{"bad io", "[1,1]\n1 0 0 CPU {1} IO {two} CPU {1}\n", 2, "IO {two}"},
		{"huge instances", "[1, 99999999999999999999]\n", 1, "[1, 99999999999999999999]"},
		{"huge resource id", "[99999999999999999999, 1]\n", 1, "[99999999999999999999, 1]"},
		{"huge request", "[1,1]\n1 0 0 CPU {R[1,99999999999999999999], 1}\n", 2, "R[1,99999999999999999999]"},
		{"huge release", "[1,1]\n1 0 0 CPU {1, release(1, 99999999999999999999)}\n", 2, "release(1, 99999999999999999999)"},
		{"huge run", "[1,1]\n1 0 0 CPU {99999999999999999999}\n", 2, "99999999999999999999"},
		{"huge pid", "[1,1]\n99999999999999999999 0 0 CPU {1}\n", 2, "99999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testParser().Parse([]byte(tt.input), FormatText)
			if !errors.Is(err, model.ErrParse) {
				t.Fatalf("error = %v, want ErrParse", err)
			}
			var pe *model.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a ParseError", err)
			}
			if pe.Line != tt.wantLine || pe.Token != tt.wantToken {
				t.Errorf("line/token = %d/%q, want %d/%q", pe.Line, pe.Token, tt.wantLine, tt.wantToken)
			}
		})
	}
}

func TestParse_OutOfRangeNumbers(t *testing.T) {
	for _, input := range []string{
		"[1, 99999999999999999999]\n",
		"[1,1]\n1 0 0 CPU {F[1,99999999999999999999]}\n",
		"[1,1]\n1 0 0 CPU {99999999999999999999}\n",
	} {
		sc, err := testParser().Parse([]byte(input), FormatText)
		if err == nil {
			t.Errorf("Parse(%q) = %+v, want error", input, sc)
			continue
		}
		if !strings.Contains(err.Error(), "out of range") {
			t.Errorf("Parse(%q) error = %v, want it to mention the range", input, err)
		}
	}
}

func TestParse_YAMLErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"malformed", "tasks: [", 0},
		{"both kinds", "tasks:\n  - id: 1\n    bursts:\n      - {cpu: \"1\", io: 2}\n", 4},
		{"neither kind", "tasks:\n  - id: 1\n    bursts:\n      - {}\n", 4},
		{"bad cpu item", "tasks:\n  - id: 1\n    bursts:\n      - cpu: \"1, X[1,1]\"\n", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testParser().Parse([]byte(tt.input), FormatYAML)
			var pe *model.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want ParseError", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", pe.Line, tt.wantLine)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"[1, 1]\n1 0 0 CPU {1}", FormatText},
		{"# header\n\n  [1,1]", FormatText},
		{"1 0 0 CPU {1}", FormatText},
		{"resources: []\ntasks: []", FormatYAML},
		{"# yaml\n---\ntasks: []", FormatYAML},
		{"", FormatText},
	}
	for _, tt := range tests {
		if got := DetectFormat([]byte(tt.input)); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := testParser().ParseFile(testdataPath("scenarios/does-not-exist.txt"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, model.ErrParse) {
		t.Error("a missing file is not a parse error")
	}
}
