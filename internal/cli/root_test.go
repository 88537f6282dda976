package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecords = `{"control_number": 1, "title": "Higgs boson discovery", "author": "Ellis, John", "collection": "Published"}
{"control_number": 2, "title": "Dark matter review", "author": "Smith, Jane", "collection": "Preprint"}
{"control_number": 3, "title": "Neutrino masses", "author": "Smith, Jane", "collection": "Published"}
`

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func localConfig(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	return writeConfig(t, "log_level: error\nbackend:\n  kind: local\n  local:\n    dir: "+dir+"\n")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "recsearch", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"parse", "search", "match", "terms", "index", "repl"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("user"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("group"))
}

func TestSearchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	searchCmd, _, err := cmd.Find([]string{"search"})
	require.NoError(t, err)

	for _, name := range []string{"collection", "from", "size", "recids", "no-enhance"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "false", searchCmd.Flags().Lookup("recids").DefValue)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantStrategy string
		wantSyntax   bool
	}{
		{"free text", []string{"higgs", "boson"}, "fulltext", false},
		{"keyword", []string{"title:higgs"}, "structured", false},
		{"collection scope", []string{"higgs", "--collection", "Published"}, "structured", false},
		{"malformed", []string{"title:"}, "fulltext", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"parse"}, tt.args...)...)
			require.NoError(t, err)

			var got ParseOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.wantStrategy, got.Strategy)
			assert.Equal(t, "records", got.Index)
			assert.Contains(t, got.Body, "query")
			assert.Equal(t, tt.wantSyntax, got.SyntaxError != "", "syntax error %q", got.SyntaxError)
		})
	}
}

func TestIndexAndSearch(t *testing.T) {
	cfg := localConfig(t)

	out, err := execute(t, testRecords, "--config", cfg, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 records into records")

	search := func(args ...string) SearchOutput {
		t.Helper()
		out, err := execute(t, "", append([]string{"--config", cfg, "search"}, args...)...)
		require.NoError(t, err)
		var got SearchOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		return got
	}

	got := search("higgs")
	assert.Equal(t, "fulltext", got.Strategy)
	require.Equal(t, 1, got.Total)
	assert.Equal(t, "Higgs boson discovery", got.Records[0]["title"])

	got = search("author:'Smith, Jane'", "--recids")
	assert.Equal(t, "structured", got.Strategy)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, []uint32{2, 3}, got.Recids)

	got = search("title:higgs OR title:neutrino", "--size", "1")
	assert.Equal(t, 2, got.Total)
	assert.Len(t, got.Records, 1)

	got = search("smith", "--collection", "Published")
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, float64(3), got.Records[0]["control_number"])

	got = search("dark", "--collection", "Published")
	assert.Equal(t, 0, got.Total)
}

func TestIndex_Compact(t *testing.T) {
	cfg := localConfig(t)
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(testRecords), 0644))

	_, err := execute(t, "", "--config", cfg, "index", path)
	require.NoError(t, err)
	_, err = execute(t, "", "--config", cfg, "index", "--compact", path)
	require.NoError(t, err)

	out, err := execute(t, "", "--config", cfg, "search", "title:higgs")
	require.NoError(t, err)
	var got SearchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Total, "re-indexed records replace the old ones")
}

func TestIndex_Errors(t *testing.T) {
	_, err := execute(t, `{"title": "no id"}`, "--config", localConfig(t), "index")
	assert.ErrorContains(t, err, `no "control_number"`)

	_, err = execute(t, `{"control_number": 1`, "--config", localConfig(t), "index")
	assert.Error(t, err)

	elastic := writeConfig(t, "backend:\n  kind: elastic\n  elastic:\n    url: http://127.0.0.1:1\n")
	_, err = execute(t, testRecords, "--config", elastic, "index")
	assert.ErrorContains(t, err, "local backend")
}

func TestMatch(t *testing.T) {
	record := `{"control_number": 1, "titles": [{"title": "Search for the Higgs Boson"}]}`

	tests := []struct {
		query string
		want  bool
	}{
		{"title:higgs", true},
		{"title:neutrino", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			out, err := execute(t, record, "match", tt.query)
			require.NoError(t, err)
			var got MatchOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got.Matches)
		})
	}
}

func TestTerms(t *testing.T) {
	out, err := execute(t, "", "terms", `higgs title:"dark matter" -author:ellis`)
	require.NoError(t, err)
	var got TermsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"higgs", "dark matter"}, got.Terms)

	out, err = execute(t, "", "terms", "-k", "title", `higgs title:"dark matter"`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"dark matter"}, got.Terms)
}

func TestBadConfig(t *testing.T) {
	path := writeConfig(t, "search:\n  unknown_key: 1\n")
	_, err := execute(t, "", "--config", path, "parse", "higgs")
	assert.Error(t, err)

	_, err = execute(t, "", "--log-level", "loud", "parse", "higgs")
	assert.Error(t, err)
}
